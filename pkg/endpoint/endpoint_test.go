package endpoint

import (
	"testing"

	"github.com/gitsu-io/gitsu/pkg/errors"
)

func TestDecompose(t *testing.T) {
	tests := []struct {
		requested string
		source    string
		target    string
		name      string
	}{
		{"jquery", "jquery", "*", "jquery"},
		{"jquery#1.2.3", "jquery", "1.2.3", "jquery"},
		{"https://github.com/jquery/jquery.git", "https://github.com/jquery/jquery.git", "*", "jquery"},
		{"https://github.com/jquery/jquery.git#~2.0.0", "https://github.com/jquery/jquery.git", "~2.0.0", "jquery"},
		{"jq=https://github.com/jquery/jquery.git#2.0.0", "https://github.com/jquery/jquery.git", "2.0.0", "jq"},
		{"backbone=backbone-amd#~1.0.0", "backbone-amd", "~1.0.0", "backbone"},
		{"./local/dir", "./local/dir", "*", "dir"},
	}
	for _, tt := range tests {
		ep, err := Decompose(tt.requested)
		if err != nil {
			t.Fatalf("Decompose(%q): %v", tt.requested, err)
		}
		if ep.Source != tt.source || ep.Target != tt.target || ep.Name != tt.name {
			t.Errorf("Decompose(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.requested, ep.Source, ep.Target, ep.Name, tt.source, tt.target, tt.name)
		}
	}
}

func TestDecomposeInvalid(t *testing.T) {
	for _, requested := range []string{"", "   ", "name=#1.0.0"} {
		if _, err := Decompose(requested); !errors.Is(err, errors.EINVEP) {
			t.Errorf("Decompose(%q) err = %v, want EINVEP", requested, err)
		}
	}
}

func TestGuessName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://github.com/jquery/jquery.git", "jquery"},
		{"git@github.com:user/repo.git", "repo"},
		{"jquery", "jquery"},
		{"./some/local/path/", "path"},
	}
	for _, tt := range tests {
		if got := GuessName(tt.source); got != tt.want {
			t.Errorf("GuessName(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestIdentityTuple(t *testing.T) {
	ep := New("https://github.com/jquery/jquery.git", "~1.9.0", "")
	if ep.RID() != "jquery" {
		t.Errorf("RID = %q, want jquery", ep.RID())
	}
	if ep.FID() != "github.com/jquery/jquery#~1.9.0" {
		t.Errorf("FID = %q", ep.FID())
	}

	// Two targets for the same source must not share a fetch id.
	other := New("https://github.com/jquery/jquery.git", "~2.0.0", "")
	if ep.FID() == other.FID() {
		t.Error("distinct targets share a fetch id")
	}
}

func TestRenameInvalidatesIdentity(t *testing.T) {
	ep := New("some-source", "*", "requested")
	oldRID := ep.RID()

	ep.Rename("canonical")
	if ep.RID() == oldRID {
		t.Error("RID unchanged after rename")
	}
	if ep.RID() != "canonical" {
		t.Errorf("RID = %q, want canonical", ep.RID())
	}
	if ep.OldName != "requested" {
		t.Errorf("OldName = %q, want requested", ep.OldName)
	}
	if ep.InitialName != "requested" {
		t.Errorf("InitialName = %q, want requested", ep.InitialName)
	}
}

func TestAddDependantDedups(t *testing.T) {
	ep := New("a", "*", "a")
	parent := New("b", "*", "b")

	ep.AddDependant(parent)
	ep.AddDependant(parent)
	if len(ep.Dependants) != 1 {
		t.Errorf("Dependants = %d, want 1", len(ep.Dependants))
	}
}

func TestMergeDependants(t *testing.T) {
	a := New("pkg", "1.0.0", "pkg")
	b := New("pkg", "~1.0.0", "pkg")
	p1 := New("p1", "*", "p1")
	p2 := New("p2", "*", "p2")

	a.AddDependant(p1)
	b.AddDependant(p1)
	b.AddDependant(p2)

	a.MergeDependants(b)
	if len(a.Dependants) != 2 {
		t.Errorf("Dependants = %d, want 2", len(a.Dependants))
	}
}

func TestUniquify(t *testing.T) {
	first := New("jquery", "~1.0.0", "jquery")
	override := New("jquery", "~1.0.0", "jquery")
	other := New("backbone", "*", "backbone")

	out := Uniquify([]*Endpoint{first, other, override})
	if len(out) != 2 {
		t.Fatalf("Uniquify kept %d, want 2", len(out))
	}
	// The later respecification wins its slot.
	if out[0] != override {
		t.Error("Uniquify kept the earlier duplicate")
	}
	if out[1] != other {
		t.Error("Uniquify reordered distinct endpoints")
	}
}

func TestUniquifyKeySeparatesTargets(t *testing.T) {
	a := New("jquery", "~1.0.0", "jquery")
	b := New("jquery", "~2.0.0", "jquery")

	if out := Uniquify([]*Endpoint{a, b}); len(out) != 2 {
		t.Errorf("Uniquify collapsed distinct targets: %d", len(out))
	}
}
