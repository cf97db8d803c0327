package semver

import "testing"

func TestValid(t *testing.T) {
	for raw, want := range map[string]bool{
		"1.2.3":        true,
		"v1.2.3":       true,
		"1.2.3-beta.1": true,
		"~1.2.3":       false,
		"*":            false,
		"master":       false,
		"":             false,
	} {
		if got := Valid(raw); got != want {
			t.Errorf("Valid(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestValidRange(t *testing.T) {
	for raw, want := range map[string]bool{
		"~1.2.3":        true,
		"^1.0.0":        true,
		">=1.0.0 <2":    true,
		"1.0.0 - 2.0.0": true,
		"*":             true,
		"1.2.3":         false, // concrete, not a range
		"some-branch":   false,
	} {
		if got := ValidRange(raw); got != want {
			t.Errorf("ValidRange(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version, rng string
		want         bool
	}{
		{"1.2.3", "~1.2.0", true},
		{"1.3.0", "~1.2.0", false},
		{"1.9.9", "^1.2.0", true},
		{"2.0.0", "^1.2.0", false},
		{"1.5.0", "1.0.0 - 2.0.0", true},
		{"1.5.0", "*", true},
		{"not-a-version", "*", false},
		{"1.0.0", "not-a-range", false},
	}
	for _, tt := range tests {
		if got := Satisfies(tt.version, tt.rng); got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.0.0", "v1.0.0", 0},
		{"garbage", "1.0.0", -1},
		{"1.0.0", "garbage", 1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTilde(t *testing.T) {
	if got := Tilde("1.2.3"); got != "~1.2.3" {
		t.Errorf("Tilde = %q", got)
	}
	if got := Tilde("v1.2.3"); got != "~1.2.3" {
		t.Errorf("Tilde with prefix = %q", got)
	}
}

func TestHighestCap(t *testing.T) {
	tests := []struct {
		rng        string
		version    string
		comparator string
		found      bool
	}{
		{"<2.0.0", "2.0.0", "<", true},
		{"<=2.0.0", "2.0.0", "<=", true},
		{"^1.2.3", "2.0.0", "<", true},
		{"^0.2.3", "0.3.0", "<", true},
		{"^0.0.3", "0.0.4", "<", true},
		{"~1.2.3", "1.3.0", "<", true},
		{"~1", "2.0.0", "<", true},
		{"1.2.x", "1.3.0", "<", true},
		{"1.2.3", "1.2.3", "=", true},
		{"1.0.0 - 2.5.0", "2.5.0", "<=", true},
		{">=1.0.0 <2.0.0", "2.0.0", "<", true},
		{"<1.0.0 || <3.0.0", "3.0.0", "<", true},
		{"*", "", "", false},
		{">=1.0.0", "", "", false},
	}
	for _, tt := range tests {
		cap, found := HighestCap(tt.rng)
		if found != tt.found {
			t.Errorf("HighestCap(%q) found = %v, want %v", tt.rng, found, tt.found)
			continue
		}
		if !found {
			continue
		}
		if !Eq(cap.Version, tt.version) || cap.Comparator != tt.comparator {
			t.Errorf("HighestCap(%q) = (%q, %q), want (%q, %q)",
				tt.rng, cap.Version, cap.Comparator, tt.version, tt.comparator)
		}
	}
}

func TestCapEqual(t *testing.T) {
	a, okA := HighestCap("~1.2.0")
	b, okB := HighestCap(">=1.0.0 <1.3.0")
	if !okA || !okB {
		t.Fatal("caps not found")
	}
	if !a.Equal(b) {
		t.Errorf("caps %v and %v should agree", a, b)
	}

	c, _ := HighestCap("~1.2.0")
	d, okD := HighestCap("<=1.3.0")
	if !okD {
		t.Fatal("cap not found")
	}
	if c.Equal(d) {
		t.Errorf("caps %v and %v differ by comparator kind", c, d)
	}
}
