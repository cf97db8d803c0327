package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordingInstallHooks struct {
	NoopInstallHooks
	fetches   []string
	conflicts []string
}

func (r *recordingInstallHooks) OnFetchStart(_ context.Context, name, _ string) {
	r.fetches = append(r.fetches, name)
}

func (r *recordingInstallHooks) OnConflict(_ context.Context, name string, _ int) {
	r.conflicts = append(r.conflicts, name)
}

func TestRegisterAndReset(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingInstallHooks{}
	SetInstallHooks(rec)

	Install().OnFetchStart(context.Background(), "jquery", "src")
	Install().OnConflict(context.Background(), "jquery", 2)
	Install().OnDeployComplete(context.Background(), 1, time.Millisecond, nil)

	if len(rec.fetches) != 1 || rec.fetches[0] != "jquery" {
		t.Errorf("fetches = %v", rec.fetches)
	}
	if len(rec.conflicts) != 1 {
		t.Errorf("conflicts = %v", rec.conflicts)
	}

	Reset()
	if _, ok := Install().(NoopInstallHooks); !ok {
		t.Error("Reset did not restore noop install hooks")
	}
}

func TestSetNilKeepsCurrent(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingInstallHooks{}
	SetInstallHooks(rec)
	SetInstallHooks(nil)

	Install().OnFetchStart(context.Background(), "pkg", "src")
	if len(rec.fetches) != 1 {
		t.Error("nil registration replaced the active hooks")
	}
}

func TestScriptsRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	s := Scripts{
		Preinstall: `echo "$GITSU_PKGS in $GITSU_DIR" > ` + out,
		Dir:        dir,
	}

	if err := s.RunPreinstall(context.Background(), "components", []string{"jquery", "backbone"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(string(data))
	if got != "jquery backbone in components" {
		t.Errorf("hook output = %q", got)
	}
}

func TestScriptsEmptyCommandIsNoop(t *testing.T) {
	if err := (Scripts{}).RunPostinstall(context.Background(), "components", nil); err != nil {
		t.Fatal(err)
	}
}

func TestScriptsFailure(t *testing.T) {
	s := Scripts{Postinstall: "exit 3"}
	if err := s.RunPostinstall(context.Background(), "components", nil); err == nil {
		t.Fatal("failing hook returned nil error")
	}
}
