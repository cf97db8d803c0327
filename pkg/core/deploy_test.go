package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/hooks"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func deployable(t *testing.T, name, version string, files map[string]string) *endpoint.Endpoint {
	t.Helper()
	src := t.TempDir()
	writeTree(t, src, files)
	ep := endpoint.New("https://a.example/"+name+".git", "~"+version, name)
	ep.CanonicalDir = src
	ep.PkgMeta = &manifest.Manifest{Name: name, Version: version, Release: version}
	return ep
}

func installInto(t *testing.T, componentsDir string, eps ...*endpoint.Endpoint) map[string]*ComponentReport {
	t.Helper()
	m := NewManager(nil, Options{ComponentsDir: componentsDir})
	m.dissected = eps
	report, err := m.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	return report
}

func TestInstallDeploysComponent(t *testing.T) {
	components := t.TempDir()
	ep := deployable(t, "jquery", "1.9.1", map[string]string{
		"dist/jquery.js": "window.$ = {}",
		"gitsu.json":     `{"name":"jquery","version":"1.9.1"}`,
	})
	ep.Newly = true

	report := installInto(t, components, ep)

	if _, err := os.Stat(filepath.Join(components, "jquery", "dist", "jquery.js")); err != nil {
		t.Errorf("deployed file missing: %v", err)
	}
	meta, err := manifest.ReadInstalled(filepath.Join(components, "jquery"))
	if err != nil || meta == nil {
		t.Fatalf("ReadInstalled: (%v, %v)", meta, err)
	}
	if meta.Target != "~1.9.1" || meta.Source != ep.Source || meta.Release != "1.9.1" {
		t.Errorf("annotations = %+v", meta)
	}
	if !meta.Direct {
		t.Error("top-level component not annotated as direct")
	}
	if report["jquery"] == nil || report["jquery"].Endpoint.Name != "jquery" {
		t.Errorf("report = %+v", report)
	}
}

func TestInstallPreservesKeepAndCustom(t *testing.T) {
	components := t.TempDir()
	dst := filepath.Join(components, "pkg")
	writeTree(t, dst, map[string]string{
		"gitsu.custom.json": `{"tweaked":true}`,
		"local/config.js":   "old local config",
		"stale.js":          "left over from last deploy",
		".gitsu.json":       `{"name":"pkg","keep":["local/**"]}`,
	})

	ep := deployable(t, "pkg", "2.0.0", map[string]string{
		"lib.js":          "new code",
		"local/config.js": "incoming default config",
	})

	installInto(t, components, ep)

	if _, err := os.Stat(filepath.Join(dst, "stale.js")); !os.IsNotExist(err) {
		t.Error("stale file survived redeploy")
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "gitsu.custom.json")); string(data) != `{"tweaked":true}` {
		t.Error("custom manifest not preserved")
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "local", "config.js")); string(data) != "old local config" {
		t.Errorf("kept file overwritten: %q", data)
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "lib.js")); string(data) != "new code" {
		t.Error("incoming file not deployed")
	}
}

func TestInstallInPlaceUpdate(t *testing.T) {
	components := t.TempDir()
	dst := filepath.Join(components, "pkg")
	writeTree(t, dst, map[string]string{
		"lib.js":           "existing code",
		".gitsu.json":      `{"name":"pkg","version":"1.0.0"}`,
		".gitsu.json.new":  `{"name":"pkg","version":"1.1.0"}`,
		"unrelated/one.js": "untouched",
	})

	ep := endpoint.New("https://a.example/pkg.git", "~1.0.0", "pkg")
	ep.PkgMeta = &manifest.Manifest{Name: "pkg", Version: "1.1.0", Release: "1.1.0"}

	installInto(t, components, ep)

	if _, err := os.Stat(filepath.Join(dst, manifest.NewFilename)); !os.IsNotExist(err) {
		t.Error("pending metadata file still present")
	}
	meta, err := manifest.ReadInstalled(dst)
	if err != nil || meta == nil {
		t.Fatalf("ReadInstalled: (%v, %v)", meta, err)
	}
	if meta.Version != "1.1.0" || meta.Target != "~1.0.0" {
		t.Errorf("swapped metadata = %+v", meta)
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "lib.js")); string(data) != "existing code" {
		t.Error("in-place update touched component files")
	}
}

func TestInstallHonorsManifestIgnore(t *testing.T) {
	components := t.TempDir()
	ep := deployable(t, "pkg", "1.0.0", map[string]string{
		"lib.js":       "code",
		"test/spec.js": "tests",
	})
	ep.PkgMeta.Ignore = []string{"test"}

	installInto(t, components, ep)

	if _, err := os.Stat(filepath.Join(components, "pkg", "test")); !os.IsNotExist(err) {
		t.Error("ignored tree was deployed")
	}
	if _, err := os.Stat(filepath.Join(components, "pkg", "lib.js")); err != nil {
		t.Errorf("lib.js missing: %v", err)
	}
}

func TestInstallKeepsNestedElectedComponent(t *testing.T) {
	components := t.TempDir()
	nestedDst := filepath.Join(components, "scope", "inner")
	writeTree(t, nestedDst, map[string]string{"inner.js": "nested component"})

	outer := deployable(t, "scope", "1.0.0", map[string]string{"outer.js": "outer"})
	inner := deployable(t, "scope/inner", "1.0.0", map[string]string{"inner.js": "nested component"})

	installInto(t, components, outer, inner)

	if _, err := os.Stat(filepath.Join(components, "scope", "outer.js")); err != nil {
		t.Errorf("outer not deployed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(nestedDst, "inner.js")); err != nil {
		t.Errorf("nested component purged by outer deploy: %v", err)
	}
}

func TestInstallRunsLifecycleScripts(t *testing.T) {
	components := t.TempDir()
	project := t.TempDir()
	ep := deployable(t, "pkg", "1.0.0", map[string]string{"lib.js": "code"})

	m := NewManager(nil, Options{
		ComponentsDir: components,
		Scripts: hooks.Scripts{
			Preinstall:  `echo "$GITSU_PKGS" > pre.txt`,
			Postinstall: `echo "$GITSU_PKGS" > post.txt`,
			Dir:         project,
		},
	})
	m.dissected = []*endpoint.Endpoint{ep}
	if _, err := m.Install(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"pre.txt", "post.txt"} {
		data, err := os.ReadFile(filepath.Join(project, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(data) != "pkg\n" {
			t.Errorf("%s = %q", name, data)
		}
	}
}

func TestInstallNothingToDeploy(t *testing.T) {
	m := NewManager(nil, Options{ComponentsDir: t.TempDir()})
	report, err := m.Install(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report) != 0 {
		t.Errorf("report = %v", report)
	}
}

func TestReportGuardsCycles(t *testing.T) {
	a := endpoint.New("a", "*", "a")
	b := endpoint.New("b", "*", "b")
	a.Dependencies = map[string]*endpoint.Endpoint{"b": b}
	b.Dependencies = map[string]*endpoint.Endpoint{"a": a}
	a.AddDependant(b)
	b.AddDependant(a)

	report := Report([]*endpoint.Endpoint{a, b})

	ra := report["a"]
	if ra == nil || ra.Dependencies["b"] == nil {
		t.Fatalf("report = %+v", report)
	}
	if _, ok := ra.Dependencies["b"].Dependencies["a"]; ok {
		t.Error("cycle not guarded")
	}
	if ra.NrDependants != 1 {
		t.Errorf("NrDependants = %d", ra.NrDependants)
	}
}
