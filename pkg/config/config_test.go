package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.ComponentsDir != "gitsu_components" {
		t.Errorf("ComponentsDir = %q", cfg.ComponentsDir)
	}
	if !cfg.Interactive {
		t.Error("Interactive should default to true")
	}
	if cfg.Production || cfg.Force || cfg.ForceLatest {
		t.Error("production/force/force_latest should default to false")
	}
	if cfg.Duration() != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want 24h", cfg.Duration())
	}
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := `
components_dir = "vendor/components"
production = true
cache_ttl = "1h"

[resolutions]
jquery = "~2.0.0"
`
	if err := os.WriteFile(filepath.Join(dir, Filename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ComponentsDir != "vendor/components" {
		t.Errorf("ComponentsDir = %q", cfg.ComponentsDir)
	}
	if !cfg.Production {
		t.Error("Production not loaded")
	}
	if cfg.Duration() != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.Duration())
	}
	if cfg.Resolutions["jquery"] != "~2.0.0" {
		t.Errorf("Resolutions = %v", cfg.Resolutions)
	}
	// Unset keys keep their defaults.
	if !cfg.Interactive {
		t.Error("Interactive default lost during merge")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ComponentsDir != Default().ComponentsDir {
		t.Errorf("ComponentsDir = %q", cfg.ComponentsDir)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Resolutions["underscore"] = "^1.8.0"
	cfg.ForceLatest = true

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Resolutions["underscore"] != "^1.8.0" {
		t.Errorf("Resolutions = %v", loaded.Resolutions)
	}
	if !loaded.ForceLatest {
		t.Error("ForceLatest not persisted")
	}
}
