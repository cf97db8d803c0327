// Package config loads gitsu configuration from .gitsurc.toml files.
//
// Settings are resolved in order of increasing precedence: built-in
// defaults, ~/.gitsurc.toml, then the project's .gitsurc.toml. Command-line
// flags override loaded values in the CLI layer.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Filename is the configuration file name looked up in the home and
// project directories.
const Filename = ".gitsurc.toml"

// Config holds every recognized gitsu option.
type Config struct {
	// ComponentsDir is the deployment root, relative to the project
	// directory unless absolute.
	ComponentsDir string `toml:"components_dir"`

	// Tmp is the scratch directory handed to resolvers.
	Tmp string `toml:"tmp"`

	// Registry is the base URL of the component registry.
	Registry string `toml:"registry"`

	Production  bool `toml:"production"`
	Force       bool `toml:"force"`
	ForceLatest bool `toml:"force_latest"`
	Interactive bool `toml:"interactive"`
	Color       bool `toml:"color"`

	// CacheTTL bounds the freshness of cached registry lookups.
	CacheTTL duration `toml:"cache_ttl"`

	// Redis, when set, switches the registry cache to a shared backend.
	Redis string `toml:"redis"`

	// Scripts run around deployment.
	Preinstall  string `toml:"preinstall"`
	Postinstall string `toml:"postinstall"`

	// Resolutions persists conflict choices between runs.
	Resolutions map[string]string `toml:"resolutions"`
}

// duration wraps time.Duration for TOML string decoding ("24h", "30m").
type duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the cache TTL as a time.Duration.
func (c *Config) Duration() time.Duration { return time.Duration(c.CacheTTL) }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ComponentsDir: "gitsu_components",
		Tmp:           filepath.Join(os.TempDir(), "gitsu"),
		Registry:      "https://registry.gitsu.io",
		Interactive:   true,
		Color:         true,
		CacheTTL:      duration(24 * time.Hour),
		Resolutions:   map[string]string{},
	}
}

// Load resolves the configuration for a project directory: defaults, then
// the home file, then the project file. Missing files are not an error.
func Load(projectDir string) (*Config, error) {
	cfg := Default()
	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(cfg, filepath.Join(home, Filename)); err != nil {
			return nil, err
		}
	}
	if err := mergeFile(cfg, filepath.Join(projectDir, Filename)); err != nil {
		return nil, err
	}
	if cfg.Resolutions == nil {
		cfg.Resolutions = map[string]string{}
	}
	return cfg, nil
}

// Save writes the configuration to the project's .gitsurc.toml. The CLI
// uses this to persist conflict resolutions chosen with a trailing "!".
func Save(projectDir string, cfg *Config) error {
	f, err := os.Create(filepath.Join(projectDir, Filename))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = toml.Decode(string(data), cfg)
	return err
}
