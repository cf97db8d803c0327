// Package cli implements the gitsu command-line interface.
//
// This package provides commands for installing, updating and removing
// components, inspecting the installed tree, and talking to a component
// registry. The CLI is built using cobra and supports verbose logging via
// the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - install: Resolve and deploy components into the components directory
//   - update: Re-resolve installed components against their targets
//   - uninstall: Remove installed components
//   - list: Show the installed dependency tree
//   - registry: Serve, query and publish a component registry
//   - cache: Manage the registry lookup cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gitsu-io/gitsu/pkg/buildinfo"
	"github.com/gitsu-io/gitsu/pkg/cache"
	"github.com/gitsu-io/gitsu/pkg/config"
	"github.com/gitsu-io/gitsu/pkg/core"
	"github.com/gitsu-io/gitsu/pkg/hooks"
	"github.com/gitsu-io/gitsu/pkg/registry"
	"github.com/gitsu-io/gitsu/pkg/resolver"
)

// appName is the application name used for directories and display.
const appName = "gitsu"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "gitsu",
		Short:        "Gitsu installs and manages front-end components",
		Long:         `Gitsu resolves component dependency trees from git repositories, local directories and a component registry, and deploys them into a flat components directory.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.installCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.uninstallCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.initCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.registryCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// managerFlags are the command-line overrides shared by install and
// update. Each flag only overrides the loaded configuration when the
// user actually set it.
type managerFlags struct {
	production    bool
	force         bool
	forceLatest   bool
	noColor       bool
	noCache       bool
	offlinePrompt bool
}

func (f *managerFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.production, "production", "p", false, "skip devDependencies")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "redeploy even when installed metadata matches")
	cmd.Flags().BoolVarP(&f.forceLatest, "force-latest", "F", false, "resolve conflicts to the latest version")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "bypass the registry lookup cache")
	cmd.Flags().BoolVar(&f.offlinePrompt, "non-interactive", false, "fail on conflicts instead of prompting")
}

func (f *managerFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("production") {
		cfg.Production = f.production
	}
	if cmd.Flags().Changed("force") {
		cfg.Force = f.force
	}
	if cmd.Flags().Changed("force-latest") {
		cfg.ForceLatest = f.forceLatest
	}
	if f.noColor {
		cfg.Color = false
	}
	if f.offlinePrompt {
		cfg.Interactive = false
	}
}

// newManager wires a resolution manager for a project: cache, registry
// client, composite resolver, then the core engine.
func (c *CLI) newManager(cmd *cobra.Command, p *project, noCache bool) (*core.Manager, error) {
	cfg := p.cfg
	store, err := c.newCache(cmd, cfg, noCache)
	if err != nil {
		return nil, err
	}

	var lookup resolver.Lookuper
	if cfg.Registry != "" {
		lookup = registry.NewClient(cfg.Registry, registry.ClientOptions{
			Cache: cache.NewScopedCache(store, "registry"),
			TTL:   cfg.Duration(),
		})
	}

	fetcher := resolver.New(resolver.Options{
		Tmp:      cfg.Tmp,
		Registry: lookup,
		Cache:    cache.NewScopedCache(store, "source"),
		Logger:   c.Logger,
	})

	return core.NewManager(fetcher, core.Options{
		ComponentsDir: p.componentsDir(),
		Tmp:           cfg.Tmp,
		Production:    cfg.Production,
		Force:         cfg.Force,
		ForceLatest:   cfg.ForceLatest,
		Interactive:   cfg.Interactive,
		Prompt:        conflictPrompt,
		Resolutions:   cfg.Resolutions,
		Scripts: hooks.Scripts{
			Preinstall:  cfg.Preinstall,
			Postinstall: cfg.Postinstall,
			Dir:         p.dir,
		},
		Logger: c.Logger,
	}), nil
}

func (c *CLI) newCache(cmd *cobra.Command, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.Redis != "" {
		return cache.NewRedisCache(cmd.Context(), cache.RedisConfig{Addr: cfg.Redis})
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/gitsu/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
