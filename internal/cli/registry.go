package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitsu-io/gitsu/pkg/cache"
	"github.com/gitsu-io/gitsu/pkg/config"
	gitsuerrors "github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/registry"
)

// registryCommand creates the registry command group.
func (c *CLI) registryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Serve, query and publish a component registry",
	}

	cmd.AddCommand(c.registryServeCommand())
	cmd.AddCommand(c.registryLookupCommand())
	cmd.AddCommand(c.registryRegisterCommand())
	cmd.AddCommand(c.registrySearchCommand())

	return cmd
}

// registryServeCommand creates the "registry serve" subcommand.
func (c *CLI) registryServeCommand() *cobra.Command {
	var addr, store string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a component registry server",
		RunE: func(cmd *cobra.Command, args []string) error {
			fileStore, err := registry.NewFileStore(store)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           registry.NewServer(fileStore, c.Logger).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			c.Logger.Info("registry listening", "addr", addr, "store", store)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":7310", "listen address")
	cmd.Flags().StringVar(&store, "store", "registry.json", "path of the JSON entry store")

	return cmd
}

// registryLookupCommand creates the "registry lookup" subcommand.
func (c *CLI) registryLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Resolve a component name to its source URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.registryClient(cmd)
			if err != nil {
				return err
			}
			url, err := client.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
}

// registryRegisterCommand creates the "registry register" subcommand.
func (c *CLI) registryRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <name> <url>",
		Short: "Publish a component name pointing at a git URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.registryClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Register(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			printSuccess("Registered %s", args[0])
			printKeyValue("url", args[1])
			return nil
		},
	}
}

// registrySearchCommand creates the "registry search" subcommand.
func (c *CLI) registrySearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search registered component names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.registryClient(cmd)
			if err != nil {
				return err
			}
			entries, err := client.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No components match %q", args[0])
				return nil
			}
			for _, entry := range entries {
				fmt.Println(StyleValue.Render(entry.Name) + " " + StyleLink.Render(entry.URL))
			}
			return nil
		},
	}
}

// registryClient builds a client for the configured registry. Lookups
// made through the CLI share the resolver's cache directory.
func (c *CLI) registryClient(cmd *cobra.Command) (*registry.Client, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Registry == "" {
		return nil, gitsuerrors.New(gitsuerrors.EINVEP, "no registry configured; set registry in %s", config.Filename)
	}
	store, err := c.newCache(cmd, cfg, false)
	if err != nil {
		return nil, err
	}
	return registry.NewClient(cfg.Registry, registry.ClientOptions{
		Cache: cache.NewScopedCache(store, "registry"),
		TTL:   cfg.Duration(),
	}), nil
}
