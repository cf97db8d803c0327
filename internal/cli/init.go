package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter gitsu.json in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			path := filepath.Join(dir, manifest.Filename)
			if _, err := os.Stat(path); err == nil {
				printWarning("%s already exists", manifest.Filename)
				return nil
			}

			if name == "" {
				name = filepath.Base(dir)
			}
			meta := &manifest.Manifest{
				Name:         name,
				Version:      "0.0.0",
				Dependencies: map[string]string{},
			}
			if err := manifest.Write(path, meta); err != nil {
				return err
			}

			printSuccess("Created %s", manifest.Filename)
			printKeyValue("name", name)
			printNextStep("Add components", "gitsu install <name> --save")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "component name (defaults to the directory name)")
	return cmd
}
