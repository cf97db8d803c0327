package cli

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/fsutil"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// uninstallCommand creates the uninstall command.
func (c *CLI) uninstallCommand() *cobra.Command {
	var save, force bool

	cmd := &cobra.Command{
		Use:   "uninstall <name>...",
		Short: "Remove installed components",
		Long: `Uninstall removes components from the components directory. A
component that other installed components still depend on is kept
unless --force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			installed, err := p.readInstalled()
			if err != nil {
				return err
			}

			var removed []string
			for _, name := range args {
				rid, ok := findInstalled(installed, name)
				if !ok {
					printWarning("%s is not installed", name)
					continue
				}
				if deps := dependants(installed, installed[rid].Name); len(deps) > 0 && !force {
					printWarning("%s is depended on by %s, use --force to remove it",
						name, strings.Join(deps, ", "))
					continue
				}

				dir := p.componentDir(rid)
				if err := os.RemoveAll(dir); err != nil {
					return errors.Wrap(errors.EINTERNAL, err, "failed to remove %s", name)
				}
				fsutil.PruneEmptyParents(dir, p.componentsDir())
				delete(installed, rid)
				removed = append(removed, name)
				printSuccess("Removed %s", name)
			}

			if save && len(removed) > 0 {
				changed := false
				for _, name := range removed {
					if p.removeDependency(name) {
						changed = true
					}
				}
				if changed {
					if err := p.writeManifest(); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&save, "save", "S", false, "also remove the entries from gitsu.json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "remove even when other components depend on it")

	return cmd
}

// findInstalled matches an argument against installed components by
// resolution id first, then by manifest name.
func findInstalled(installed map[string]*manifest.Manifest, name string) (string, bool) {
	if _, ok := installed[name]; ok {
		return name, true
	}
	rids := make([]string, 0, len(installed))
	for rid := range installed {
		rids = append(rids, rid)
	}
	sort.Strings(rids)
	for _, rid := range rids {
		if installed[rid].Name == name {
			return rid, true
		}
	}
	return "", false
}
