package cli

import (
	"github.com/spf13/cobra"
)

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	var flags managerFlags

	cmd := &cobra.Command{
		Use:   "update [<name>...]",
		Short: "Re-resolve installed components against their targets",
		Long: `Update re-resolves installed components and redeploys those whose
target now points at a newer release. Names restrict the update to the
given components; without names every installed component is updated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			flags.apply(cmd, p.cfg)

			installed, err := p.readInstalled()
			if err != nil {
				return err
			}

			targets := p.installedTargets(installed, args)
			if len(targets) == 0 && len(installed) == 0 && len(args) == 0 {
				// Fall back to the manifest for projects that were
				// never installed.
				targets, err = p.manifestTargets()
				if err != nil {
					return err
				}
			}
			if len(targets) == 0 {
				printInfo("Nothing to update")
				return nil
			}

			report, m, err := c.runInstall(cmd, p, &flags, targets)
			if err != nil {
				return err
			}
			if err := p.saveResolutions(m.Resolutions()); err != nil {
				return err
			}

			if len(report) == 0 {
				return nil
			}
			printReport(report)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
