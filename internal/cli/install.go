package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gitsu-io/gitsu/pkg/core"
	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/hooks"
)

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var flags managerFlags
	var save, saveDev bool

	cmd := &cobra.Command{
		Use:   "install [<source>#<target>...]",
		Short: "Resolve and deploy components",
		Long: `Install resolves the requested components and every transitive
dependency, then deploys them into the components directory.

Without arguments the project's gitsu.json dependencies are installed.
Arguments take the form "name=source#target"; name and target are
optional. Sources may be registry names, git URLs or local directories.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			flags.apply(cmd, p.cfg)

			targets, err := p.targets(args)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				printInfo("Nothing to install")
				return nil
			}

			report, m, err := c.runInstall(cmd, p, &flags, targets)
			if err != nil {
				return err
			}

			if save || saveDev {
				for _, ep := range targets {
					p.saveDependency(ep, saveDev)
				}
				if err := p.writeManifest(); err != nil {
					return err
				}
			}
			if err := p.saveResolutions(m.Resolutions()); err != nil {
				return err
			}

			printReport(report)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&save, "save", "S", false, "record installed components in gitsu.json")
	cmd.Flags().BoolVarP(&saveDev, "save-dev", "D", false, "record installed components as devDependencies")

	return cmd
}

// runInstall drives one resolve-and-deploy cycle with progress feedback.
func (c *CLI) runInstall(cmd *cobra.Command, p *project, flags *managerFlags, targets []*endpoint.Endpoint) (map[string]*core.ComponentReport, *core.Manager, error) {
	m, err := c.newManager(cmd, p, flags.noCache)
	if err != nil {
		return nil, nil, err
	}

	installed, err := p.readInstalled()
	if err != nil {
		return nil, nil, err
	}

	spin := newSpinnerWithContext(cmd.Context(), "Resolving components")
	tracker := newFetchTracker(c.Logger, spin)
	hooks.SetInstallHooks(tracker)
	defer hooks.Reset()

	prog := newProgress(c.Logger)
	spin.Start()

	m.Configure(targets, installed, nil)
	if err := m.Resolve(cmd.Context()); err != nil {
		spin.Stop()
		return nil, nil, describeResolveError(err)
	}

	count := len(m.Dissected())
	if count == 0 {
		spin.StopWithSuccess("Already up to date")
		return map[string]*core.ComponentReport{}, m, nil
	}

	report, err := m.Install(cmd.Context())
	spin.Stop()
	if err != nil {
		return nil, nil, err
	}
	prog.done(fmt.Sprintf("Installed %d components", len(report)))
	return report, m, nil
}

// describeResolveError unwraps conflict details into a readable message.
func describeResolveError(err error) error {
	if !errors.Is(err, errors.ECONFLICT) {
		return err
	}
	picks, ok := errors.GetData(err).([]core.EndpointInfo)
	if !ok || len(picks) == 0 {
		return err
	}
	printError("Unable to find a suitable version for %s", picks[0].Name)
	for i, pick := range picks {
		printDetail("%d) %s#%s", i+1, pick.Name, pick.Target)
	}
	printNextStep("Retry interactively or pin a resolution", "gitsu install --force-latest")
	return err
}

// printReport lists deployed components name-first, releases attached.
func printReport(report map[string]*core.ComponentReport) {
	if len(report) == 0 {
		return
	}
	rids := make([]string, 0, len(report))
	for rid := range report {
		rids = append(rids, rid)
	}
	sort.Strings(rids)

	for _, rid := range rids {
		release := ""
		if meta := report[rid].PkgMeta; meta != nil {
			release = meta.Release
			if release == "" {
				release = meta.Version
			}
		}
		printComponent(rid, release)
	}
}
