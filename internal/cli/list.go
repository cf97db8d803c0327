package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var paths bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the installed dependency tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			installed, err := p.readInstalled()
			if err != nil {
				return err
			}
			if len(installed) == 0 {
				printInfo("No components installed")
				printNextStep("Install some", "gitsu install <name> --save")
				return nil
			}

			if paths {
				for _, rid := range sortedRIDs(installed) {
					fmt.Println(installed[rid].Name + "=" + p.componentDir(rid))
				}
				return nil
			}

			name := p.meta.Name
			if name == "" {
				name = "project"
			}
			fmt.Println(StyleTitle.Render(name))
			printTree(installed, topLevel(installed), "", map[string]bool{})
			return nil
		},
	}

	cmd.Flags().BoolVar(&paths, "paths", false, "print name=path lines instead of a tree")
	return cmd
}

// topLevel returns the installed components no other component depends
// on, plus everything marked direct.
func topLevel(installed map[string]*manifest.Manifest) []string {
	depended := map[string]bool{}
	for _, meta := range installed {
		for dep := range meta.Dependencies {
			depended[dep] = true
		}
	}
	var roots []string
	for _, rid := range sortedRIDs(installed) {
		meta := installed[rid]
		if meta.Direct || !depended[meta.Name] {
			roots = append(roots, rid)
		}
	}
	return roots
}

// printTree renders components with box-drawing connectors, recursing
// into dependencies that are themselves installed. The ancestors set
// keeps metadata cycles from recursing forever.
func printTree(installed map[string]*manifest.Manifest, rids []string, prefix string, ancestors map[string]bool) {
	for i, rid := range rids {
		meta := installed[rid]
		if ancestors[rid] {
			continue
		}
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(rids)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		label := StyleValue.Render(meta.Name)
		if meta.Release != "" {
			label += StyleDim.Render("#") + StyleNumber.Render(meta.Release)
		}
		if meta.Target != "" && meta.Target != meta.Release {
			label += " " + StyleDim.Render("("+meta.Target+")")
		}
		fmt.Println(prefix + StyleDim.Render(connector) + label)

		var children []string
		for dep := range meta.Dependencies {
			if child, ok := findByName(installed, dep); ok && child != rid {
				children = append(children, child)
			}
		}
		sort.Strings(children)
		ancestors[rid] = true
		printTree(installed, children, childPrefix, ancestors)
		delete(ancestors, rid)
	}
}

func findByName(installed map[string]*manifest.Manifest, name string) (string, bool) {
	if _, ok := installed[name]; ok {
		return name, true
	}
	for rid, meta := range installed {
		if meta.Name == name {
			return rid, true
		}
	}
	return "", false
}

func sortedRIDs(installed map[string]*manifest.Manifest) []string {
	rids := make([]string, 0, len(installed))
	for rid := range installed {
		rids = append(rids, rid)
	}
	sort.Strings(rids)
	return rids
}
