package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Scripts runs the user-configured lifecycle commands around deployment.
// Commands execute through "sh -c" in the project directory with the
// component list exposed via GITSU_PKGS and the components directory via
// GITSU_DIR.
type Scripts struct {
	Preinstall  string
	Postinstall string
	Dir         string
}

// RunPreinstall executes the preinstall command, if configured.
func (s Scripts) RunPreinstall(ctx context.Context, componentsDir string, components []string) error {
	return s.run(ctx, "preinstall", s.Preinstall, componentsDir, components)
}

// RunPostinstall executes the postinstall command, if configured.
func (s Scripts) RunPostinstall(ctx context.Context, componentsDir string, components []string) error {
	return s.run(ctx, "postinstall", s.Postinstall, componentsDir, components)
}

func (s Scripts) run(ctx context.Context, phase, command, componentsDir string, components []string) error {
	if command == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = s.Dir
	cmd.Env = append(os.Environ(),
		"GITSU_PKGS="+strings.Join(components, " "),
		"GITSU_DIR="+componentsDir,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s hook failed: %w", phase, err)
	}
	return nil
}
