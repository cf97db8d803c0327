package core

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/hooks"
)

// PromptFunc asks the user to pick one of the conflicting candidates.
// It returns the zero-based index of the chosen pick and whether the
// choice should be persisted as a resolution. Non-interactive runs never
// call it.
type PromptFunc func(ctx context.Context, name string, picks []*endpoint.Endpoint) (choice int, persist bool, err error)

// Options configures a Manager.
type Options struct {
	// ComponentsDir is the deployment root.
	ComponentsDir string

	// Tmp is the scratch directory handed to resolvers.
	Tmp string

	// Production skips devDependency expansion.
	Production bool

	// Force redeploys components whose installed metadata already
	// matches.
	Force bool

	// ForceLatest elects the highest candidate on conflict and persists
	// the choice.
	ForceLatest bool

	// Interactive enables the prompt on conflicts.
	Interactive bool

	// Prompt is the conflict picker capability. Required when
	// Interactive is true.
	Prompt PromptFunc

	// Resolutions seeds the persisted conflict choices, keyed by
	// logical package.
	Resolutions map[string]string

	// Scripts are the user's lifecycle commands run around deployment.
	Scripts hooks.Scripts

	// FailFast bounds how long a run keeps waiting for remaining
	// fetches after the first failure.
	FailFast time.Duration

	// Logger receives resolution tracing. Nil discards.
	Logger *log.Logger
}

// WithDefaults returns a copy with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.ComponentsDir == "" {
		o.ComponentsDir = "gitsu_components"
	}
	if o.Tmp == "" {
		o.Tmp = filepath.Join(os.TempDir(), "gitsu")
	}
	if o.FailFast == 0 {
		o.FailFast = 20 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.New(nil)
		o.Logger.SetLevel(log.FatalLevel)
	}
	return o
}
