package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gitsu-io/gitsu/pkg/hooks"
)

// fetchTracker narrates a resolution run through the install hook points.
// Fetch events drive the spinner text; conflicts and slow fetches go to
// the logger. Safe for the engine's concurrent fetch goroutines.
type fetchTracker struct {
	hooks.NoopInstallHooks

	logger *log.Logger
	spin   *Spinner

	mu      sync.Mutex
	fetched int
}

func newFetchTracker(logger *log.Logger, spin *Spinner) *fetchTracker {
	return &fetchTracker{logger: logger, spin: spin}
}

func (t *fetchTracker) OnFetchStart(_ context.Context, name, source string) {
	t.logger.Debug("fetching", "name", name, "source", source)
	if t.spin != nil {
		t.spin.SetMessage(fmt.Sprintf("Fetching %s", name))
	}
}

func (t *fetchTracker) OnFetchComplete(_ context.Context, name, _ string, duration time.Duration, err error) {
	if err != nil {
		t.logger.Debug("fetch failed", "name", name, "err", err)
		return
	}
	t.mu.Lock()
	t.fetched++
	n := t.fetched
	t.mu.Unlock()
	t.logger.Debug("fetched", "name", name, "took", duration.Round(time.Millisecond), "total", n)
}

func (t *fetchTracker) OnConflict(_ context.Context, name string, candidates int) {
	t.logger.Warn("version conflict", "name", name, "candidates", candidates)
}

func (t *fetchTracker) OnDeployStart(_ context.Context, components int) {
	if t.spin != nil {
		t.spin.SetMessage(fmt.Sprintf("Deploying %d components", components))
	}
}

// count returns how many fetches finished without error.
func (t *fetchTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetched
}
