package resolver

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/fsutil"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// FSResolver materializes local directories. It cannot select among
// revisions, so endpoints resolved through it are untargetable.
type FSResolver struct {
	tmp    string
	logger *log.Logger
}

// Fetch copies the source tree into a scratch directory so deployment
// never mutates the user's original files.
func (r *FSResolver) Fetch(ctx context.Context, ep *endpoint.Endpoint) (*Result, error) {
	src := strings.TrimPrefix(ep.Source, "file://")
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.Wrap(errors.ENOTFOUND, err, "local source %s", src)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.EINVEP, "local source %s is not a directory", src)
	}

	dir, err := scratchDir(r.tmp)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("copying local source", "source", src, "dir", dir)
	if err := fsutil.CopyDir(src, dir, func(rel string) bool {
		return rel == ".git"
	}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta, err := manifest.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return &Result{CanonicalDir: dir, PkgMeta: meta, Targetable: false}, nil
}

// Targetable always reports false for local sources.
func (r *FSResolver) Targetable() bool { return false }

// Versions returns an empty list: a directory is a single revision.
func (r *FSResolver) Versions(context.Context, string) ([]string, error) {
	return nil, nil
}
