// Package resolver materializes component sources into local directories.
//
// The resolution engine only knows the Resolver contract: given an
// endpoint, produce a canonical directory holding one revision of the
// component plus its parsed manifest. Three transports implement it:
//
//   - fs: local directories (untargetable, always the tree as-is)
//   - git: remote repositories via the git binary, tags as versions
//   - registry: short names looked up in a component registry, then
//     delegated to git
//
// A Composite inspects each endpoint's source and routes it to the right
// transport.
package resolver

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gitsu-io/gitsu/pkg/cache"
	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// Result is the outcome of materializing one endpoint revision.
type Result struct {
	// CanonicalDir holds the fetched tree. It lives at least until
	// deployment completes; cleanup is the resolver's concern.
	CanonicalDir string

	// PkgMeta is the parsed manifest, never nil.
	PkgMeta *manifest.Manifest

	// Targetable reports whether the transport can select among
	// revisions. False blocks wildcard promotion downstream.
	Targetable bool
}

// Resolver turns a source into a materialized directory.
type Resolver interface {
	// Fetch materializes the revision an endpoint asks for.
	Fetch(ctx context.Context, ep *endpoint.Endpoint) (*Result, error)

	// Targetable reports whether this transport can select among
	// revisions of a source.
	Targetable() bool

	// Versions lists the semantic versions a source offers, newest
	// first. Transports without revisions return an empty list.
	Versions(ctx context.Context, source string) ([]string, error)
}

// Options configures the composite resolver.
type Options struct {
	// Tmp is the scratch directory canonical trees are created under.
	Tmp string

	// Registry resolves short names to git URLs. Nil disables registry
	// lookups.
	Registry Lookuper

	// Cache stores remote ref listings so repeated fetches of the same
	// source within a run or between close runs skip the network. Nil
	// disables caching.
	Cache cache.Cache

	// Logger receives fetch tracing. Nil discards.
	Logger *log.Logger
}

// WithDefaults returns a copy with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.Tmp == "" {
		o.Tmp = filepath.Join(os.TempDir(), "gitsu")
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Logger == nil {
		o.Logger = log.New(nil)
		o.Logger.SetLevel(log.FatalLevel)
	}
	return o
}

// Lookuper resolves a registry short name to a source URL.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// Composite routes endpoints to the transport their source calls for.
type Composite struct {
	fs       *FSResolver
	git      *GitResolver
	registry *RegistryResolver
}

// New creates the standard resolver stack.
func New(opts Options) *Composite {
	opts = opts.WithDefaults()
	fs := &FSResolver{tmp: opts.Tmp, logger: opts.Logger}
	git := &GitResolver{tmp: opts.Tmp, logger: opts.Logger, cache: opts.Cache, keyer: cache.NewDefaultKeyer()}
	c := &Composite{fs: fs, git: git}
	if opts.Registry != nil {
		c.registry = &RegistryResolver{lookup: opts.Registry, git: git, logger: opts.Logger}
	}
	return c
}

// Fetch routes to the matching transport.
func (c *Composite) Fetch(ctx context.Context, ep *endpoint.Endpoint) (*Result, error) {
	return c.route(ep.Source).Fetch(ctx, ep)
}

// Targetable reports whether the composite as a whole can target; the
// answer depends on the source, so the per-source form is preferred.
func (c *Composite) Targetable() bool { return true }

// TargetableSource reports whether the transport chosen for source can
// select among revisions.
func (c *Composite) TargetableSource(source string) bool {
	return c.route(source).Targetable()
}

// Versions lists the versions the routed transport offers for source.
func (c *Composite) Versions(ctx context.Context, source string) ([]string, error) {
	return c.route(source).Versions(ctx, source)
}

func (c *Composite) route(source string) Resolver {
	switch {
	case isLocal(source):
		return c.fs
	case isGitURL(source):
		return c.git
	case c.registry != nil && isShortName(source):
		return c.registry
	default:
		return c.git
	}
}

var shortNameRe = regexp.MustCompile(`^[\w.-]+$`)

func isLocal(source string) bool {
	if strings.HasPrefix(source, "file://") {
		return true
	}
	if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") || filepath.IsAbs(source) {
		return true
	}
	info, err := os.Stat(source)
	return err == nil && info.IsDir()
}

func isGitURL(source string) bool {
	return strings.Contains(source, "://") ||
		strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@")
}

func isShortName(source string) bool {
	return shortNameRe.MatchString(source)
}

// scratchDir creates a unique directory under tmp for one fetch.
func scratchDir(tmp string) (string, error) {
	dir := filepath.Join(tmp, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
