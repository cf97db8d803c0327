package resolver

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
)

// RegistryResolver expands registry short names ("jquery") into git URLs
// and delegates the actual fetch to the git transport. The original short
// name is preserved as the endpoint's OriginalSource annotation.
type RegistryResolver struct {
	lookup Lookuper
	git    *GitResolver
	logger *log.Logger
}

// Fetch looks the short name up and fetches the resulting URL via git.
func (r *RegistryResolver) Fetch(ctx context.Context, ep *endpoint.Endpoint) (*Result, error) {
	name := ep.Source
	url, err := r.lookup.Lookup(ctx, name)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "registry lookup of %q", name)
	}
	r.logger.Debug("registry lookup", "name", name, "url", url)

	proxy := *ep
	proxy.SetSource(url)
	res, err := r.git.Fetch(ctx, &proxy)
	if err != nil {
		return nil, err
	}
	res.PkgMeta.OriginalSource = name
	res.PkgMeta.Source = url
	return res, nil
}

// Targetable is true: registry entries resolve to git repositories.
func (r *RegistryResolver) Targetable() bool { return true }

// Versions lists the versions of the repository the name points at.
func (r *RegistryResolver) Versions(ctx context.Context, source string) ([]string, error) {
	url, err := r.lookup.Lookup(ctx, source)
	if err != nil {
		return nil, err
	}
	return r.git.Versions(ctx, url)
}
