package core

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/fsutil"
	"github.com/gitsu-io/gitsu/pkg/hooks"
	"github.com/gitsu-io/gitsu/pkg/manifest"
	"github.com/gitsu-io/gitsu/pkg/semver"
)

// Install materializes the dissected endpoints under the components
// directory and returns the per-component report. Lifecycle scripts run
// around the whole batch, not per component.
func (m *Manager) Install(ctx context.Context) (map[string]*ComponentReport, error) {
	m.mu.Lock()
	deployed := append([]*endpoint.Endpoint(nil), m.dissected...)
	m.mu.Unlock()

	if len(deployed) == 0 {
		return map[string]*ComponentReport{}, nil
	}

	rids := make([]string, len(deployed))
	for i, ep := range deployed {
		rids[i] = ep.RID()
	}
	sort.Strings(rids)

	start := time.Now()
	hooks.Install().OnDeployStart(ctx, len(deployed))
	err := m.deployAll(ctx, deployed, rids)
	hooks.Install().OnDeployComplete(ctx, len(deployed), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	m.reconcile(deployed)
	return Report(deployed), nil
}

func (m *Manager) deployAll(ctx context.Context, deployed []*endpoint.Endpoint, rids []string) error {
	if err := os.MkdirAll(m.opts.ComponentsDir, 0o755); err != nil {
		return errors.Wrap(errors.EINTERNAL, err, "could not create %s", m.opts.ComponentsDir)
	}
	if err := m.opts.Scripts.RunPreinstall(ctx, m.opts.ComponentsDir, rids); err != nil {
		return err
	}
	for _, ep := range deployed {
		if err := m.deployOne(ep, rids); err != nil {
			return errors.Wrap(codeOf(err), err, "failed to deploy %s", ep.RID())
		}
	}
	return m.opts.Scripts.RunPostinstall(ctx, m.opts.ComponentsDir, rids)
}

func (m *Manager) deployOne(ep *endpoint.Endpoint, electedRIDs []string) error {
	rid := ep.RID()
	dst := filepath.Join(m.opts.ComponentsDir, filepath.FromSlash(rid))

	// In-place update: the resolver already refreshed the tree and left
	// the new metadata next to it. Swap it in without copying files.
	newPath := filepath.Join(dst, manifest.NewFilename)
	if _, err := os.Stat(newPath); err == nil {
		m.logger.Debug("updating in place", "name", rid)
		if err := os.Rename(newPath, filepath.Join(dst, manifest.DotFilename)); err != nil {
			return err
		}
		return m.writeMetadata(dst, ep)
	}

	keep := m.keepSet(dst, ep, rid, electedRIDs)
	kept, err := purge(dst, keep)
	if err != nil {
		return err
	}

	var ignore []string
	if ep.PkgMeta != nil {
		ignore = ep.PkgMeta.Ignore
	}
	err = fsutil.CopyDir(ep.CanonicalDir, dst, func(rel string) bool {
		if rel == ".git" {
			return true
		}
		if kept[rel] || underAny(rel, kept) {
			return true
		}
		return matchAny(ignore, rel)
	})
	if err != nil {
		return err
	}
	return m.writeMetadata(dst, ep)
}

// keepSet computes the glob patterns a redeploy must not disturb: keep
// lists from the existing install and the incoming manifest, the custom
// manifest, and the subtrees of elected components nested under this one.
func (m *Manager) keepSet(dst string, ep *endpoint.Endpoint, rid string, electedRIDs []string) []string {
	var keep []string
	if existing, err := manifest.ReadInstalled(dst); err == nil && existing != nil {
		keep = append(keep, existing.Keep...)
	}
	if ep.PkgMeta != nil {
		keep = append(keep, ep.PkgMeta.Keep...)
	}
	keep = append(keep, manifest.CustomFilename)
	for _, other := range electedRIDs {
		if other != rid && strings.HasPrefix(other, rid+"/") {
			segment := strings.SplitN(other[len(rid)+1:], "/", 2)[0]
			keep = append(keep, segment)
		}
	}
	seen := map[string]bool{}
	out := keep[:0]
	for _, k := range keep {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// purge removes dst's contents except entries matching the keep globs,
// returning the relative paths that were preserved so the following copy
// does not overwrite them. A missing dst is fine.
func purge(dst string, keep []string) (map[string]bool, error) {
	kept := map[string]bool{}
	if _, err := os.Stat(dst); err != nil {
		if os.IsNotExist(err) {
			return kept, nil
		}
		return nil, err
	}
	if err := purgeDir(dst, "", keep, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func purgeDir(dir, prefix string, keep []string, kept map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		rel := entry.Name()
		if prefix != "" {
			rel = prefix + "/" + entry.Name()
		}
		if matchAny(keep, rel) {
			kept[rel] = true
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := purgeDir(full, rel, keep, kept); err != nil {
				return err
			}
			// Only empty after the recursion if nothing under it was kept.
			_ = os.Remove(full)
			continue
		}
		if err := os.Remove(full); err != nil {
			return err
		}
	}
	return nil
}

// matchAny reports whether rel matches one of the globs, either directly
// or as a path under a directory glob.
func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		g = strings.TrimSuffix(g, "/**")
		if g == rel || strings.HasPrefix(rel, g+"/") {
			return true
		}
		if ok, err := path.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// codeOf extracts an error's code, defaulting to EINTERNAL for plain
// errors so wrapped failures always carry one.
func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.EINTERNAL
}

func underAny(rel string, kept map[string]bool) bool {
	for k := range kept {
		if strings.HasPrefix(rel, k+"/") {
			return true
		}
	}
	return false
}

// writeMetadata rewrites the deployed .gitsu.json with the annotations
// recording how this revision was obtained.
func (m *Manager) writeMetadata(dst string, ep *endpoint.Endpoint) error {
	meta, err := manifest.ReadInstalled(dst)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = ep.PkgMeta.Clone()
	}
	if meta == nil {
		meta = &manifest.Manifest{}
	}
	if meta.Name == "" {
		meta.Name = ep.Name
	}

	meta.Source = ep.Source
	meta.Target = ep.Target
	if ep.PkgMeta != nil {
		if ep.PkgMeta.OriginalSource != "" {
			meta.OriginalSource = ep.PkgMeta.OriginalSource
		}
		if ep.PkgMeta.Release != "" {
			meta.Release = ep.PkgMeta.Release
		}
	}
	if meta.OriginalSource == "" {
		meta.OriginalSource = ep.Source
	}
	if ep.Newly {
		meta.Direct = true
	}

	m.mu.Lock()
	conflicted := m.conflicted[ep.RID()]
	m.mu.Unlock()
	if conflicted {
		typ := "target"
		if semver.Valid(ep.Version()) {
			typ = "version"
		}
		meta.Resolution = &manifest.Resolution{Type: typ}
	}

	return manifest.Write(filepath.Join(dst, manifest.DotFilename), meta)
}

// reconcile closes the dependency graph over the revisions actually
// deployed: references to losing candidates are rewritten to point at
// the elected endpoint of the same logical package.
func (m *Manager) reconcile(deployed []*endpoint.Endpoint) {
	elected := make(map[string]*endpoint.Endpoint, len(deployed))
	for _, ep := range deployed {
		elected[ep.RID()] = ep
	}
	for _, ep := range deployed {
		for key, child := range ep.Dependencies {
			if e, ok := elected[child.RID()]; ok && e != child {
				ep.Dependencies[key] = e
				e.AddDependant(ep)
			}
		}
		for i, dep := range ep.Dependants {
			if e, ok := elected[dep.RID()]; ok && e != dep {
				ep.Dependants[i] = e
			}
		}
	}
}
