package cli

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gitsu-io/gitsu/pkg/config"
	"github.com/gitsu-io/gitsu/pkg/core"
	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// project is the working directory a command operates on: its
// configuration, its gitsu.json and the deployed components below it.
type project struct {
	dir  string
	cfg  *config.Config
	meta *manifest.Manifest
}

// openProject loads the current directory's configuration and manifest.
// A missing gitsu.json yields an empty manifest.
func openProject() (*project, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	meta, err := manifest.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return &project{dir: dir, cfg: cfg, meta: meta}, nil
}

// componentsDir returns the absolute deployment root.
func (p *project) componentsDir() string {
	if filepath.IsAbs(p.cfg.ComponentsDir) {
		return p.cfg.ComponentsDir
	}
	return filepath.Join(p.dir, p.cfg.ComponentsDir)
}

// targets builds the resolution targets for a run. Explicit arguments
// become user-added endpoints; without arguments the project manifest's
// dependencies (and devDependencies outside production mode) are used.
func (p *project) targets(args []string) ([]*endpoint.Endpoint, error) {
	if len(args) > 0 {
		eps := make([]*endpoint.Endpoint, 0, len(args))
		for _, arg := range args {
			ep, err := endpoint.Decompose(arg)
			if err != nil {
				return nil, err
			}
			ep.Newly = true
			eps = append(eps, ep)
		}
		return eps, nil
	}
	return p.manifestTargets()
}

// manifestTargets converts the project manifest's dependency maps into
// endpoints, sorted by name for stable runs.
func (p *project) manifestTargets() ([]*endpoint.Endpoint, error) {
	deps := map[string]string{}
	for name, value := range p.meta.Dependencies {
		deps[name] = value
	}
	if !p.cfg.Production {
		for name, value := range p.meta.DevDependencies {
			deps[name] = value
		}
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	eps := make([]*endpoint.Endpoint, 0, len(names))
	for _, name := range names {
		ep, err := core.EndpointFromDependency(name, deps[name])
		if err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

// readInstalled walks the components directory and collects deployed
// metadata keyed by resolution id, the slash-separated path below the
// deployment root. Nested components are found at any depth.
func (p *project) readInstalled() (map[string]*manifest.Manifest, error) {
	root := p.componentsDir()
	installed := map[string]*manifest.Manifest{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || d.Name() != manifest.DotFilename {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		meta, err := manifest.ReadInstalled(dir)
		if err != nil || meta == nil {
			return err
		}
		installed[filepath.ToSlash(rel)] = meta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return installed, nil
}

// installedTargets turns deployed metadata back into resolvable
// endpoints for update runs. A non-empty only restricts the result to the
// named components, matched by resolved id or manifest name.
func (p *project) installedTargets(installed map[string]*manifest.Manifest, only []string) []*endpoint.Endpoint {
	wanted := map[string]bool{}
	for _, name := range only {
		wanted[name] = true
	}

	rids := make([]string, 0, len(installed))
	for rid := range installed {
		rids = append(rids, rid)
	}
	sort.Strings(rids)

	var eps []*endpoint.Endpoint
	for _, rid := range rids {
		meta := installed[rid]
		if len(wanted) > 0 && !wanted[rid] && !wanted[meta.Name] {
			continue
		}
		source := meta.OriginalSource
		if source == "" {
			source = meta.Source
		}
		if source == "" {
			continue
		}
		ep := endpoint.New(source, meta.Target, meta.Name)
		eps = append(eps, ep)
	}
	return eps
}

// saveDependency records a newly installed component in gitsu.json.
func (p *project) saveDependency(ep *endpoint.Endpoint, dev bool) {
	value := dependencyValue(ep)
	if dev {
		if p.meta.DevDependencies == nil {
			p.meta.DevDependencies = map[string]string{}
		}
		p.meta.DevDependencies[ep.Name] = value
		return
	}
	if p.meta.Dependencies == nil {
		p.meta.Dependencies = map[string]string{}
	}
	p.meta.Dependencies[ep.Name] = value
}

// removeDependency drops a component from both dependency maps and
// reports whether it was present.
func (p *project) removeDependency(name string) bool {
	_, inDeps := p.meta.Dependencies[name]
	_, inDev := p.meta.DevDependencies[name]
	delete(p.meta.Dependencies, name)
	delete(p.meta.DevDependencies, name)
	return inDeps || inDev
}

// writeManifest stores the project manifest back to gitsu.json.
func (p *project) writeManifest() error {
	return manifest.Write(filepath.Join(p.dir, manifest.Filename), p.meta)
}

// saveResolutions persists changed conflict choices to .gitsurc.toml.
func (p *project) saveResolutions(resolutions map[string]string) error {
	if equalStringMaps(p.cfg.Resolutions, resolutions) {
		return nil
	}
	p.cfg.Resolutions = resolutions
	return config.Save(p.dir, p.cfg)
}

// dependencyValue renders the manifest entry for a resolved endpoint. A
// short registry name keeps just the target; full sources keep the
// "source#target" form.
func dependencyValue(ep *endpoint.Endpoint) string {
	target := ep.Target
	if ep.Source == ep.Name {
		return target
	}
	if target == "" || target == "*" {
		return ep.Source
	}
	return ep.Source + "#" + target
}

func equalStringMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// componentDir returns the deployment directory of an installed rid.
func (p *project) componentDir(rid string) string {
	return filepath.Join(p.componentsDir(), filepath.FromSlash(rid))
}

// dependants lists installed components that declare name as a
// dependency, used to warn before uninstalling something still in use.
func dependants(installed map[string]*manifest.Manifest, name string) []string {
	var out []string
	for rid, meta := range installed {
		if meta.Name == name || rid == name {
			continue
		}
		if _, ok := meta.Dependencies[name]; ok {
			out = append(out, meta.Name)
		}
	}
	sort.Strings(out)
	return out
}
