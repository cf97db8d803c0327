package core

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/fsutil"
	"github.com/gitsu-io/gitsu/pkg/hooks"
	"github.com/gitsu-io/gitsu/pkg/manifest"
	"github.com/gitsu-io/gitsu/pkg/resolver"
	"github.com/gitsu-io/gitsu/pkg/semver"
)

// Fetcher materializes one endpoint revision. Satisfied by the resolver
// package's Composite.
type Fetcher interface {
	Fetch(ctx context.Context, ep *endpoint.Endpoint) (*resolver.Result, error)
}

// inflight is one running fetch. done is closed when the fetch completes,
// success or failure.
type inflight struct {
	ep        *endpoint.Endpoint
	done      chan struct{}
	completed bool
}

// pendingDep defers a parent's dependency expansion until the in-flight
// fetches it may share have completed, so the parent sees post-rename
// state.
type pendingDep struct {
	parent *endpoint.Endpoint
	waits  []*inflight
}

// Manager owns the resolution tables and drives the four phases. A
// Manager is not shared across concurrent Resolve calls.
type Manager struct {
	opts    Options
	fetcher Fetcher
	logger  *log.Logger

	mu      sync.Mutex
	working bool

	targets       []*endpoint.Endpoint
	resolved      map[string][]*endpoint.Endpoint
	installed     map[string]*manifest.Manifest
	incompatibles map[string][]*endpoint.Endpoint
	resolutions   map[string]string
	renamed       map[string]string
	conflicted    map[string]bool

	fetching   map[string][]*inflight
	nrFetching int
	pending    []*pendingDep

	failed    map[string][]error
	hasFailed bool
	firstErr  error
	failTimer *time.Timer

	dissected []*endpoint.Endpoint

	runCtx   context.Context
	finish   chan error
	finished bool
}

// NewManager creates a Manager using fetcher for transports.
func NewManager(fetcher Fetcher, opts Options) *Manager {
	opts = opts.WithDefaults()
	m := &Manager{
		opts:          opts,
		fetcher:       fetcher,
		logger:        opts.Logger,
		resolved:      map[string][]*endpoint.Endpoint{},
		installed:     map[string]*manifest.Manifest{},
		incompatibles: map[string][]*endpoint.Endpoint{},
		resolutions:   map[string]string{},
		renamed:       map[string]string{},
		conflicted:    map[string]bool{},
		failed:        map[string][]error{},
	}
	for k, v := range opts.Resolutions {
		m.resolutions[k] = v
	}
	return m
}

// Configure sets the run's inputs: the top-level targets, the previously
// installed state keyed by logical package, and endpoints a prior run
// recorded as incompatible. Newly added targets are unresolvable, which
// blocks stored resolutions from deciding their conflicts silently.
func (m *Manager) Configure(targets []*endpoint.Endpoint, installed map[string]*manifest.Manifest, incompatibles []*endpoint.Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targets = endpoint.Uniquify(targets)
	for _, t := range m.targets {
		if t.Newly {
			t.Unresolvable = true
		}
	}
	m.installed = map[string]*manifest.Manifest{}
	for rid, meta := range installed {
		m.installed[rid] = meta
	}
	m.incompatibles = map[string][]*endpoint.Endpoint{}
	for _, inc := range incompatibles {
		rid := inc.RID()
		m.incompatibles[rid] = append(m.incompatibles[rid], inc)
	}
}

// Resolve drives every target to a resolved or failed state, then elects
// one revision per logical package. A second call while one is running
// fails with EWORKING.
func (m *Manager) Resolve(ctx context.Context) error {
	m.mu.Lock()
	if m.working {
		m.mu.Unlock()
		return errors.New(errors.EWORKING, "already resolving")
	}
	m.working = true
	m.resolved = map[string][]*endpoint.Endpoint{}
	m.fetching = map[string][]*inflight{}
	m.nrFetching = 0
	m.pending = nil
	m.failed = map[string][]error{}
	m.hasFailed = false
	m.firstErr = nil
	m.conflicted = map[string]bool{}
	m.dissected = nil
	m.finished = false
	m.finish = make(chan error, 1)
	m.runCtx = ctx

	if len(m.targets) == 0 {
		// Nothing to fetch: dissect on a fresh stack to avoid reentrancy.
		m.finished = true
		go m.runDissect(ctx)
	} else {
		for _, t := range m.targets {
			m.fetchLocked(t)
		}
	}
	m.mu.Unlock()

	err := <-m.finish

	m.mu.Lock()
	if m.failTimer != nil {
		m.failTimer.Stop()
		m.failTimer = nil
	}
	m.working = false
	m.mu.Unlock()
	return err
}

// Dissected returns the endpoints elected for deployment by the last
// Resolve.
func (m *Manager) Dissected() []*endpoint.Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*endpoint.Endpoint(nil), m.dissected...)
}

// Resolutions returns the persisted conflict choices after resolution
// and garbage collection.
func (m *Manager) Resolutions() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.resolutions))
	for k, v := range m.resolutions {
		out[k] = v
	}
	return out
}

// Renamed returns the old-name to new-name mapping recorded while
// resolving. Entries accumulate across Resolve calls on the same Manager.
func (m *Manager) Renamed() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.renamed))
	for k, v := range m.renamed {
		out[k] = v
	}
	return out
}

// fetchLocked starts a fetch for ep and records it in the in-flight
// table. At most one fetch exists per fetch id; callers dedup first.
func (m *Manager) fetchLocked(ep *endpoint.Endpoint) {
	fl := &inflight{ep: ep, done: make(chan struct{})}
	m.fetching[ep.FID()] = append(m.fetching[ep.FID()], fl)
	m.nrFetching++
	m.logger.Debug("fetching", "name", ep.Name, "source", ep.Source, "target", ep.Target)
	hooks.Install().OnFetchStart(m.runCtx, ep.Name, ep.Source)
	go m.runFetch(fl)
}

func (m *Manager) runFetch(fl *inflight) {
	start := time.Now()
	res, err := m.fetcher.Fetch(m.runCtx, fl.ep)
	hooks.Install().OnFetchComplete(m.runCtx, fl.ep.Name, fl.ep.Source, time.Since(start), err)

	m.mu.Lock()
	defer m.mu.Unlock()
	fl.completed = true
	close(fl.done)
	if m.finished {
		// The run already settled (fail-fast); late completions are
		// no-ops.
		return
	}
	if err != nil {
		m.onFetchErrorLocked(fl, err)
	} else {
		m.onFetchSuccessLocked(fl, res)
	}
	m.drainPendingLocked()
	m.maybeDissectLocked()
}

func (m *Manager) removeInflightLocked(fl *inflight) {
	fid := fl.ep.FID()
	list := m.fetching[fid]
	for i, other := range list {
		if other == fl {
			m.fetching[fid] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.fetching[fid]) == 0 {
		delete(m.fetching, fid)
	}
	m.nrFetching--
}

func (m *Manager) onFetchSuccessLocked(fl *inflight, res *resolver.Result) {
	ep := fl.ep
	m.removeInflightLocked(fl)

	meta := res.PkgMeta.Clone()
	if meta == nil {
		meta = &manifest.Manifest{}
	}
	pkgName := meta.Name
	if pkgName == "" {
		pkgName = ep.Name
		meta.Name = pkgName
	}

	// The fetched manifest's name is authoritative. On first sight of a
	// rename, remember it, relocate any deployed tree and merge
	// dependants recorded under the old name.
	if pkgName != ep.Name {
		if _, seen := m.renamed[ep.Name]; !seen {
			m.renamed[ep.Name] = pkgName
			m.logger.Debug("renamed", "from", ep.Name, "to", pkgName)
			oldRID := ep.RID()
			m.moveDeployPath(oldRID, pkgName)
			for _, existing := range m.resolved[oldRID] {
				existing.MergeDependants(ep)
			}
		}
		ep.Rename(pkgName)
	}

	ep.PkgMeta = meta
	ep.CanonicalDir = res.CanonicalDir
	if !res.Targetable {
		ep.Untargetable = true
	}

	rid := ep.RID()
	list := m.resolved[rid]
	replaced := false
	for i, existing := range list {
		if existing.Source == ep.Source && existing.Target == ep.Target {
			ep.MergeDependants(existing)
			list[i] = ep
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, ep)
	}
	m.resolved[rid] = list

	m.parseDependenciesLocked(ep, meta.Dependencies)
	if !m.opts.Production {
		m.parseDependenciesLocked(ep, meta.DevDependencies)
	}

	// Endpoints a prior run recorded as incompatible with this package
	// must be fetched too, unless something already covers them.
	if incomp := m.incompatibles[rid]; len(incomp) > 0 {
		for _, inc := range incomp {
			if !m.coveredLocked(inc) {
				m.fetchLocked(inc)
			}
		}
		delete(m.incompatibles, rid)
	}
}

func (m *Manager) onFetchErrorLocked(fl *inflight, err error) {
	ep := fl.ep
	m.removeInflightLocked(fl)

	werr := errors.Wrap(codeOf(err), err, "failed to fetch %s", ep.Source)
	werr.Data = EndpointInfo{Name: ep.Name, Source: ep.Source, Target: ep.Target}
	m.failed[ep.RID()] = append(m.failed[ep.RID()], werr)
	m.logger.Error("fetch failed", "name", ep.Name, "source", ep.Source, "err", err)

	if !m.hasFailed {
		m.hasFailed = true
		m.firstErr = werr
		m.failTimer = time.AfterFunc(m.opts.FailFast, m.failFast)
	}
}

// failFast fires when fetches are still in flight long after the first
// failure; it forces dissection, which rejects with the first error.
func (m *Manager) failFast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished || m.nrFetching == 0 {
		return
	}
	m.logger.Warn("fail-fast deadline reached with fetches in flight", "inflight", m.nrFetching)
	m.nrFetching = math.MaxInt
	m.finished = true
	go m.runDissect(m.runCtx)
}

func (m *Manager) maybeDissectLocked() {
	if m.nrFetching != 0 || m.finished {
		return
	}
	m.finished = true
	go m.runDissect(m.runCtx)
}

func (m *Manager) runDissect(ctx context.Context) {
	m.mu.Lock()
	err := m.dissectLocked(ctx)
	m.mu.Unlock()
	m.finish <- err
}

// parseDependencies expands a fetched manifest's dependency map into
// child endpoints, deduplicating against resolved and in-flight work.
func (m *Manager) parseDependenciesLocked(parent *endpoint.Endpoint, deps map[string]string) {
	if len(deps) == 0 {
		return
	}
	if parent.Dependencies == nil {
		parent.Dependencies = map[string]*endpoint.Endpoint{}
	}
	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, settled := parent.Dependencies[key]; settled {
			continue
		}
		child, err := childEndpoint(key, deps[key])
		if err != nil {
			m.logger.Warn("skipping malformed dependency", "key", key, "value", deps[key], "err", err)
			continue
		}
		if newName, ok := m.renamed[child.Name]; ok {
			child.Rename(newName)
		}
		rid := child.RID()

		// Reuse an already-resolved revision when possible.
		if list := m.resolved[rid]; len(list) > 0 {
			if exact := findExactTarget(list, child); exact != nil {
				exact.AddDependant(parent)
				parent.Dependencies[key] = exact
				continue
			}
			if compat := findCompatible(list, child); compat != nil {
				child.CanonicalDir = compat.CanonicalDir
				child.PkgMeta = compat.PkgMeta
				child.Dependencies = compat.Dependencies
				child.Untargetable = compat.Untargetable
				child.AddDependant(parent)
				m.resolved[rid] = append(m.resolved[rid], child)
				parent.Dependencies[key] = child
				continue
			}
		}

		// Share an in-flight fetch: defer this parent until it lands.
		if fl := m.compatibleInflightLocked(child); fl != nil {
			m.addPendingLocked(parent, fl)
			continue
		}

		if parent.Unresolvable {
			child.Unresolvable = true
		}
		child.AddDependant(parent)
		parent.Dependencies[key] = child
		m.fetchLocked(child)
	}
}

// compatibleInflight finds a running fetch the child could share: first
// an exact fetch-id match, then any fetch for the same logical package
// with a compatible target.
func (m *Manager) compatibleInflightLocked(child *endpoint.Endpoint) *inflight {
	if list := m.fetching[child.FID()]; len(list) > 0 {
		return list[0]
	}
	rid := child.RID()
	for _, list := range m.fetching {
		for _, fl := range list {
			if fl.ep.RID() == rid && areCompatible(child, fl.ep) {
				return fl
			}
		}
	}
	return nil
}

func (m *Manager) addPendingLocked(parent *endpoint.Endpoint, fl *inflight) {
	for _, p := range m.pending {
		if p.parent.GUID == parent.GUID {
			p.waits = append(p.waits, fl)
			return
		}
	}
	m.pending = append(m.pending, &pendingDep{parent: parent, waits: []*inflight{fl}})
}

// drainPending re-parses the dependencies of parents whose waited
// fetches have all completed.
func (m *Manager) drainPendingLocked() {
	for changed := true; changed; {
		changed = false
		for i, p := range m.pending {
			ready := true
			for _, fl := range p.waits {
				if !fl.completed {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			if p.parent.PkgMeta != nil {
				m.parseDependenciesLocked(p.parent, p.parent.PkgMeta.Dependencies)
				if !m.opts.Production {
					m.parseDependenciesLocked(p.parent, p.parent.PkgMeta.DevDependencies)
				}
			}
			changed = true
			break
		}
	}
}

// covered reports whether an incompatible endpoint is already satisfied
// by a resolved or in-flight entry.
func (m *Manager) coveredLocked(ep *endpoint.Endpoint) bool {
	rid := ep.RID()
	for _, existing := range m.resolved[rid] {
		if existing.TargetEquals(ep) || areCompatible(ep, existing) {
			return true
		}
	}
	return m.compatibleInflightLocked(ep) != nil
}

// moveDeployPath relocates an installed tree after a rename, best
// effort. Empty intermediate directories left behind are pruned.
func (m *Manager) moveDeployPath(oldRID, newRID string) {
	oldDst := filepath.Join(m.opts.ComponentsDir, filepath.FromSlash(oldRID))
	newDst := filepath.Join(m.opts.ComponentsDir, filepath.FromSlash(newRID))
	if _, err := os.Stat(oldDst); err != nil {
		return
	}
	if err := fsutil.Move(oldDst, newDst); err != nil {
		m.logger.Warn("could not move renamed component", "from", oldDst, "to", newDst, "err", err)
		return
	}
	fsutil.PruneEmptyParents(oldDst, m.opts.ComponentsDir)
}

func findExactTarget(list []*endpoint.Endpoint, ep *endpoint.Endpoint) *endpoint.Endpoint {
	for _, e := range list {
		if e.TargetEquals(ep) {
			return e
		}
	}
	return nil
}

func findCompatible(list []*endpoint.Endpoint, ep *endpoint.Endpoint) *endpoint.Endpoint {
	for _, e := range list {
		if areCompatible(ep, e) {
			return e
		}
	}
	return nil
}

// EndpointFromDependency parses a manifest dependency entry into a
// resolvable endpoint, the same way the engine expands dependencies of
// fetched components.
func EndpointFromDependency(name, value string) (*endpoint.Endpoint, error) {
	return childEndpoint(name, value)
}

// childEndpoint parses one manifest dependency entry. A bare version or
// range refers to the registry name given by the key; anything else is a
// full source specification.
func childEndpoint(key, value string) (*endpoint.Endpoint, error) {
	value = trimSpace(value)
	if value == "" || value == "*" || value == "latest" {
		return endpoint.New(key, "*", key), nil
	}
	if semver.Valid(value) || semver.ValidRange(value) {
		return endpoint.New(key, value, key), nil
	}
	ep, err := endpoint.Decompose(value)
	if err != nil {
		return nil, err
	}
	ep.Rename(key)
	ep.InitialName = key
	return ep, nil
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
