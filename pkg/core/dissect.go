package core

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/hooks"
	"github.com/gitsu-io/gitsu/pkg/manifest"
	"github.com/gitsu-io/gitsu/pkg/semver"
)

// dissectLocked elects exactly one revision per logical package and
// filters the elections down to the set that actually needs deployment.
// A failed run rejects with the first recorded fetch error instead.
func (m *Manager) dissectLocked(ctx context.Context) error {
	if m.hasFailed {
		return m.firstErr
	}

	rids := make([]string, 0, len(m.resolved))
	for rid := range m.resolved {
		rids = append(rids, rid)
	}
	sort.Strings(rids)

	elected := make(map[string]*endpoint.Endpoint, len(rids))
	for _, rid := range rids {
		list := m.resolved[rid]
		if len(list) == 0 {
			continue
		}

		semvers, nonSemvers := partition(list)
		sortSemvers(semvers)
		for _, ep := range semvers {
			if ep.Newly && ep.Target == "*" && !ep.Untargetable {
				ep.OriginalTarget = ep.Target
				ep.Target = semver.Tilde(ep.Version())
			}
		}

		pick := electSuitable(semvers, nonSemvers)
		if pick == nil {
			var err error
			pick, err = m.resolveConflictLocked(ctx, rid, list)
			if err != nil {
				return err
			}
		}
		elected[rid] = pick
	}

	// Resolutions for packages that no longer conflict are stale.
	for rid := range m.resolutions {
		if !m.conflicted[rid] {
			delete(m.resolutions, rid)
		}
	}

	m.dissected = m.filterNeedsDeploy(elected)
	return nil
}

// partition splits a resolved list into endpoints carrying a semver
// manifest version and the rest.
func partition(list []*endpoint.Endpoint) (semvers, nonSemvers []*endpoint.Endpoint) {
	for _, ep := range list {
		if semver.Valid(ep.Version()) {
			semvers = append(semvers, ep)
		} else {
			nonSemvers = append(nonSemvers, ep)
		}
	}
	return semvers, nonSemvers
}

// sortSemvers orders candidates by version descending. Wildcard targets
// sort after concrete ones at equal versions so explicit requests win.
func sortSemvers(semvers []*endpoint.Endpoint) {
	sort.SliceStable(semvers, func(i, j int) bool {
		c := semver.Compare(semvers[i].Version(), semvers[j].Version())
		if c != 0 {
			return c > 0
		}
		return semvers[i].Target != "*" && semvers[j].Target == "*"
	})
}

// electSuitable picks the single agreeable revision, or nil on conflict.
// A lone unversioned candidate wins by default; among versioned ones the
// winner is any candidate whose version satisfies every other target.
func electSuitable(semvers, nonSemvers []*endpoint.Endpoint) *endpoint.Endpoint {
	if len(semvers) == 0 {
		if len(nonSemvers) == 1 {
			return nonSemvers[0]
		}
		return nil
	}
	if len(nonSemvers) > 0 {
		return nil
	}
	for _, candidate := range semvers {
		ok := true
		for _, other := range semvers {
			if other == candidate {
				continue
			}
			if !targetAccepts(other.Target, candidate.Version()) {
				ok = false
				break
			}
		}
		if ok {
			return candidate
		}
	}
	return nil
}

func targetAccepts(target, version string) bool {
	switch {
	case semver.Valid(target):
		return semver.Eq(target, version)
	case semver.ValidRange(target):
		return semver.Satisfies(version, target)
	}
	return false
}

// resolveConflictLocked settles a multi-candidate package: stored
// resolutions first, then the force-latest policy, then the injected
// prompt. Non-interactive runs without a policy fail with ECONFLICT.
func (m *Manager) resolveConflictLocked(ctx context.Context, rid string, picks []*endpoint.Endpoint) (*endpoint.Endpoint, error) {
	m.conflicted[rid] = true
	picks = append([]*endpoint.Endpoint(nil), picks...)
	sortPicks(picks)
	hooks.Install().OnConflict(ctx, rid, len(picks))

	unresolvable := false
	for _, p := range picks {
		if p.Unresolvable {
			unresolvable = true
			break
		}
	}

	if stored, ok := m.resolutions[rid]; ok && !unresolvable {
		if pick := matchResolution(picks, stored); pick != nil {
			m.logger.Debug("conflict settled by stored resolution", "name", rid, "resolution", stored)
			return pick, nil
		}
		m.logger.Warn("stored resolution matches no candidate", "name", rid, "resolution", stored)
	}

	if m.opts.ForceLatest {
		pick := picks[len(picks)-1]
		m.storeResolution(rid, pick)
		m.logger.Debug("conflict settled by force-latest", "name", rid, "target", pick.Target)
		return pick, nil
	}

	if !m.opts.Interactive || m.opts.Prompt == nil {
		err := errors.New(errors.ECONFLICT, "unable to find suitable version for %s", rid)
		err.Data = picksInfo(picks)
		return nil, err
	}

	choice, persist, err := m.opts.Prompt(ctx, rid, picks)
	if err != nil {
		return nil, err
	}
	if choice < 0 || choice >= len(picks) {
		return nil, errors.New(errors.ECONFLICT, "invalid choice for %s", rid)
	}
	pick := picks[choice]
	if persist {
		m.storeResolution(rid, pick)
	}
	return pick, nil
}

// sortPicks orders conflict candidates for presentation and the
// force-latest policy: version ascending, versioned after unversioned,
// more dependants first among the otherwise equal.
func sortPicks(picks []*endpoint.Endpoint) {
	sort.SliceStable(picks, func(i, j int) bool {
		vi, vj := picks[i].Version(), picks[j].Version()
		switch {
		case vi != "" && vj != "":
			if c := semver.Compare(vi, vj); c != 0 {
				return c < 0
			}
		case vi == "" && vj != "":
			return true
		case vi != "" && vj == "":
			return false
		}
		return len(picks[i].Dependants) > len(picks[j].Dependants)
	})
}

// matchResolution finds the candidate a stored resolution refers to:
// range satisfaction first, then exact target or release equality.
func matchResolution(picks []*endpoint.Endpoint, stored string) *endpoint.Endpoint {
	if semver.ValidRange(stored) {
		for _, p := range picks {
			if v := p.Version(); v != "" && semver.Satisfies(v, stored) {
				return p
			}
		}
	}
	for _, p := range picks {
		if p.Target == stored {
			return p
		}
		if p.PkgMeta != nil && p.PkgMeta.Release != "" && p.PkgMeta.Release == stored {
			return p
		}
	}
	return nil
}

// storeResolution persists a conflict choice. Wildcard targets pin the
// fetched release so the choice survives upstream movement.
func (m *Manager) storeResolution(rid string, pick *endpoint.Endpoint) {
	value := pick.Target
	if value == "*" {
		if pick.PkgMeta != nil && pick.PkgMeta.Release != "" {
			value = pick.PkgMeta.Release
		}
	}
	m.resolutions[rid] = value
}

// filterNeedsDeploy drops elected endpoints that are already in place:
// components resolved straight out of their deployed directory with no
// pending in-place update, and installs whose recorded metadata already
// matches the election.
func (m *Manager) filterNeedsDeploy(elected map[string]*endpoint.Endpoint) []*endpoint.Endpoint {
	rids := make([]string, 0, len(elected))
	for rid := range elected {
		rids = append(rids, rid)
	}
	sort.Strings(rids)

	var out []*endpoint.Endpoint
	for _, rid := range rids {
		ep := elected[rid]
		dst := filepath.Join(m.opts.ComponentsDir, filepath.FromSlash(rid))
		if ep.CanonicalDir == dst {
			if _, err := os.Stat(filepath.Join(dst, manifest.NewFilename)); err != nil {
				continue
			}
		}
		if !m.opts.Force && m.installedMatches(rid, ep) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// installedMatches reports whether the recorded install metadata already
// describes the elected revision.
func (m *Manager) installedMatches(rid string, ep *endpoint.Endpoint) bool {
	meta := m.installed[rid]
	if meta == nil {
		return false
	}
	if meta.Target != ep.Target {
		return false
	}
	originalSource := ""
	if ep.PkgMeta != nil {
		originalSource = ep.PkgMeta.OriginalSource
	}
	if originalSource == "" {
		originalSource = ep.Source
	}
	if meta.OriginalSource != "" && meta.OriginalSource != originalSource {
		return false
	}
	if ep.PkgMeta != nil && ep.PkgMeta.Release != "" && meta.Release != ep.PkgMeta.Release {
		return false
	}
	return true
}

// picksInfo summarizes conflict candidates for error payloads.
func picksInfo(picks []*endpoint.Endpoint) []EndpointInfo {
	out := make([]EndpointInfo, len(picks))
	for i, p := range picks {
		out[i] = EndpointInfo{Name: p.Name, Source: p.Source, Target: p.Target}
	}
	return out
}
