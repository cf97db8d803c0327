package core

import (
	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/semver"
)

// areCompatible decides whether candidate can share resolved's revision.
// It is consulted both when a new requirement might reuse an already
// resolved endpoint and when an in-flight fetch might be shared.
//
// When the resolved endpoint already carries a concrete manifest version,
// that version is authoritative: the candidate's target is checked against
// it. Before a version is known the targets themselves are compared; two
// ranges are compatible when their strongest upper bounds agree, because
// the tighter constraint dominates whichever revision gets picked. Lower
// bounds are deliberately not compared.
func areCompatible(candidate, resolved *endpoint.Endpoint) bool {
	if candidate.Target == resolved.Target {
		return true
	}

	if v := resolved.Version(); v != "" {
		switch {
		case semver.Valid(candidate.Target):
			return semver.Eq(candidate.Target, v)
		case semver.ValidRange(candidate.Target):
			return semver.Satisfies(v, candidate.Target)
		}
		return false
	}

	cVersion := semver.Valid(candidate.Target)
	cRange := semver.ValidRange(candidate.Target)
	rVersion := semver.Valid(resolved.Target)
	rRange := semver.ValidRange(resolved.Target)

	switch {
	case cVersion && rVersion:
		return semver.Eq(candidate.Target, resolved.Target)
	case cVersion && rRange:
		return semver.Satisfies(candidate.Target, resolved.Target)
	case cRange && rVersion:
		return semver.Satisfies(resolved.Target, candidate.Target)
	case cRange && rRange:
		a, okA := semver.HighestCap(candidate.Target)
		b, okB := semver.HighestCap(resolved.Target)
		return okA && okB && a.Equal(b)
	}
	return false
}
