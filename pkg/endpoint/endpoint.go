// Package endpoint models decomposed dependency endpoints.
//
// An endpoint is a (source, target, name) triple: where a component comes
// from, which revision is wanted, and what the component is called. Names
// are frequently unknown until the manifest has been fetched, so every
// endpoint exposes three identity tuples recomputed whenever the name or
// source changes:
//
//   - RID keys the resolved table (logical package identity)
//   - FID keys in-flight fetch deduplication (source + target)
//   - ID keys target-list deduplication (name + source + target)
package endpoint

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// Endpoint is a decomposed dependency specification and its resolution
// state. Fields are filled in progressively: construction sets the triple,
// a successful fetch sets CanonicalDir and PkgMeta, and dissection rewrites
// Target when a wildcard is promoted.
type Endpoint struct {
	GUID string // stable identity for table keys, assigned at construction

	Source      string
	Target      string
	Name        string
	InitialName string // name as first requested, before any manifest rename
	OldName     string // previous name after a rename

	PkgMeta      *manifest.Manifest
	CanonicalDir string

	Dependants   []*Endpoint
	Dependencies map[string]*Endpoint

	Newly        bool // user-added top-level target
	Unresolvable bool // blocks stored-resolution application
	Untargetable bool // resolver cannot select among revisions

	// OriginalTarget remembers "*" before promotion to a tilde range.
	OriginalTarget string

	rid, fid, id string
	dirty        bool
}

// New creates an endpoint from an already-decomposed triple.
// The name may be empty; it is then guessed from the source.
func New(source, target, name string) *Endpoint {
	if target == "" {
		target = "*"
	}
	if name == "" {
		name = GuessName(source)
	}
	return &Endpoint{
		GUID:        uuid.NewString(),
		Source:      source,
		Target:      target,
		Name:        name,
		InitialName: name,
		dirty:       true,
	}
}

// Decompose parses a requested endpoint string of the form
// "name=source#target". Both name and target are optional; a bare "source"
// gets a wildcard target and a guessed name.
func Decompose(requested string) (*Endpoint, error) {
	if strings.TrimSpace(requested) == "" {
		return nil, errors.New(errors.EINVEP, "invalid endpoint %q", requested)
	}
	name := ""
	rest := requested
	if i := strings.Index(rest, "="); i >= 0 {
		name = strings.TrimSpace(rest[:i])
		rest = rest[i+1:]
	}
	source := rest
	target := ""
	if i := strings.LastIndex(rest, "#"); i >= 0 {
		source = rest[:i]
		target = strings.TrimSpace(rest[i+1:])
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New(errors.EINVEP, "invalid endpoint %q", requested)
	}
	return New(source, target, name), nil
}

// GuessName derives a logical name from a source address: the last path
// segment with any ".git" suffix removed.
func GuessName(source string) string {
	s := strings.TrimSuffix(strings.TrimRight(source, "/"), ".git")
	if i := strings.LastIndexAny(s, "/\\"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// normalizeSource canonicalizes a source address for identity purposes:
// scheme and ".git" suffix stripped, lowercased.
func normalizeSource(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimSuffix(strings.TrimRight(s, "/"), ".git")
	return s
}

func (e *Endpoint) compute() {
	base := e.Name
	if base == "" {
		base = normalizeSource(e.Source)
	}
	e.rid = base
	e.fid = normalizeSource(e.Source) + "#" + e.Target
	e.id = e.Name + "|" + normalizeSource(e.Source) + "#" + e.Target
	e.dirty = false
}

// RID is the resolved id: the logical-package key used across all lookup
// tables. The name when known, otherwise the normalized source.
func (e *Endpoint) RID() string {
	if e.dirty {
		e.compute()
	}
	return e.rid
}

// FID is the fetch id used to dedup in-flight fetches. Two requests for the
// same source but different targets do not share a fetch.
func (e *Endpoint) FID() string {
	if e.dirty {
		e.compute()
	}
	return e.fid
}

// ID is the strict tuple used to dedup the target list.
func (e *Endpoint) ID() string {
	if e.dirty {
		e.compute()
	}
	return e.id
}

// Rename updates the endpoint's name with the authoritative manifest name,
// recording the old one and invalidating the identity tuple.
func (e *Endpoint) Rename(name string) {
	if name == e.Name {
		return
	}
	e.OldName = e.Name
	e.Name = name
	e.dirty = true
}

// SetSource replaces the source and invalidates the identity tuple.
func (e *Endpoint) SetSource(source string) {
	e.Source = source
	e.dirty = true
}

// TargetEquals reports whether two endpoints request the same revision.
func (e *Endpoint) TargetEquals(other *Endpoint) bool {
	return e.Target == other.Target
}

// AddDependant records a dependant, deduplicating by endpoint identity.
func (e *Endpoint) AddDependant(dep *Endpoint) {
	if dep == nil {
		return
	}
	for _, d := range e.Dependants {
		if d.GUID == dep.GUID {
			return
		}
	}
	e.Dependants = append(e.Dependants, dep)
}

// MergeDependants unions another endpoint's dependants into this one.
func (e *Endpoint) MergeDependants(other *Endpoint) {
	for _, d := range other.Dependants {
		e.AddDependant(d)
	}
}

// Version returns the manifest version, or empty when unknown. The value
// is returned as the manifest states it and is not checked to be semver.
func (e *Endpoint) Version() string {
	if e.PkgMeta == nil {
		return ""
	}
	return e.PkgMeta.Version
}

// Uniquify removes duplicate endpoints from a list, keyed on name when
// known (source otherwise) plus target. The last occurrence of each key
// wins, so later respecifications override earlier ones. The operation is
// idempotent.
func Uniquify(endpoints []*Endpoint) []*Endpoint {
	seen := make(map[string]int, len(endpoints))
	out := make([]*Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		key := ep.Name
		if key == "" {
			key = normalizeSource(ep.Source)
		}
		key += "#" + ep.Target
		if i, ok := seen[key]; ok {
			out[i] = ep
			continue
		}
		seen[key] = len(out)
		out = append(out, ep)
	}
	return out
}
