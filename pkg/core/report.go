package core

import (
	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/manifest"
)

// EndpointInfo is the wire-shaped identity of an endpoint, attached to
// error payloads and embedded in reports.
type EndpointInfo struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// ComponentReport describes one deployed component and, recursively, the
// components it depends on.
type ComponentReport struct {
	Endpoint     EndpointInfo                `json:"endpoint"`
	CanonicalDir string                      `json:"canonicalDir,omitempty"`
	PkgMeta      *manifest.Manifest          `json:"pkgMeta,omitempty"`
	Dependencies map[string]*ComponentReport `json:"dependencies,omitempty"`
	NrDependants int                         `json:"nrDependants"`
}

// Report builds the installation report for a set of deployed endpoints.
// The dependency trees are cycle-guarded: a child already present in the
// ancestor chain is omitted rather than recursed into.
func Report(deployed []*endpoint.Endpoint) map[string]*ComponentReport {
	out := make(map[string]*ComponentReport, len(deployed))
	for _, ep := range deployed {
		out[ep.RID()] = reportFor(ep, map[string]bool{ep.RID(): true})
	}
	return out
}

func reportFor(ep *endpoint.Endpoint, ancestors map[string]bool) *ComponentReport {
	r := &ComponentReport{
		Endpoint:     EndpointInfo{Name: ep.Name, Source: ep.Source, Target: ep.Target},
		CanonicalDir: ep.CanonicalDir,
		PkgMeta:      ep.PkgMeta,
		NrDependants: len(ep.Dependants),
	}
	if len(ep.Dependencies) == 0 {
		return r
	}
	r.Dependencies = make(map[string]*ComponentReport, len(ep.Dependencies))
	for key, child := range ep.Dependencies {
		rid := child.RID()
		if ancestors[rid] {
			continue
		}
		ancestors[rid] = true
		r.Dependencies[key] = reportFor(child, ancestors)
		delete(ancestors, rid)
	}
	return r
}
