// Package manifest reads and writes gitsu.json component manifests.
//
// A component ships a gitsu.json describing its name, version and
// dependencies. Once deployed, the manager keeps a dot-prefixed copy
// (.gitsu.json) next to the component's files, enriched with underscore
// annotations recording how the component was obtained. The presence of
// .gitsu.json.new next to an existing install signals an in-place update:
// the deployer swaps the metadata without copying files.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gitsu-io/gitsu/pkg/errors"
)

const (
	// Filename is the manifest name inside a component source tree.
	Filename = "gitsu.json"

	// DotFilename is the deployed metadata file written by the deployer.
	DotFilename = ".gitsu.json"

	// NewFilename signals a pending in-place update next to an install.
	NewFilename = ".gitsu.json.new"

	// CustomFilename is always preserved across redeployments.
	CustomFilename = "gitsu.custom.json"
)

// Resolution records how a conflict for this component was settled.
type Resolution struct {
	Type string `json:"type"`
}

// Manifest is the gitsu.json schema, including the underscore annotations
// the deployer writes into .gitsu.json.
type Manifest struct {
	Name            string            `json:"name,omitempty"`
	Version         string            `json:"version,omitempty"`
	Main            any               `json:"main,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	Ignore          []string          `json:"ignore,omitempty"`
	Keep            []string          `json:"keep,omitempty"`
	Resolutions     map[string]string `json:"resolutions,omitempty"`

	// Annotations written by the deployer.
	Release        string      `json:"_release,omitempty"`
	Source         string      `json:"_source,omitempty"`
	Target         string      `json:"_target,omitempty"`
	OriginalSource string      `json:"_originalSource,omitempty"`
	Direct         bool        `json:"_direct,omitempty"`
	Resolution     *Resolution `json:"_resolution,omitempty"`
}

// Read loads a manifest from an explicit file path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.EMANIFEST, err, "invalid manifest %s", path)
	}
	return &m, nil
}

// ReadDir loads the manifest of a component source directory, preferring
// gitsu.json and falling back to .gitsu.json. A missing manifest is not an
// error: an empty manifest is returned so dependency-less components work.
func ReadDir(dir string) (*Manifest, error) {
	for _, name := range []string{Filename, DotFilename} {
		m, err := Read(filepath.Join(dir, name))
		if err == nil {
			return m, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return &Manifest{}, nil
}

// ReadInstalled loads the deployed .gitsu.json of an installed component.
// Returns nil with no error when the component has no metadata file.
func ReadInstalled(dir string) (*Manifest, error) {
	m, err := Read(filepath.Join(dir, DotFilename))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Write stores the manifest pretty-printed at path.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	out := *m
	out.Dependencies = cloneMap(m.Dependencies)
	out.DevDependencies = cloneMap(m.DevDependencies)
	out.Resolutions = cloneMap(m.Resolutions)
	out.Ignore = append([]string(nil), m.Ignore...)
	out.Keep = append([]string(nil), m.Keep...)
	if m.Resolution != nil {
		r := *m.Resolution
		out.Resolution = &r
	}
	return &out
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
