package registry

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gitsu-io/gitsu/pkg/errors"
)

// FileStore persists registry entries in one JSON file. Suitable for the
// self-hosted single-instance registry; mutations rewrite the whole file
// under a lock.
type FileStore struct {
	path string

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewFileStore opens (or creates) the store at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: map[string]Entry{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(errors.EINTERNAL, err, "corrupt registry store %s", path)
	}
	for _, e := range entries {
		s.entries[e.Name] = e
	}
	return s, nil
}

// Get returns the entry for name.
func (s *FileStore) Get(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// Put registers or overwrites an entry and persists the store.
func (s *FileStore) Put(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Name] = entry
	return s.flushLocked()
}

// Search returns entries whose name contains query, sorted by name.
func (s *FileStore) Search(query string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if strings.Contains(e.Name, query) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *FileStore) flushLocked() error {
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
