package scriptlet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists scriptlet definitions to disk so they survive process
// restarts, the way SPEC_FULL.md describes the `config {frobs}` CLI
// surface gaining "a scriptlet registration path alongside the
// process-based frob path" -- a scriptlet is registered once via config
// and then loaded on every subsequent startup, same as a frob directory.
type Store struct {
	Dir string
}

// NewStore roots a Store at dir (conventionally <home>/scriptlets).
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// Save writes def to disk, keyed by its Name.
func (s *Store) Save(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("scriptlet name is required")
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scriptlet: %w", err)
	}
	return os.WriteFile(s.path(def.Name), data, 0644)
}

// Load reads one scriptlet definition by name.
func (s *Store) Load(name string) (Definition, error) {
	var def Definition
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("unmarshal scriptlet %s: %w", name, err)
	}
	return def, nil
}

// Delete removes a saved scriptlet.
func (s *Store) Delete(name string) error {
	return os.Remove(s.path(name))
}

// LoadAll reads every saved scriptlet definition.
func (s *Store) LoadAll() ([]Definition, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Dir, err)
	}
	var defs []Definition
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".json")]
		def, err := s.Load(name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}
