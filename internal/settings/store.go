package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fnord/internal/ferr"
	"fnord/internal/logging"
)

// Store mediates reads and read-modify-write mutations of the settings
// document at path, using a sibling lock directory for cross-process
// exclusion.
type Store struct {
	path string

	// lockTimeout bounds how long Mutate waits to acquire the lock.
	lockTimeout time.Duration
	// staleAfter is the age past which a lock's owner file is considered
	// abandoned and reclaimed.
	staleAfter time.Duration

	mu sync.Mutex // in-process serialization point, in addition to the fs lock

	baselineOnce sync.Once
	baseline     map[string][]string // snapshot of the approvals subtree on first load
}

// NewStore returns a Store rooted at the given settings.json path.
func NewStore(path string) *Store {
	return &Store{
		path:        path,
		lockTimeout: 10 * time.Second,
		staleAfter:  60 * time.Second,
	}
}

func (s *Store) lockDir() string {
	return s.path + ".lock"
}

func (s *Store) ownerPath() string {
	return filepath.Join(s.lockDir(), "owner")
}

// lockOwner is written into the lock directory's owner file.
type lockOwner struct {
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
}

// acquireLock takes the filesystem lock, reclaiming it if the current owner
// file is older than staleAfter.
func (s *Store) acquireLock() error {
	deadline := time.Now().Add(s.lockTimeout)
	for {
		err := os.Mkdir(s.lockDir(), 0755)
		if err == nil {
			owner := lockOwner{PID: os.Getpid(), Timestamp: time.Now()}
			data, _ := json.Marshal(owner)
			if writeErr := os.WriteFile(s.ownerPath(), data, 0644); writeErr != nil {
				os.Remove(s.lockDir())
				return fmt.Errorf("%w: failed to write lock owner: %v", ferr.LockError, writeErr)
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("%w: failed to create lock directory: %v", ferr.LockError, err)
		}

		if s.reclaimIfStale() {
			continue
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: timed out waiting for settings lock %s", ferr.LockError, s.lockDir())
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// reclaimIfStale removes the lock directory if its owner file is older than
// staleAfter, or is missing/corrupt (treated as abandoned). Returns true if
// it reclaimed the lock (caller should retry acquisition).
func (s *Store) reclaimIfStale() bool {
	data, err := os.ReadFile(s.ownerPath())
	if err != nil {
		// Missing/unreadable owner file under an existing lock dir: abandoned.
		logging.SettingsWarn("settings lock %s has no readable owner file, reclaiming", s.lockDir())
		os.RemoveAll(s.lockDir())
		return true
	}
	var owner lockOwner
	if err := json.Unmarshal(data, &owner); err != nil {
		logging.SettingsWarn("settings lock %s has corrupt owner file, reclaiming", s.lockDir())
		os.RemoveAll(s.lockDir())
		return true
	}
	if time.Since(owner.Timestamp) > s.staleAfter {
		logging.SettingsWarn("settings lock %s held by pid %d is stale (age %s), reclaiming", s.lockDir(), owner.PID, time.Since(owner.Timestamp))
		os.RemoveAll(s.lockDir())
		return true
	}
	return false
}

func (s *Store) releaseLock() {
	os.RemoveAll(s.lockDir())
}

// Read loads the document without taking the lock (spec.md §4.1: "Readers
// may read without the lock").
func (s *Store) Read() (*Document, error) {
	return s.read()
}

func (s *Store) read() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			doc := newDocument()
			s.captureBaseline(doc)
			return doc, nil
		}
		return nil, fmt.Errorf("%w: failed to read settings: %v", ferr.ConfigError, err)
	}

	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse settings: %v", ferr.ConfigError, err)
	}
	if doc.Projects == nil {
		doc.Projects = make(map[string]*ProjectRecord)
	}
	if doc.Approvals == nil {
		doc.Approvals = make(map[string][]string)
	}
	if doc.MCPServers == nil {
		doc.MCPServers = make(map[string]MCPServerConfig)
	}

	migrate(doc, data)
	normalizeApprovals(doc.Approvals)
	for _, proj := range doc.Projects {
		if proj.Approvals != nil {
			normalizeApprovals(proj.Approvals)
		}
	}

	s.captureBaseline(doc)
	return doc, nil
}

// migrate moves non-reserved top-level keys under projects, per spec.md
// §4.1. It reparses the raw JSON because Document's struct tags already
// dropped anything that isn't projects/approvals/mcp_servers/version; any
// stray top-level project-shaped entry must be recovered from raw.
func migrate(doc *Document, raw []byte) {
	if len(doc.Projects) > 0 {
		return // already migrated
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return
	}

	migrated := false
	for key, value := range generic {
		if reservedTopLevelKeys[key] {
			continue
		}
		var rec ProjectRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			continue
		}
		if doc.Projects == nil {
			doc.Projects = make(map[string]*ProjectRecord)
		}
		recCopy := rec
		doc.Projects[key] = &recCopy
		migrated = true
	}
	if migrated {
		doc.Version = CurrentVersion
	}
}

// captureBaseline snapshots the approvals subtree on first load only, per
// spec.md §9 ("self-healing approvals").
func (s *Store) captureBaseline(doc *Document) {
	s.baselineOnce.Do(func() {
		s.baseline = make(map[string][]string, len(doc.Approvals))
		for kind, items := range doc.Approvals {
			cp := make([]string, len(items))
			copy(cp, items)
			s.baseline[kind] = cp
		}
	})
}

// heal unions the captured baseline back into doc.Approvals if a mutation
// would otherwise have emptied a previously non-empty list. This is the
// invariant from spec.md §3/§4.1/§9: approvals should never shrink to empty
// as a side effect of a racing writer's unrelated mutation.
func (s *Store) heal(doc *Document) {
	for kind, baseItems := range s.baseline {
		if len(baseItems) == 0 {
			continue
		}
		current := doc.Approvals[kind]
		if len(current) > 0 {
			continue
		}
		merged := make([]string, len(baseItems))
		copy(merged, baseItems)
		doc.Approvals[kind] = sortAndDedup(merged)
	}
}

// Mutate acquires the lock, reads the document, applies fn, heals and
// normalises approvals, writes atomically, and releases the lock.
func (s *Store) Mutate(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquireLock(); err != nil {
		return err
	}
	defer s.releaseLock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	normalizeApprovals(doc.Approvals)
	for _, proj := range doc.Projects {
		if proj.Approvals != nil {
			normalizeApprovals(proj.Approvals)
		}
	}
	s.heal(doc)

	return s.writeAtomic(doc)
}

// writeAtomic writes doc to a sibling temp file and renames over path.
func (s *Store) writeAtomic(doc *Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create settings directory: %v", ferr.ConfigError, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal settings: %v", ferr.ConfigError, err)
	}

	tmp, err := os.CreateTemp(dir, "settings-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp settings file: %v", ferr.ConfigError, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write temp settings file: %v", ferr.ConfigError, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp settings file: %v", ferr.ConfigError, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: failed to chmod temp settings file: %v", ferr.ConfigError, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: failed to rename settings file: %v", ferr.ConfigError, err)
	}
	logging.SettingsDebug("wrote settings document to %s", s.path)
	return nil
}
