// Package convstore persists C6 conversations to disk at
// "<project>/conversations/<uuid>.json", per spec.md §6's project store
// layout, and serves the `conversations`/`ask --follow/--fork` CLI surface.
// Grounded on internal/tools/project/store.go's atomic-write idiom
// (temp-file-then-rename, plain os.ReadDir slug listing).
package convstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"fnord/internal/completion"
)

// Store roots every project's conversation files under home/<project>/conversations.
type Store struct {
	Home string
}

// NewStore builds a Store rooted at home (conventionally ~/.fnord).
func NewStore(home string) *Store {
	return &Store{Home: home}
}

func (s *Store) dir(project string) string {
	return filepath.Join(s.Home, project, "conversations")
}

func (s *Store) path(project, id string) string {
	return filepath.Join(s.dir(project), id+".json")
}

// New creates a fresh, empty conversation, per spec.md §3 "a conversation is
// created implicitly on first response".
func New() *completion.Conversation {
	return &completion.Conversation{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}
}

// Fork copies src's history up to and including the given message index
// into a new conversation with a fresh id, per spec.md §3 "forked by
// copying the history up to a point". index < 0 copies the whole history.
func Fork(src *completion.Conversation, index int) *completion.Conversation {
	messages := src.Messages
	if index >= 0 && index < len(messages) {
		messages = messages[:index+1]
	}
	copied := make([]completion.Message, len(messages))
	copy(copied, messages)
	return &completion.Conversation{
		ID:                 uuid.New().String(),
		Messages:           copied,
		Timestamp:          time.Now().UTC(),
		LongTermMemoryHash: src.LongTermMemoryHash,
	}
}

// Save writes conv atomically to its project's conversations directory.
func (s *Store) Save(project string, conv *completion.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", conv.ID, err)
	}
	dir := s.dir(project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	target := s.path(project, conv.ID)
	tmp, err := os.CreateTemp(dir, conv.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmpPath, target)
}

// Load reads one conversation by id.
func (s *Store) Load(project, id string) (*completion.Conversation, error) {
	data, err := os.ReadFile(s.path(project, id))
	if err != nil {
		return nil, err
	}
	var conv completion.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Summary is the listing shape `conversations` reports. List still loads
// each full conversation to fill it in.
type Summary struct {
	ID        string
	Timestamp time.Time
	Messages  int
}

// List returns every conversation in a project, newest first.
func (s *Store) List(project string) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir(project))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read conversations dir: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		conv, err := s.Load(project, id)
		if err != nil {
			continue
		}
		out = append(out, Summary{ID: conv.ID, Timestamp: conv.Timestamp, Messages: len(conv.Messages)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Prune deletes every conversation older than olderThanDays, returning how
// many it removed, per spec.md §6's "conversations --project P [--prune DAYS]".
func (s *Store) Prune(project string, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	summaries, err := s.List(project)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, sum := range summaries {
		if sum.Timestamp.After(cutoff) {
			continue
		}
		if err := os.Remove(s.path(project, sum.ID)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove conversation %s: %w", sum.ID, err)
		}
		removed++
	}
	return removed, nil
}
