// Package edit implements C3's file-editing tool family -- find-hunks,
// make-patch, apply-patch, restore-backup, make-changes -- built on
// internal/diff's unified-diff machinery and generalized into the
// patch-ticket flow of spec.md §3: "{patch_id, temp_file_path} for the
// response-lifetime-only patch-and-apply flow. A patch id is valid only
// within the round that minted it; apply-patch validates liveness by file
// lookup."
package edit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ticketTTL approximates "valid only within the round that minted it".
// The Tool interface carries no round-scoped context, so round lifetime is
// approximated with a short wall-clock TTL instead; a ticket past this age
// is treated as dead even if its temp file still exists.
const ticketTTL = 15 * time.Minute

// ticket is one outstanding make-patch result awaiting apply-patch or
// discard.
type ticket struct {
	FilePath     string
	TempFilePath string
	UnifiedDiff  string
	OldContent   string
	mintedAt     time.Time
}

// PatchStore is the in-memory registry of live patch tickets, keyed by
// patch_id. One PatchStore is shared by the make-patch and apply-patch
// tools registered together.
type PatchStore struct {
	mu      sync.Mutex
	tickets map[string]*ticket
}

// NewPatchStore builds an empty store.
func NewPatchStore() *PatchStore {
	return &PatchStore{tickets: make(map[string]*ticket)}
}

// Mint registers a new ticket and returns its patch_id.
func (s *PatchStore) Mint(filePath, tempFilePath, unifiedDiff, oldContent string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[id] = &ticket{
		FilePath:     filePath,
		TempFilePath: tempFilePath,
		UnifiedDiff:  unifiedDiff,
		OldContent:   oldContent,
		mintedAt:     time.Now(),
	}
	return id
}

// Lookup returns the live ticket for a patch_id, or ok=false if it was
// never minted, already consumed, or has aged out.
func (s *PatchStore) Lookup(patchID string) (t ticket, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk, found := s.tickets[patchID]
	if !found {
		return ticket{}, false
	}
	if time.Since(tk.mintedAt) > ticketTTL {
		delete(s.tickets, patchID)
		return ticket{}, false
	}
	return *tk, true
}

// Discard removes a ticket, whether or not it was ever consumed.
func (s *PatchStore) Discard(patchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, patchID)
}
