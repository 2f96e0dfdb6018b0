// Package index implements fnord's C2 component: an on-disk,
// content-addressed store of per-file derivatives (summary, outline,
// embedding) with staleness detection and atomic entry writes.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Entry is one per-source-file record, per spec.md §3: "{relative_path,
// content_hash, summary, outline, embedding_vector, last_indexed_at}".
type Entry struct {
	RelativePath  string    `json:"relative_path"`
	ContentHash   string    `json:"content_hash"`
	Summary       string    `json:"summary"`
	Outline       string    `json:"outline"`
	Embedding     []float32 `json:"embedding_vector"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
}

// hashContent returns the hex sha256 of the given file content, used both
// for the entry's content_hash and to key its on-disk directory.
func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// hashPath derives the directory name an entry's artifacts live under, a
// hash of its relative path (spec.md §3: "Stored in a per-file directory
// keyed by a hash of the relative path").
func hashPath(relativePath string) string {
	sum := sha256.Sum256([]byte(relativePath))
	return hex.EncodeToString(sum[:])
}

// IsComplete reports whether all three derivatives are present. Per spec.md
// §3's invariant, a partially-present entry is treated as stale by readers
// regardless of hash match.
func (e *Entry) IsComplete() bool {
	return e.Summary != "" && e.Outline != "" && len(e.Embedding) > 0
}
