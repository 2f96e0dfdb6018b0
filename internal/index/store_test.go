package index

import (
	"path/filepath"
	"testing"
)

func TestEntryStoreSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewEntryStore(dir)

	content := []byte("package main\n\nfunc main() {}\n")
	if err := store.Save("main.go", content, "entry point", "func main()", []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entry, err := store.Load("main.go")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry.Summary != "entry point" || entry.Outline != "func main()" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.Embedding) != 3 {
		t.Fatalf("expected 3-dim embedding, got %v", entry.Embedding)
	}
	if entry.ContentHash != hashContent(content) {
		t.Fatalf("content hash mismatch")
	}
	if !entry.IsComplete() {
		t.Fatalf("expected saved entry to be complete")
	}
}

func TestEntryStoreLoadMissingReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	store := NewEntryStore(dir)

	entry, err := store.Load("nonexistent.go")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry.ContentHash != "" || entry.IsComplete() {
		t.Fatalf("expected zero-value entry for missing path, got %+v", entry)
	}
}

func TestEntryStoreIsStaleOnContentChange(t *testing.T) {
	dir := t.TempDir()
	store := NewEntryStore(dir)

	original := []byte("v1")
	if err := store.Save("f.txt", original, "s", "o", []float32{1}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stale, err := store.IsStale("f.txt", original)
	if err != nil {
		t.Fatalf("IsStale failed: %v", err)
	}
	if stale {
		t.Fatalf("expected unchanged content to be fresh")
	}

	stale, err = store.IsStale("f.txt", []byte("v2"))
	if err != nil {
		t.Fatalf("IsStale failed: %v", err)
	}
	if !stale {
		t.Fatalf("expected changed content to be stale")
	}
}

func TestEntryStoreIsStaleForMissingEntry(t *testing.T) {
	dir := t.TempDir()
	store := NewEntryStore(dir)

	stale, err := store.IsStale("never-indexed.txt", []byte("anything"))
	if err != nil {
		t.Fatalf("IsStale failed: %v", err)
	}
	if !stale {
		t.Fatalf("expected missing entry to be stale")
	}
}

func TestEntryStoreDeleteEntry(t *testing.T) {
	dir := t.TempDir()
	store := NewEntryStore(dir)

	if err := store.Save("f.txt", []byte("v1"), "s", "o", []float32{1}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.DeleteEntry("f.txt"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	entry, err := store.Load("f.txt")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry.ContentHash != "" {
		t.Fatalf("expected entry to be gone after delete")
	}
}

func TestEntryStoreIndexingIsIdempotent(t *testing.T) {
	// Re-saving identical content twice must leave the store in the same
	// observable state (spec.md scenario: indexing idempotence).
	dir := t.TempDir()
	store := NewEntryStore(dir)
	content := []byte("package x")

	if err := store.Save("x.go", content, "s", "o", []float32{1, 2}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	first, _ := store.Load("x.go")

	if err := store.Save("x.go", content, "s", "o", []float32{1, 2}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	second, _ := store.Load("x.go")

	if first.ContentHash != second.ContentHash || first.Summary != second.Summary {
		t.Fatalf("expected idempotent re-index, got %+v vs %+v", first, second)
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	if err := writeAtomic(path, []byte("hello")); err != nil {
		t.Fatalf("writeAtomic failed: %v", err)
	}

	entries, err := filepathGlobTmp(dir)
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover temp files, found %v", entries)
	}
}

func filepathGlobTmp(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.tmp"))
}
