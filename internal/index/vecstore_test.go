package index

import (
	"context"
	"path/filepath"
	"testing"
)

func TestVecStoreUpsertAndSearch(t *testing.T) {
	dir := t.TempDir()
	v, err := OpenVecStore(filepath.Join(dir, "cache.db"), 3)
	if err != nil {
		t.Fatalf("OpenVecStore failed: %v", err)
	}
	defer v.Close()

	if err := v.Upsert("a.go", "hash-a", "does a thing", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := v.Upsert("b.go", "hash-b", "does b thing", []float32{0, 1, 0}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := v.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one search result")
	}
}

func TestVecStoreRemove(t *testing.T) {
	dir := t.TempDir()
	v, err := OpenVecStore(filepath.Join(dir, "cache.db"), 2)
	if err != nil {
		t.Fatalf("OpenVecStore failed: %v", err)
	}
	defer v.Close()

	if err := v.Upsert("a.go", "hash-a", "summary", []float32{1, 1}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := v.Remove("a.go"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	results, err := v.Search(context.Background(), []float32{1, 1}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.RelativePath == "a.go" {
			t.Fatalf("expected a.go to be removed from cache")
		}
	}
}

func TestCosineDistanceToScoreClampsAtZero(t *testing.T) {
	if got := cosineDistanceToScore(1.5); got != 0 {
		t.Fatalf("expected score clamped to 0, got %v", got)
	}
	if got := cosineDistanceToScore(0.0); got != 1.0 {
		t.Fatalf("expected distance 0 to map to score 1.0, got %v", got)
	}
}
