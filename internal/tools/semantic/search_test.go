package semantic

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"fnord/internal/index"
)

type fakeEmbedder struct{ vec []float32 }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}
func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}
func (f fakeEmbedder) Dimensions() int { return len(f.vec) }
func (f fakeEmbedder) Name() string    { return "fake" }

func TestSemanticSearchReturnsUpsertedEntry(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vec.sqlite")
	store, err := index.OpenVecStore(dbPath, 3)
	if err != nil {
		t.Fatalf("OpenVecStore: %v", err)
	}
	defer store.Close()

	vec := []float32{0.1, 0.2, 0.3}
	if err := store.Upsert("auth/login.go", "hash1", "handles user login", vec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	tool := SearchTool(fakeEmbedder{vec: vec}, store)
	out, err := tool.Call(context.Background(), map[string]any{"query": "how does login work"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(out, "auth/login.go") {
		t.Fatalf("expected matching file in output, got %q", out)
	}
}

func TestSemanticSearchMissingQueryFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vec.sqlite")
	store, err := index.OpenVecStore(dbPath, 3)
	if err != nil {
		t.Fatalf("OpenVecStore: %v", err)
	}
	defer store.Close()

	tool := SearchTool(fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}, store)
	if _, err := tool.Call(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error for missing query")
	}
}
