package index

import (
	"context"
	"strings"
	"testing"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, relativePath string, content []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeOutliner struct {
	outline string
	err     error
}

func (f *fakeOutliner) Outline(ctx context.Context, relativePath string, content []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.outline, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }
func (f *fakeEmbedder) Name() string    { return "fake" }

func TestComposeEmbeddingInputMatchesTemplate(t *testing.T) {
	input := composeEmbeddingInput("src/a.go", "does a thing", "func A()", []byte("package a"))
	if !strings.HasPrefix(input, "# File\n`src/a.go`\n\n## Summary\ndoes a thing\n\n## Outline\nfunc A()\n\n## Contents\n```\npackage a") {
		t.Fatalf("unexpected embedding input: %q", input)
	}
}

func TestPipelineIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root+"/main.go", "package main\n\nfunc main() {}\n")
	storeDir := t.TempDir()

	p := &Pipeline{
		Project:    &Project{Name: "p", SourceRoot: root},
		Store:      NewEntryStore(storeDir),
		Summarizer: &fakeSummarizer{summary: "entry point"},
		Outliner:   &fakeOutliner{outline: "func main()"},
		Embedder:   &fakeEmbedder{vec: []float32{0.1, 0.2}},
	}

	if err := p.IndexFile(context.Background(), "main.go"); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	entry, err := p.Store.Load("main.go")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry.Summary != "entry point" || entry.Outline != "func main()" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.IsComplete() {
		t.Fatalf("expected complete entry after pipeline run")
	}
}

func TestPipelineIndexAllSkipsNonStaleAndCollectsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root+"/ok.go", "package ok")
	writeFile(t, root+"/missing.go", "package missing")
	storeDir := t.TempDir()

	p := &Pipeline{
		Project:    &Project{Name: "p", SourceRoot: root},
		Store:      NewEntryStore(storeDir),
		Summarizer: &fakeSummarizer{summary: "s"},
		Outliner:   &fakeOutliner{outline: "o"},
		Embedder:   &fakeEmbedder{vec: []float32{1}},
	}

	failed := p.IndexAll(context.Background(), []string{"ok.go"}, false)
	if len(failed) != 0 {
		t.Fatalf("expected no failures on first pass, got %v", failed)
	}

	// Re-running without force should skip the now-fresh entry (no error,
	// since IsStale will be false and the pipeline never touches it again).
	failed = p.IndexAll(context.Background(), []string{"ok.go"}, false)
	if len(failed) != 0 {
		t.Fatalf("expected fresh entry to be skipped cleanly, got failures %v", failed)
	}

	// A file that was deleted out from under the project should surface as
	// a per-entry failure without aborting the run.
	failed = p.IndexAll(context.Background(), []string{"does-not-exist.go"}, true)
	if len(failed) != 1 || failed[0] != "does-not-exist.go" {
		t.Fatalf("expected missing file to fail without aborting, got %v", failed)
	}
}
