package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fnord/internal/index"
)

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(ctx context.Context, relativePath string, content []byte) (string, error) {
	return "summary of " + relativePath, nil
}

type fakeOutliner struct{}

func (fakeOutliner) Outline(ctx context.Context, relativePath string, content []byte) (string, error) {
	return "outline of " + relativePath, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}
func (fakeEmbedder) Dimensions() int { return 2 }
func (fakeEmbedder) Name() string    { return "fake" }

func newTestPipeline(t *testing.T, root string) *index.Pipeline {
	t.Helper()
	return &index.Pipeline{
		Project:    &index.Project{Name: "p", SourceRoot: root},
		Store:      index.NewEntryStore(t.TempDir()),
		Summarizer: fakeSummarizer{},
		Outliner:   fakeOutliner{},
		Embedder:   fakeEmbedder{},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// TestIndexerProcessesAllStaleFilesThenStops verifies the dynamic-scan
// pick (no file list pre-queued) eventually indexes every stale file and
// the run loop exits on its own once nothing is left stale.
func TestIndexerProcessesAllStaleFilesThenStops(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a")
	writeFile(t, filepath.Join(root, "b.go"), "package b")

	pipeline := newTestPipeline(t, root)

	var statuses []Status
	ix := New(pipeline, func(s Status) { statuses = append(statuses, s) })
	ix.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		ix.mu.Lock()
		done := ix.done
		running := ix.running
		ix.mu.Unlock()
		if done == 2 {
			break
		}
		if !running {
			t.Fatalf("indexer stopped before indexing both files (done=%d)", done)
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for both files to index, done=%d", done)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if len(statuses) == 0 {
		t.Fatalf("expected at least one status callback")
	}
}

// TestIndexerNotifyTakesPriorityOverScan: an explicitly notified file is
// picked before the dynamic rescan would otherwise find it.
func TestIndexerNotifyTakesPriorityOverScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "z.go"), "package z")
	pipeline := newTestPipeline(t, root)

	ix := New(pipeline, nil)
	ix.Notify("z.go")

	rel, ok, err := ix.nextFile()
	if err != nil {
		t.Fatalf("nextFile: %v", err)
	}
	if !ok || rel != "z.go" {
		t.Fatalf("expected pending-queue file z.go first, got %q ok=%v", rel, ok)
	}
	// Once drained, the pending queue is empty and a dynamic scan takes over.
	ix.mu.Lock()
	pendingLen := len(ix.pending)
	ix.mu.Unlock()
	if pendingLen != 0 {
		t.Fatalf("expected pending queue drained, got len=%d", pendingLen)
	}
}

// TestIndexerStopIsIdempotent: calling Stop twice, or before any Start,
// never panics or blocks.
func TestIndexerStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	pipeline := newTestPipeline(t, root)
	ix := New(pipeline, nil)

	ix.Stop() // never started
	ix.Stop()

	ix.Start(context.Background())
	ix.Stop()
	ix.Stop()
}

// TestIndexerStopCancelsInFlight verifies Stop returns promptly even while
// a file task is in flight, by blocking the summarizer until ctx is
// cancelled.
type blockingSummarizer struct{ unblocked chan struct{} }

func (b blockingSummarizer) Summarize(ctx context.Context, relativePath string, content []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.unblocked:
		return "summary", nil
	}
}

func TestIndexerStopCancelsInFlight(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "slow.go"), "package slow")

	pipeline := newTestPipeline(t, root)
	pipeline.Summarizer = blockingSummarizer{unblocked: make(chan struct{})} // never closed

	ix := New(pipeline, nil)
	ix.Start(context.Background())

	// Give the loop a moment to pick up the in-flight file.
	deadline := time.After(time.Second)
	for {
		ix.mu.Lock()
		inFlight := ix.inFlight
		ix.mu.Unlock()
		if inFlight != "" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for in-flight task to start")
		case <-time.After(2 * time.Millisecond):
		}
	}

	stopped := make(chan struct{})
	go func() {
		ix.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return promptly while a task was in flight")
	}
}
