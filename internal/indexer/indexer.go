// Package indexer implements fnord's C7 component: a supervised,
// non-restarting background worker that keeps a project's index fresh one
// file at a time, without competing with the foreground for HTTP
// concurrency. Grounded on the teacher's internal/mcp/client.go connection-
// lifecycle idiom (a mutex-guarded map of live work plus a status
// callback), generalized here to a single in-flight file task instead of a
// server connection.
package indexer

import (
	"context"
	"sync"

	"fnord/internal/httppool"
	"fnord/internal/index"
	"fnord/internal/logging"
)

// Status is reported to an optional caller-supplied callback as the
// indexer's state machine transitions, mirroring the teacher's
// onServerStatus callback shape.
type Status struct {
	Project  string
	InFlight string // relative path currently being processed, "" if idle
	Pending  int    // length of the explicit pending queue (fsnotify-pushed)
	Done     int    // files successfully indexed this run
	Failed   int    // files that errored this run
}

// StatusFunc receives a Status snapshot on every state transition.
type StatusFunc func(Status)

// Indexer is C7: one instance per project, started and stopped by the
// foreground around an `ask` invocation.
type Indexer struct {
	pipeline *index.Pipeline
	onStatus StatusFunc

	mu       sync.Mutex
	running  bool
	pending  []string // explicit, fsnotify-pushed dirty files
	inFlight string
	done     int
	failed   int
	cancel   context.CancelFunc
	stopped  chan struct{}
}

// New builds an Indexer around an already-wired index.Pipeline. onStatus
// may be nil.
func New(pipeline *index.Pipeline, onStatus StatusFunc) *Indexer {
	return &Indexer{pipeline: pipeline, onStatus: onStatus}
}

// Notify pushes a file onto the explicit pending queue -- the hook an
// fsnotify watcher calls when it sees a write under the project's source
// root, per spec.md §4.7's "newly-staled files are picked up" without
// waiting for the next full scan.
func (ix *Indexer) Notify(relativePath string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, p := range ix.pending {
		if p == relativePath {
			return
		}
	}
	ix.pending = append(ix.pending, relativePath)
}

// Start launches the supervisor loop in the background. Calling Start on an
// already-running Indexer is a no-op.
func (ix *Indexer) Start(ctx context.Context) {
	ix.mu.Lock()
	if ix.running {
		ix.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	ix.running = true
	ix.cancel = cancel
	ix.stopped = make(chan struct{})
	ix.mu.Unlock()

	httppool.SetActive(httppool.Background)
	logging.Indexer("starting background indexer for project %s (pool=%s)", ix.pipeline.Project.Name, httppool.ActiveName())

	go ix.run(runCtx)
}

// Stop kills the in-flight file task immediately and clears the HTTP pool
// override, per spec.md §4.7 step 4. Idempotent: a second call, or a call
// on an Indexer that never started, is a no-op.
func (ix *Indexer) Stop() {
	ix.mu.Lock()
	if !ix.running {
		ix.mu.Unlock()
		return
	}
	cancel := ix.cancel
	stopped := ix.stopped
	ix.mu.Unlock()

	cancel()
	<-stopped

	httppool.ClearActive()
	logging.Indexer("stopped background indexer for project %s", ix.pipeline.Project.Name)
}

func (ix *Indexer) run(ctx context.Context) {
	defer func() {
		ix.mu.Lock()
		ix.running = false
		ix.inFlight = ""
		close(ix.stopped)
		ix.mu.Unlock()
		httppool.ClearActive()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rel, ok, err := ix.nextFile()
		if err != nil {
			logging.IndexerWarn("scan for stale entries failed: %v", err)
			return
		}
		if !ok {
			return
		}

		ix.mu.Lock()
		ix.inFlight = rel
		ix.mu.Unlock()
		ix.reportStatus()

		err = ix.pipeline.IndexFile(ctx, rel)

		ix.mu.Lock()
		ix.inFlight = ""
		if err != nil {
			ix.failed++
			logging.IndexerWarn("indexing %s failed: %v", rel, err)
		} else {
			ix.done++
		}
		ix.mu.Unlock()
		ix.reportStatus()
	}
}

// nextFile implements step 3's dynamic pick: the explicit pending queue
// (fed by fsnotify) is drained first; once empty, the project's full file
// list is rescanned for the next entry that's still stale. No list is ever
// pre-queued wholesale -- a fresh scan happens on every empty-queue pick, so
// a file that went stale mid-run is seen on the very next pick.
func (ix *Indexer) nextFile() (string, bool, error) {
	ix.mu.Lock()
	if len(ix.pending) > 0 {
		rel := ix.pending[0]
		ix.pending = ix.pending[1:]
		ix.mu.Unlock()
		return rel, true, nil
	}
	ix.mu.Unlock()

	files, err := ix.pipeline.Project.SourceFiles()
	if err != nil {
		return "", false, err
	}
	for _, rel := range files {
		content, err := ix.pipeline.Store.ReadSourceFile(ix.pipeline.Project.SourceRoot, rel)
		if err != nil {
			continue
		}
		stale, err := ix.pipeline.Store.IsStale(rel, content)
		if err != nil || !stale {
			continue
		}
		return rel, true, nil
	}
	return "", false, nil
}

func (ix *Indexer) reportStatus() {
	if ix.onStatus == nil {
		return
	}
	ix.mu.Lock()
	s := Status{
		Project:  ix.pipeline.Project.Name,
		InFlight: ix.inFlight,
		Pending:  len(ix.pending),
		Done:     ix.done,
		Failed:   ix.failed,
	}
	ix.mu.Unlock()
	ix.onStatus(s)
}
