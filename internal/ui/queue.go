// Package ui implements fnord's C5 component: a single-consumer, two-tier
// message queue that owns all terminal I/O. Producers — the completion loop,
// tool calls, the background indexer, spinner timers — enqueue work instead
// of writing to the terminal directly, so a spinner frame never overwrites a
// prompt and a tool's log line never splits an approval dialog.
package ui

import (
	"bufio"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"fnord/internal/logging"
)

// ErrNoTTY is returned by interactive operations (prompts, choose) when the
// queue is not attached to a terminal, per spec.md §4.5.
var ErrNoTTY = errors.New("no tty")

// job is one unit of consumer work. It runs on the single consumer
// goroutine; render must not block. Prompts and choices read stdin on
// goroutines of their own, not inside a job.
type job struct {
	render func()
}

// Queue is the single-consumer, two-priority-tier message queue.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	high   []job
	normal []job

	// interactionDepth > 0 means an interaction currently owns the
	// consumer; the normal tier is not drained until it returns to zero.
	interactionDepth int

	closed   bool
	drained  chan struct{}
	consumed sync.WaitGroup

	quiet bool
	isTTY bool
	out   *os.File
	in    *os.File

	// stdin is one buffered reader shared by every prompt/choose call;
	// each call reads it on a goroutine of its own, not on the consumer.
	stdinOnce sync.Once
	stdin     *bufio.Reader
}

// stdinReader lazily wraps q.in in a buffered reader on first use.
func (q *Queue) stdinReader() *bufio.Reader {
	q.stdinOnce.Do(func() {
		q.stdin = bufio.NewReader(q.in)
	})
	return q.stdin
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithQuiet suppresses Log output; LogError still renders. Render, Choose,
// PromptText and a spinner on a terminal do not consult it.
func WithQuiet(quiet bool) Option {
	return func(q *Queue) { q.quiet = quiet }
}

// WithInput overrides the stream read by interactive prompts; tests use it
// to feed scripted responses instead of the real os.Stdin.
func WithInput(in *os.File) Option {
	return func(q *Queue) { q.in = in }
}

// WithForceTTY overrides TTY detection. Piped test fixtures are never real
// terminals, so tests exercising the interactive path force this true.
func WithForceTTY(tty bool) Option {
	return func(q *Queue) { q.isTTY = tty }
}

// New starts a Queue and its consumer goroutine, writing to out (normally
// os.Stdout). isatty.IsTerminal(out.Fd()) determines whether interactive
// operations are available at all.
func New(out *os.File, opts ...Option) *Queue {
	q := &Queue{
		out:     out,
		in:      os.Stdin,
		isTTY:   isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
		drained: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

// IsTTY reports whether the queue's output stream is a terminal.
func (q *Queue) IsTTY() bool { return q.isTTY }

// Quiet reports whether quiet mode is active.
func (q *Queue) Quiet() bool { return q.quiet }

func (q *Queue) run() {
	for {
		q.mu.Lock()
		for !q.closed && len(q.high) == 0 && (q.interactionDepth > 0 || len(q.normal) == 0) {
			q.cond.Wait()
		}
		if q.closed && len(q.high) == 0 && len(q.normal) == 0 {
			q.mu.Unlock()
			close(q.drained)
			return
		}
		var j job
		if len(q.high) > 0 {
			j, q.high = q.high[0], q.high[1:]
		} else {
			j, q.normal = q.normal[0], q.normal[1:]
		}
		q.mu.Unlock()

		j.render()
		q.consumed.Done()
	}
}

// enqueueHigh pushes a job onto the interaction tier.
func (q *Queue) enqueueHigh(render func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.consumed.Add(1)
	q.high = append(q.high, job{render: render})
	q.cond.Broadcast()
	q.mu.Unlock()
}

// enqueueNormal pushes a log/output job onto the normal tier. It always
// queues, even mid-interaction, and drains FIFO once the interaction ends.
func (q *Queue) enqueueNormal(render func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.consumed.Add(1)
	q.normal = append(q.normal, job{render: render})
	q.cond.Broadcast()
	q.mu.Unlock()
}

// beginInteraction marks an interaction as owning the consumer; it returns
// once the caller is free to enqueue interaction jobs.
func (q *Queue) beginInteraction() {
	q.mu.Lock()
	q.interactionDepth++
	q.mu.Unlock()
}

// endInteraction releases the consumer back to the normal tier.
func (q *Queue) endInteraction() {
	q.mu.Lock()
	q.interactionDepth--
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Close signals shutdown and waits, up to deadline, for the queue to drain.
// Per spec.md §4.5 "Cancellation": sends after Close return without error
// and are simply dropped (enqueueHigh/enqueueNormal become no-ops once
// q.closed is set).
func (q *Queue) Close(deadline time.Duration) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.consumed.Wait()
		close(done)
	}()

	select {
	case <-done:
		<-q.drained
	case <-time.After(deadline):
		logging.UIWarn("shutdown drain deadline exceeded, %d messages dropped", q.pendingCount())
	}
}

func (q *Queue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.high) + len(q.normal)
}
