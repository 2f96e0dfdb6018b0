package ui

import (
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"fnord/internal/logging"
)

// Spinner is a sustained interaction: it owns the consumer (via
// BeginInteraction) for its entire lifetime, repainting one line until
// Stop. Off a TTY it degrades to a single info line emitted once, per
// spec.md §4.5.
type Spinner struct {
	ia      *Interaction
	q       *Queue
	bar     *progressbar.ProgressBar
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped atomic.Bool
	label   string
}

// NewSpinner starts a spinner under label. Call Stop when the underlying
// work completes; Stop is idempotent.
func (q *Queue) NewSpinner(label string) *Spinner {
	s := &Spinner{q: q, label: label, stopCh: make(chan struct{}), doneCh: make(chan struct{})}

	if !q.isTTY {
		q.Log(logging.CategoryUI, label+" ...")
		close(s.doneCh)
		s.stopped.Store(true)
		return s
	}

	s.ia = q.BeginInteraction()
	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(q.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)

	go s.run()
	return s
}

func (s *Spinner) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			done := make(chan struct{})
			s.q.enqueueHigh(func() {
				s.bar.Add(1)
				close(done)
			})
			<-done
		}
	}
}

// UpdateLabel changes the spinner's description line.
func (s *Spinner) UpdateLabel(label string) {
	s.label = label
	if s.bar == nil {
		return
	}
	done := make(chan struct{})
	s.q.enqueueHigh(func() {
		s.bar.Describe(label)
		close(done)
	})
	<-done
}

// Stop ends the spinner interaction. The last spinner frame is not cleared;
// finalMsg, if non-empty, follows it as a normal-tier log line.
func (s *Spinner) Stop(finalMsg string) {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	if s.ia != nil {
		s.ia.End()
	}
	if finalMsg != "" {
		s.q.Log(logging.CategoryUI, finalMsg)
	}
}
