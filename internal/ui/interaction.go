package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fnord/internal/logging"
)

var (
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Interaction is a high-priority-tier unit bracketed by BeginInteraction and
// End: a spinner lifecycle, a prompt, an approval dialog. While it is open,
// the consumer does not drain the normal tier, so log output emitted by any
// producer during the interaction is deferred until End (spec.md §4.5,
// invariant §8.5).
type Interaction struct {
	q *Queue
}

// BeginInteraction opens a new high-priority interaction on q.
func (q *Queue) BeginInteraction() *Interaction {
	q.beginInteraction()
	return &Interaction{q: q}
}

// End closes the interaction, releasing the consumer back to the normal
// tier. Safe to call once; calling twice double-decrements interactionDepth
// and is a caller bug, not guarded against here (mirrors a plain mutex
// Unlock contract).
func (ia *Interaction) End() {
	ia.q.endInteraction()
}

// Render renders an arbitrary framed block (an approval dialog, a diff) as
// one interaction frame. It blocks until the frame has been written.
func (ia *Interaction) Render(body string) {
	done := make(chan struct{})
	ia.q.enqueueHigh(func() {
		fmt.Fprintln(ia.q.out, body)
		close(done)
	})
	<-done
}

// Choice is one option offered by Choose/Prompt.
type Choice struct {
	Label   string
	Default bool
}

// Choose renders a titled box of choices and returns the selected label.
// Returns ErrNoTTY immediately, without enqueuing anything, if the queue
// is not attached to a terminal (spec.md §4.5 "Non-TTY & quiet mode"). If
// ctx carries a deadline (C4's auto-policy timing) and it elapses before
// the user responds, Choose resolves to autoChoice rather than erroring —
// an auto-policy is a decision, not a failure.
func (ia *Interaction) Choose(ctx context.Context, title string, choices []Choice, autoChoice string) (string, error) {
	if !ia.q.isTTY {
		return "", ErrNoTTY
	}

	rendered := make(chan struct{})
	ia.q.enqueueHigh(func() {
		var b strings.Builder
		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n")
		for i, c := range choices {
			marker := " "
			if c.Default {
				marker = "*"
			}
			fmt.Fprintf(&b, "%s %d) %s\n", marker, i+1, c.Label)
		}
		fmt.Fprint(ia.q.out, boxStyle.Render(b.String()))
		fmt.Fprint(ia.q.out, "\n> ")
		close(rendered)
	})
	<-rendered

	// The stdin read happens off the consumer goroutine: if ctx's deadline
	// (the auto-policy timer) elapses first, Choose must return immediately
	// without leaving the single consumer wedged on a read nobody is
	// waiting for anymore.
	type result struct {
		choice string
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		line, err := ia.q.stdinReader().ReadString('\n')
		if err != nil {
			resCh <- result{"", err}
			return
		}
		line = strings.TrimSpace(line)
		for _, c := range choices {
			if strings.EqualFold(line, c.Label) {
				resCh <- result{c.Label, nil}
				return
			}
		}
		resCh <- result{autoChoice, nil}
	}()

	select {
	case r := <-resCh:
		return r.choice, r.err
	case <-ctx.Done():
		return autoChoice, nil
	}
}

// PromptText asks the user for a free-form line of input, defaulting to def
// if the user enters nothing. Used by C4's "Approve persistently" flow to
// collect a pattern and scope.
func (ia *Interaction) PromptText(ctx context.Context, label, def string) (string, error) {
	if !ia.q.isTTY {
		return "", ErrNoTTY
	}

	rendered := make(chan struct{})
	ia.q.enqueueHigh(func() {
		if def != "" {
			fmt.Fprintf(ia.q.out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(ia.q.out, "%s: ", label)
		}
		close(rendered)
	})
	<-rendered

	type result struct {
		text string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		line, err := ia.q.stdinReader().ReadString('\n')
		if err != nil {
			resCh <- result{"", err}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			line = def
		}
		resCh <- result{line, nil}
	}()

	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Log emits a line on the normal tier: queued FIFO, drained once no
// interaction owns the consumer. Suppressed entirely in quiet mode,
// whatever the level; LogError is the call that renders in quiet mode.
func (q *Queue) Log(level logging.Category, text string) {
	if q.quiet {
		return
	}
	q.enqueueNormal(func() {
		fmt.Fprintln(q.out, text)
	})
}

// LogError always renders, even in quiet mode, per spec.md §4.5 "quiet mode
// ... except for errors".
func (q *Queue) LogError(text string) {
	q.enqueueNormal(func() {
		fmt.Fprintln(q.out, text)
	})
}
