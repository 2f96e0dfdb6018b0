package completion

import (
	"context"
	"fmt"
	"sync"

	"fnord/internal/approvals"
	"fnord/internal/logging"
	"fnord/internal/tools"
	"fnord/internal/ui"
)

// DefaultMaxRounds bounds a single Run invocation absent an explicit
// caller-supplied limit (spec.md §4.6 step 5, "bounded rounds").
const DefaultMaxRounds = 25

// Loop is C6: the multi-round completion loop. One Loop is built per
// fnord invocation and shared across every conversation it drives.
type Loop struct {
	Model      string
	Client     Client
	Classifier Classifier
	Registry   *tools.Registry
	Approvals  *approvals.Engine
	Queue      *ui.Queue
	Interrupts *InterruptQueue
	MaxRounds  int

	fileLocks sync.Map // file_path -> *sync.Mutex
}

// Result is what Run returns: the updated message slice (including
// whatever was appended this call) plus truncation status.
type Result struct {
	Messages  []Message
	Truncated bool
}

func (l *Loop) maxRounds() int {
	if l.MaxRounds > 0 {
		return l.MaxRounds
	}
	return DefaultMaxRounds
}

func (l *Loop) toolSpecs() []ToolSpec {
	all := l.Registry.All()
	specs := make([]ToolSpec, 0, len(all))
	for _, t := range all {
		specs = append(specs, ToolSpec{Name: t.Name, Description: t.Description, Schema: t.Spec()})
	}
	return specs
}

// Run drives conv through as many rounds as it takes to reach a terminal
// text response, dispatching tool calls each round, up to maxRounds.
// sess carries forward C4's session-scoped approvals across the whole
// call the way spec.md §4.4 describes "state'".
func (l *Loop) Run(ctx context.Context, conv *Conversation, userPrompt string, sess *approvals.SessionState) (*Result, error) {
	if sess == nil {
		sess = approvals.NewSessionState()
	}

	l.applyAutoTimestamp(ctx, conv, userPrompt)
	conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: userPrompt})

	for round := 0; round < l.maxRounds(); round++ {
		l.drainInterrupts(conv, userPrompt)

		resp, err := l.Client.Complete(ctx, l.Model, conv.Messages, l.toolSpecs())
		if err != nil {
			return nil, fmt.Errorf("completion round %d: %w", round, err)
		}

		if len(resp.ToolCalls) == 0 {
			// Covers both a genuine terminal text response and the
			// "empty text after tool calls" edge case — either way
			// there's nothing further to dispatch, so the round ends.
			conv.Messages = append(conv.Messages, Message{Role: RoleAssistant, Content: resp.Text})
			return &Result{Messages: conv.Messages}, nil
		}

		conv.Messages = append(conv.Messages, Message{Role: RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})

		toolMsgs := l.dispatchRound(ctx, resp.ToolCalls, sess)
		conv.Messages = append(conv.Messages, toolMsgs...)
	}

	logging.CompletionWarn("conversation %s hit round limit %d without a terminal response", conv.ID, l.maxRounds())
	return &Result{Messages: conv.Messages, Truncated: true}, nil
}

// drainInterrupts implements step 1 and literal scenario S6: interjections
// queued between rounds are appended as user messages, followed by the
// original prompt once more, in that exact order.
func (l *Loop) drainInterrupts(conv *Conversation, originalPrompt string) {
	if l.Interrupts == nil {
		return
	}
	pending := l.Interrupts.Drain(conv.ID)
	if len(pending) == 0 {
		return
	}
	for _, text := range pending {
		conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: "[User Interjection] " + text})
	}
	conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: originalPrompt})
}

// applyAutoTimestamp implements step 6: classify the new prompt against
// the tail of history and, on "new", insert a timestamp marker message
// ahead of it.
func (l *Loop) applyAutoTimestamp(ctx context.Context, conv *Conversation, userPrompt string) {
	if l.Classifier == nil || len(conv.Messages) == 0 {
		return
	}
	tail := conv.Messages
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	verdict, err := l.Classifier.ClassifyNewOrContinue(ctx, tail, userPrompt)
	if err != nil {
		logging.CompletionWarn("auto-timestamp classification failed: %v", err)
		return
	}
	if verdict == "new" {
		conv.Messages = append(conv.Messages, Message{Role: RoleSystem, Content: timestampMarker()})
	}
}
