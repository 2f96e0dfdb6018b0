package completion

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"fnord/internal/tools"
)

// fakeClient scripts a sequence of Responses, one per call to Complete.
type fakeClient struct {
	mu        sync.Mutex
	responses []*Response
	calls     int
	seen      [][]Message
}

func (f *fakeClient) Complete(ctx context.Context, model string, messages []Message, toolSpecs []ToolSpec) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	f.seen = append(f.seen, snapshot)
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func registryWithAsyncTools(t *testing.T, delays map[string]time.Duration) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for name, delay := range delays {
		name, delay := name, delay
		err := r.Register(&tools.Tool{
			Name:     name,
			Category: tools.CategoryGeneral,
			AsyncSafe: true,
			Schema:   tools.ToolSchema{},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				time.Sleep(delay)
				return name + "-result", nil
			},
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	return r
}

// TestS5ToolCallOrderPreserved: three async tool calls T1,T2,T3 complete in
// order T2,T3,T1 but must appear in history in their original order, each
// with the correct tool_call_id.
func TestS5ToolCallOrderPreserved(t *testing.T) {
	registry := registryWithAsyncTools(t, map[string]time.Duration{
		"T1": 30 * time.Millisecond,
		"T2": 5 * time.Millisecond,
		"T3": 15 * time.Millisecond,
	})

	client := &fakeClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{
			{ID: "call_1", Name: "T1"},
			{ID: "call_2", Name: "T2"},
			{ID: "call_3", Name: "T3"},
		}},
		{Text: "done"},
	}}

	loop := &Loop{Model: "test-model", Client: client, Registry: registry}
	conv := &Conversation{ID: "conv-s5"}

	result, err := loop.Run(context.Background(), conv, "go", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Truncated {
		t.Fatalf("unexpected truncation")
	}

	var toolMsgs []Message
	for _, m := range result.Messages {
		if m.Role == RoleTool {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 3 {
		t.Fatalf("expected 3 tool messages, got %d", len(toolMsgs))
	}
	wantIDs := []string{"call_1", "call_2", "call_3"}
	wantNames := []string{"T1", "T2", "T3"}
	for i, m := range toolMsgs {
		if m.ToolCallID != wantIDs[i] {
			t.Errorf("tool message %d: got tool_call_id %q, want %q", i, m.ToolCallID, wantIDs[i])
		}
		if m.Name != wantNames[i] {
			t.Errorf("tool message %d: got name %q, want %q", i, m.Name, wantNames[i])
		}
		if m.Content != wantNames[i]+"-result" {
			t.Errorf("tool message %d: got content %q, want %q", i, m.Content, wantNames[i]+"-result")
		}
	}
}

// TestS6InterruptDrainOrdering: two interjections "a" and "b" enqueued
// between rounds must appear, in order, immediately before the re-appended
// original prompt, and the interrupt queue must be empty afterwards.
func TestS6InterruptDrainOrdering(t *testing.T) {
	client := &fakeClient{responses: []*Response{
		{Text: "ack"},
	}}
	interrupts := NewInterruptQueue()
	interrupts.Enqueue("conv-s6", "a")
	interrupts.Enqueue("conv-s6", "b")

	loop := &Loop{
		Model:      "test-model",
		Client:     client,
		Registry:   tools.NewRegistry(),
		Interrupts: interrupts,
	}
	conv := &Conversation{ID: "conv-s6"}

	_, err := loop.Run(context.Background(), conv, "original prompt", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(client.seen) != 1 {
		t.Fatalf("expected exactly one Complete call, got %d", len(client.seen))
	}
	sent := client.seen[0]
	if len(sent) < 3 {
		t.Fatalf("expected at least 3 messages sent to the model, got %d", len(sent))
	}
	tail := sent[len(sent)-3:]
	if tail[0].Content != "[User Interjection] a" {
		t.Errorf("got %q, want interjection a first", tail[0].Content)
	}
	if tail[1].Content != "[User Interjection] b" {
		t.Errorf("got %q, want interjection b second", tail[1].Content)
	}
	if tail[2].Content != "original prompt" {
		t.Errorf("got %q, want the original prompt re-appended last", tail[2].Content)
	}

	if drained := interrupts.Drain("conv-s6"); len(drained) != 0 {
		t.Errorf("interrupt queue should be empty after drain, got %v", drained)
	}
}

func TestEmptyTextAfterToolCallsIsTerminal(t *testing.T) {
	registry := registryWithAsyncTools(t, map[string]time.Duration{"T1": 0})
	client := &fakeClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "call_1", Name: "T1"}}},
		{Text: ""},
	}}
	loop := &Loop{Model: "test-model", Client: client, Registry: registry}
	conv := &Conversation{ID: "conv-empty"}

	result, err := loop.Run(context.Background(), conv, "go", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Truncated {
		t.Fatalf("empty text after tool calls must be terminal, not a truncation")
	}
	if client.calls != 2 {
		t.Fatalf("expected exactly 2 rounds, got %d", client.calls)
	}
}

func TestBoundedRoundsSetsTruncated(t *testing.T) {
	registry := registryWithAsyncTools(t, map[string]time.Duration{"T1": 0})
	responses := make([]*Response, 0, 5)
	for i := 0; i < 5; i++ {
		responses = append(responses, &Response{ToolCalls: []ToolCallRequest{{ID: "call", Name: "T1"}}})
	}
	client := &fakeClient{responses: responses}
	loop := &Loop{Model: "test-model", Client: client, Registry: registry, MaxRounds: 5}
	conv := &Conversation{ID: "conv-bounded"}

	result, err := loop.Run(context.Background(), conv, "go", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Truncated {
		t.Fatalf("expected Truncated after exhausting MaxRounds")
	}
	if client.calls != 5 {
		t.Fatalf("expected exactly MaxRounds calls, got %d", client.calls)
	}
}

func TestUnknownToolProducesErrorMessage(t *testing.T) {
	client := &fakeClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "call_1", Name: "nonexistent"}}},
		{Text: "done"},
	}}
	loop := &Loop{Model: "test-model", Client: client, Registry: tools.NewRegistry()}
	conv := &Conversation{ID: "conv-unknown"}

	result, err := loop.Run(context.Background(), conv, "go", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var toolMsg *Message
	for i := range result.Messages {
		if result.Messages[i].Role == RoleTool {
			toolMsg = &result.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatalf("expected a tool message for the unknown call")
	}
	if !strings.Contains(toolMsg.Content, "unknown tool") {
		t.Errorf("got %q, want an unknown-tool error message", toolMsg.Content)
	}
}

func TestSanitizeAndTruncate(t *testing.T) {
	invalid := "valid\xff\xfebytes"
	cleaned := sanitizeAndTruncate(invalid)
	if !strings.Contains(cleaned, "valid") {
		t.Errorf("sanitized result lost valid content: %q", cleaned)
	}

	oversized := strings.Repeat("x", maxToolResultBytes+100)
	truncated := sanitizeAndTruncate(oversized)
	if !strings.HasSuffix(truncated, "…[truncated]") {
		t.Errorf("expected truncation suffix, got suffix %q", truncated[len(truncated)-20:])
	}
	if len(truncated) >= len(oversized) {
		t.Errorf("expected truncated result shorter than input")
	}
}
