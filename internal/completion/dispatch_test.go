package completion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fnord/internal/approvals"
	"fnord/internal/config"
	"fnord/internal/settings"
	"fnord/internal/tools"
	"fnord/internal/ui"
)

func newTestApprovalsEngine(t *testing.T) *approvals.Engine {
	t.Helper()
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))

	_, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	queue := ui.New(w) // a pipe is never a tty, so no TTY override needed
	t.Cleanup(func() { queue.Close(time.Second) })

	return approvals.New(store, queue, "", config.ExecutionConfig{EditMode: true})
}

// TestShellToolRoutesThroughApprovals: a /shell-category tool call that
// isn't on the read-only allow-list and has no TTY to prompt against must be
// denied rather than executed.
func TestShellToolRoutesThroughApprovals(t *testing.T) {
	registry := tools.NewRegistry()
	called := false
	if err := registry.Register(&tools.Tool{
		Name:     "shell",
		Category: tools.CategoryShell,
		Schema:   tools.ToolSchema{Required: []string{"command"}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			called = true
			return "ok", nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	client := &fakeClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "call_1", Name: "shell", Args: map[string]any{"command": "rm", "args": []any{"-rf", "/tmp/x"}}}}},
		{Text: "done"},
	}}

	loop := &Loop{
		Model:     "test-model",
		Client:    client,
		Registry:  registry,
		Approvals: newTestApprovalsEngine(t),
	}
	conv := &Conversation{ID: "conv-shell"}

	result, err := loop.Run(context.Background(), conv, "go", approvals.NewSessionState())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Fatalf("shell tool must not execute without approval")
	}

	var toolMsg *Message
	for i := range result.Messages {
		if result.Messages[i].Role == RoleTool {
			toolMsg = &result.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatalf("expected a tool error message for the denied call")
	}
	if !strings.Contains(toolMsg.Content, "non_interactive") {
		t.Errorf("got %q, want a non_interactive denial", toolMsg.Content)
	}
}

// TestReadOnlyShellToolAutoApproves: a read-only prefix clears C4 silently,
// with no TTY required, and the tool actually executes.
func TestReadOnlyShellToolAutoApproves(t *testing.T) {
	registry := tools.NewRegistry()
	if err := registry.Register(&tools.Tool{
		Name:     "shell",
		Category: tools.CategoryShell,
		Schema:   tools.ToolSchema{Required: []string{"command"}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "log output", nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	client := &fakeClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "call_1", Name: "shell", Args: map[string]any{"command": "git", "args": []any{"log", "-n", "1"}}}}},
		{Text: "done"},
	}}

	loop := &Loop{
		Model:     "test-model",
		Client:    client,
		Registry:  registry,
		Approvals: newTestApprovalsEngine(t),
	}
	conv := &Conversation{ID: "conv-readonly"}

	result, err := loop.Run(context.Background(), conv, "go", approvals.NewSessionState())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var toolMsg *Message
	for i := range result.Messages {
		if result.Messages[i].Role == RoleTool {
			toolMsg = &result.Messages[i]
		}
	}
	if toolMsg == nil || toolMsg.Content != "log output" {
		t.Fatalf("expected the read-only command to execute, got %+v", toolMsg)
	}
}
