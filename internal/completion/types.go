// Package completion implements fnord's C6 component: the multi-round
// completion loop that drives a model through a conversation, dispatching
// tool calls (gated by C4) and rendering progress through C5, until it
// produces a terminal text response or exhausts its round budget.
package completion

import (
	"context"
	"time"

	"fnord/internal/tools"
)

// Role is a conversation message's role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRequest is one tool invocation the model asked for.
type ToolCallRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one entry of a Conversation's history, per spec.md §3's
// {role, content, tool_calls?, tool_call_id?, name?}.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCallRequest // set on an assistant message that invoked tools
	ToolCallID string            // set on a tool message, correlating to the request
	Name       string            // tool name, set on a tool message
}

// Conversation is the per-invocation state C6 operates over: an ordered
// message history plus the metadata spec.md §3 attaches to it.
type Conversation struct {
	ID                 string
	Messages           []Message
	Timestamp          time.Time
	LongTermMemoryHash string
}

// ToolSpec is what gets submitted to the model alongside messages: a
// tool's name, description, and argument schema, derived from a
// *tools.Tool at dispatch time rather than duplicated storage.
type ToolSpec struct {
	Name        string
	Description string
	Schema      tools.ToolSchema
}

// Usage captures token usage for one model request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the completion capability's answer to one round's request,
// per spec.md §4.6 step 2: either a terminal text response or a set of
// tool calls to dispatch.
type Response struct {
	Text      string
	ToolCalls []ToolCallRequest
	Usage     Usage
}

// Client is the model-facing side of the completion loop. Implementations
// wrap a specific provider (Gemini, Anthropic, OpenAI); the loop itself is
// provider-agnostic.
type Client interface {
	Complete(ctx context.Context, model string, messages []Message, toolSpecs []ToolSpec) (*Response, error)
}

// Classifier backs step 6, "auto-timestamping": a lightweight auxiliary
// model call deciding whether the new user prompt continues the existing
// conversation or starts a new topic.
type Classifier interface {
	ClassifyNewOrContinue(ctx context.Context, tail []Message, prompt string) (string, error)
}
