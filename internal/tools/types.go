// Package tools provides the one interface uniting Fnord's three tool
// families: built-ins, remote tools discovered from MCP servers, and
// frob subprocess integrations.
//
// Architecture:
//
//	Completion round → Registry.GetByCategory()/Get() → Tool.Call()
package tools

import (
	"context"
	"fmt"
)

// ToolCategory classifies tools for discovery and listing purposes.
type ToolCategory string

const (
	// CategorySearch covers semantic search and ripgrep.
	CategorySearch ToolCategory = "/search"

	// CategoryFile covers file info/read/list and the editing family
	// (find-hunks, make-patch, apply-patch, restore-backup, make-changes).
	CategoryFile ToolCategory = "/file"

	// CategoryGit covers grep, show, diff, pickaxe, list-branches,
	// unstaged-changes.
	CategoryGit ToolCategory = "/git"

	// CategoryShell covers arbitrary shell command execution.
	CategoryShell ToolCategory = "/shell"

	// CategoryProject covers strategy/notes/memory/task-list CRUD.
	CategoryProject ToolCategory = "/project"

	// CategoryRemote is for tools installed from an MCP server, named
	// "<server>_<tool>".
	CategoryRemote ToolCategory = "/remote"

	// CategoryFrob is for tools discovered from a frob directory.
	CategoryFrob ToolCategory = "/frob"

	// CategoryScriptlet is for user-authored yaegi scriptlet tools.
	CategoryScriptlet ToolCategory = "/scriptlet"

	// CategoryGeneral is for tools that don't fit the above.
	CategoryGeneral ToolCategory = "/general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
// This enables LLM tool calling with proper validation.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// Returns the result string and any error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// ArgError is the structured error ReadArgs returns for a malformed
// argument, distinguishing a missing key from one present but invalid.
type ArgError struct {
	Missing bool
	Invalid bool
	Key     string
	Reason  string
}

func (e *ArgError) Error() string {
	if e.Missing {
		return fmt.Sprintf("missing required argument %q", e.Key)
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Key, e.Reason)
}

// AvailabilityFunc probes whether a tool can run in the current
// environment (e.g. a binary is on PATH, a server is reachable).
type AvailabilityFunc func(ctx context.Context) bool

// ArgsFunc normalises raw model-provided arguments, or returns an *ArgError.
type ArgsFunc func(args map[string]any) (map[string]any, error)

// NoteFunc renders a human-readable label for the UI queue.
type NoteFunc func(args map[string]any) string

// ResultNoteFunc renders a human-readable label once a call has completed.
type ResultNoteFunc func(args map[string]any, result string) string

// Tool is the one interface behind which built-in, MCP-discovered remote,
// and frob tools all present themselves identically to the completion
// loop: spec, availability, async-safety, argument normalisation, the call
// itself, and UI labelling for request/result.
type Tool struct {
	// Name is the unique identifier for the tool, e.g. "semantic_search" or
	// "<server>_<tool>" for an MCP-discovered remote tool.
	Name string

	// Description explains what the tool does.
	// Used for LLM tool calling and documentation.
	Description string

	// Category classifies the tool for discovery and listing.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Priority is used when multiple tools match.
	// Higher priority tools are preferred (default 50).
	Priority int

	// RequiresContext indicates if the tool needs session context.
	RequiresContext bool

	// IsAvailableFunc backs IsAvailable; nil means always available.
	IsAvailableFunc AvailabilityFunc

	// AsyncSafe is true when invocations of this tool are mutually
	// independent and can be dispatched concurrently within a round
	// (spec.md §4.3 "async?()"). Tools that mutate shared state (file
	// edits, shell commands with side effects) should leave this false.
	AsyncSafe bool

	// ReadArgsFunc backs ReadArgs; nil falls back to schema-required-key
	// validation only.
	ReadArgsFunc ArgsFunc

	// UINoteOnRequestFunc backs UINoteOnRequest; nil falls back to the
	// tool name.
	UINoteOnRequestFunc NoteFunc

	// UINoteOnResultFunc backs UINoteOnResult; nil falls back to a generic
	// "<name> completed" label.
	UINoteOnResultFunc ResultNoteFunc

	// RequiresApproval marks a tool whose calls must clear C4's edit
	// workflow before Call runs (spec.md §4.6 step 3: "edit, shell,
	// write-file, apply-patch"). Shell-category tools are always routed
	// through the shell workflow regardless of this flag; this flag is
	// for CategoryFile tools in the editing family (apply-patch and
	// friends) that mutate the filesystem.
	RequiresApproval bool
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	copy := *t
	copy.Priority = priority
	return &copy
}

// Spec returns the tool's declarative schema, per spec.md §4.3 "spec()".
func (t *Tool) Spec() ToolSchema {
	return t.Schema
}

// IsAvailable probes whether the tool's environment/capability
// prerequisites are met, per spec.md §4.3 "is_available?()".
func (t *Tool) IsAvailable(ctx context.Context) bool {
	if t.IsAvailableFunc == nil {
		return true
	}
	return t.IsAvailableFunc(ctx)
}

// Async reports whether invocations of this tool are mutually independent,
// per spec.md §4.3 "async?()".
func (t *Tool) Async() bool {
	return t.AsyncSafe
}

// ReadArgs normalises raw model-provided arguments, returning an *ArgError
// for a missing or invalid key, per spec.md §4.3 "read_args(args)".
func (t *Tool) ReadArgs(args map[string]any) (map[string]any, error) {
	for _, required := range t.Schema.Required {
		if _, ok := args[required]; !ok {
			return nil, &ArgError{Missing: true, Key: required}
		}
	}
	if t.ReadArgsFunc != nil {
		return t.ReadArgsFunc(args)
	}
	return args, nil
}

// Call runs the tool, returning its result or error, per spec.md §4.3
// "call(args)".
func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return t.Execute(ctx, args)
}

// UINoteOnRequest renders a human-readable label for the pending call, per
// spec.md §4.3 "ui_note_on_request(args)".
func (t *Tool) UINoteOnRequest(args map[string]any) string {
	if t.UINoteOnRequestFunc != nil {
		return t.UINoteOnRequestFunc(args)
	}
	return t.Name
}

// UINoteOnResult renders a human-readable label once the call has
// completed, per spec.md §4.3 "ui_note_on_result(args, result)".
func (t *Tool) UINoteOnResult(args map[string]any, result string) string {
	if t.UINoteOnResultFunc != nil {
		return t.UINoteOnResultFunc(args, result)
	}
	return t.Name + " completed"
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the string output from the tool.
	Result string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
