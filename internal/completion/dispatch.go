package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"fnord/internal/approvals"
	"fnord/internal/logging"
	"fnord/internal/tools"
	"fnord/internal/ui"
)

// uiSpinner is a type alias so this file reads naturally; the completion
// loop's only dependency on C5 is this one type.
type uiSpinner = ui.Spinner

// maxToolResultBytes bounds how much of a tool's result is kept in
// history; spec.md §4.6 "a tool result larger than an implementation-
// defined threshold is truncated". The full result still reaches C5.
const maxToolResultBytes = 32 * 1024

// dispatchRound partitions calls into async and sync sets by the tools'
// Async() flag, runs the async set concurrently and the sync set
// serially (both running concurrently with each other, since they touch
// disjoint result slots), and returns one tool Message per call in the
// model's original order (spec.md §4.6 step 3-4, invariant §8 property 3,
// literal scenario S5).
func (l *Loop) dispatchRound(ctx context.Context, calls []ToolCallRequest, sess *approvals.SessionState) []Message {
	results := make([]Message, len(calls))

	var eg errgroup.Group
	for i, call := range calls {
		if !l.isAsync(call.Name) {
			continue
		}
		i, call := i, call
		eg.Go(func() error {
			results[i] = l.dispatchOne(ctx, call, sess)
			return nil
		})
	}

	for i, call := range calls {
		if l.isAsync(call.Name) {
			continue
		}
		results[i] = l.dispatchOne(ctx, call, sess)
	}

	eg.Wait()
	return results
}

func (l *Loop) isAsync(name string) bool {
	t := l.Registry.Get(name)
	return t != nil && t.Async()
}

// dispatchOne runs the full per-call procedure: resolve, read_args,
// approval gate, call, sanitize/truncate, UI notes.
func (l *Loop) dispatchOne(ctx context.Context, call ToolCallRequest, sess *approvals.SessionState) Message {
	t := l.Registry.Get(call.Name)
	if t == nil {
		return toolError(call, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args, err := t.ReadArgs(call.Args)
	if err != nil {
		return toolError(call, err.Error())
	}

	var spinner *uiSpinner
	if l.Queue != nil {
		spinner = l.Queue.NewSpinner(t.UINoteOnRequest(args))
	}

	unlock := l.lockEditTarget(args)
	defer unlock()

	if denial := l.checkApproval(ctx, t, args, sess); denial != nil {
		msg := toolError(call, denial.Error())
		stopSpinner(spinner, t, args, msg.Content)
		return msg
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		msg := toolError(call, err.Error())
		stopSpinner(spinner, t, args, msg.Content)
		return msg
	}

	stopSpinner(spinner, t, args, result)
	result = sanitizeAndTruncate(result)
	return Message{Role: RoleTool, Content: result, ToolCallID: call.ID, Name: call.Name}
}

func stopSpinner(spinner *uiSpinner, t *tools.Tool, args map[string]any, result string) {
	if spinner == nil {
		return
	}
	spinner.Stop(t.UINoteOnResult(args, result))
}

// checkApproval routes side-effecting tool calls through C4. Shell-
// category tools always go through the shell workflow (its own built-in
// read-only list decides whether that's silent); CategoryFile tools
// flagged RequiresApproval go through the edit workflow.
func (l *Loop) checkApproval(ctx context.Context, t *tools.Tool, args map[string]any, sess *approvals.SessionState) error {
	if l.Approvals == nil {
		return nil
	}
	switch {
	case t.Category == tools.CategoryShell:
		p := pipelineFromArgs(args)
		d := l.Approvals.CheckShell(ctx, p, sess)
		return d.AsError()
	case t.RequiresApproval:
		filePath, _ := args["file_path"].(string)
		diff, _ := args["unified_diff"].(string)
		d := l.Approvals.CheckEdit(ctx, filePath, diff, sess)
		return d.AsError()
	default:
		return nil
	}
}

// pipelineFromArgs adapts a shell tool's call arguments into C4's
// Pipeline shape. Tools in internal/tools/shell take a flat "command"/
// "args" pair rather than a pipeline list, so a single-command pipeline
// is synthesised; the operator is irrelevant for a single command.
func pipelineFromArgs(args map[string]any) approvals.Pipeline {
	command, _ := args["command"].(string)
	purpose, _ := args["purpose"].(string)

	var cmdArgs []string
	switch v := args["args"].(type) {
	case []string:
		cmdArgs = v
	case []any:
		for _, a := range v {
			if s, ok := a.(string); ok {
				cmdArgs = append(cmdArgs, s)
			}
		}
	case string:
		if v != "" {
			cmdArgs = strings.Fields(v)
		}
	}

	return approvals.Pipeline{
		Operator: "|",
		Commands: []approvals.Command{{Command: command, Args: cmdArgs}},
		Purpose:  purpose,
	}
}

// lockEditTarget serialises calls targeting the same file_path argument,
// per spec.md §4.6's tie-break rule for the edit family. Returns an
// unlock func that is a no-op when args carries no file_path.
func (l *Loop) lockEditTarget(args map[string]any) func() {
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return func() {}
	}
	muAny, _ := l.fileLocks.LoadOrStore(filePath, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func toolError(call ToolCallRequest, reason string) Message {
	logging.CompletionWarn("tool %s (%s) failed: %s", call.Name, call.ID, reason)
	return Message{Role: RoleTool, Content: "error: " + reason, ToolCallID: call.ID, Name: call.Name}
}

// sanitizeAndTruncate implements the two edge-case policies: replace
// invalid UTF-8 with the standard replacement form, then truncate with an
// explicit marker if the result exceeds the history threshold.
func sanitizeAndTruncate(result string) string {
	if !utf8.ValidString(result) {
		result = strings.ToValidUTF8(result, "�")
	}
	if len(result) > maxToolResultBytes {
		result = result[:maxToolResultBytes] + "…[truncated]"
	}
	return result
}
