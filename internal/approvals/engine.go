package approvals

import (
	"context"
	"fmt"
	"time"

	"fnord/internal/config"
	"fnord/internal/ferr"
	"fnord/internal/logging"
	"fnord/internal/settings"
	"fnord/internal/ui"
)

// Engine is C4: the layered approval state machine. One Engine is shared
// across a whole fnord invocation; SessionState is carried forward between
// calls by the caller (the completion loop) the way spec.md §4.4 describes
// "state'" being threaded through every decision.
type Engine struct {
	store   *settings.Store
	queue   *ui.Queue
	project string
	exec    config.ExecutionConfig
}

// New builds an Engine scoped to project (a settings project-record name)
// and the given execution policy.
func New(store *settings.Store, queue *ui.Queue, project string, exec config.ExecutionConfig) *Engine {
	return &Engine{store: store, queue: queue, project: project, exec: exec}
}

// CheckShell runs the shell workflow's full decision procedure over every
// command in p, returning the first denial encountered or approval once
// every command clears.
func (e *Engine) CheckShell(ctx context.Context, p Pipeline, sess *SessionState) Decision {
	pending := make([]Command, 0, len(p.Commands))
	for _, cmd := range p.Commands {
		if reject, reason := checkHardRejection(cmd); reject {
			logging.ApprovalsWarn("hard rejection: %s", reason)
			logging.Audit(logging.AuditEvent{
				Timestamp: time.Now(), Kind: "shell", Subject: fullCommandString(cmd),
				Decision: "denied", Reason: reason,
			})
			return denied(reason)
		}

		prefix := canonicalPrefix(cmd)
		full := fullCommandString(cmd)

		if readOnlyPrefixes[prefix] {
			e.auditApproved("shell", full, "auto")
			continue
		}
		if e.exec.EditMode && e.exec.AutoApprove && writeAllowedPrefixes[prefix] {
			e.auditApproved("shell", full, "auto")
			continue
		}
		if sess.approvedShell(prefix, full) {
			e.auditApproved("shell", full, "session")
			continue
		}
		if e.settingsApprovedShell(prefix, full) {
			e.auditApproved("shell", full, "project")
			continue
		}
		pending = append(pending, cmd)
	}

	if len(pending) == 0 {
		return approved
	}

	if !e.queue.IsTTY() {
		reason := "non_interactive: approval required but no tty attached"
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "shell", Subject: p.Purpose, Decision: "denied", Reason: reason})
		return denied(reason)
	}

	return e.promptShell(ctx, p, pending, sess)
}

// settingsApprovedShell implements decision step 3, checking project scope
// and falling back to global scope — the layering the settings store's own
// doc comment explicitly leaves to this package.
func (e *Engine) settingsApprovedShell(prefix, full string) bool {
	if e.project != "" {
		if patterns, err := e.store.ApprovalsGet(e.project, "shell"); err == nil {
			for _, pat := range patterns {
				if matchesPattern(pat, prefix, full) {
					return true
				}
			}
		}
	}
	patterns, err := e.store.ApprovalsGet("", "shell")
	if err != nil {
		logging.ApprovalsError("reading global shell approvals: %v", err)
		return false
	}
	for _, pat := range patterns {
		if matchesPattern(pat, prefix, full) {
			return true
		}
	}
	return false
}

func (e *Engine) auditApproved(kind, subject, decision string) {
	logging.ApprovalsDebug("%s approved (%s): %s", kind, decision, subject)
	logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: kind, Subject: subject, Decision: decision})
}

// promptShell renders the approval box and prompts once for all pending
// commands at once (spec.md §4.4: "render a box listing each stage").
func (e *Engine) promptShell(ctx context.Context, p Pipeline, pending []Command, sess *SessionState) Decision {
	ia := e.queue.BeginInteraction()
	defer ia.End()

	var body string
	body += fmt.Sprintf("purpose: %s\n", p.Purpose)
	for _, cmd := range pending {
		body += fmt.Sprintf("  pending  %s\n", fullCommandString(cmd))
	}
	ia.Render(body)

	choiceCtx, cancel := e.autoPolicyContext(ctx)
	defer cancel()

	choices := []ui.Choice{
		{Label: "Approve", Default: true},
		{Label: "Approve persistently"},
		{Label: "Deny"},
		{Label: "Deny with feedback"},
	}
	autoChoice := e.autoChoiceLabel()
	choice, err := ia.Choose(choiceCtx, "Approve shell command?", choices, autoChoice)
	if err != nil {
		reason := fmt.Sprintf("approval prompt failed: %v", err)
		return denied(reason)
	}

	switch choice {
	case "Approve":
		for _, cmd := range pending {
			e.auditApproved("shell", fullCommandString(cmd), "prompt")
		}
		return approved
	case "Approve persistently":
		for _, cmd := range pending {
			e.persistShellApproval(ctx, ia, cmd, sess)
		}
		return approved
	case "Deny":
		reason := "denied by user"
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "shell", Subject: p.Purpose, Decision: "denied", Reason: reason})
		return denied(reason)
	case "Deny with feedback":
		feedback, _ := ia.PromptText(ctx, "feedback", "")
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "shell", Subject: p.Purpose, Decision: "denied", Reason: feedback})
		return denied(feedback)
	default:
		return denied("unrecognised choice: " + choice)
	}
}

// persistShellApproval implements "Approve persistently": prompt for a
// pattern (default the computed prefix) and a scope, then persist.
func (e *Engine) persistShellApproval(ctx context.Context, ia *ui.Interaction, cmd Command, sess *SessionState) {
	prefix := canonicalPrefix(cmd)
	pattern, err := ia.PromptText(ctx, "pattern (wrap in /.../  for regex)", prefix)
	if err != nil || pattern == "" {
		pattern = prefix
	}

	scope, err := ia.Choose(ctx, "scope", []ui.Choice{
		{Label: "session", Default: true}, {Label: "project"}, {Label: "global"},
	}, "session")
	if err != nil {
		scope = "session"
	}

	switch scope {
	case "session":
		sess.approveShell(pattern)
	case "project":
		if err := e.store.ApprovalsApprove(e.project, "shell", pattern); err != nil {
			logging.ApprovalsError("persisting project approval: %v", err)
		}
	case "global":
		if err := e.store.ApprovalsApprove("", "shell", pattern); err != nil {
			logging.ApprovalsError("persisting global approval: %v", err)
		}
	}
	logging.Audit(logging.AuditEvent{
		Timestamp: time.Now(), Kind: "shell", Subject: fullCommandString(cmd),
		Decision: scope, Reason: pattern,
	})
}

// autoChoiceLabel picks the decision an elapsed auto-policy resolves to.
// Approve-after takes precedence if both are configured with the same
// deadline (the more lenient read per spec.md's AllowedBinaries intent).
func (e *Engine) autoChoiceLabel() string {
	approve, deny := e.exec.ApprovalAutoApproveMs, e.exec.ApprovalAutoDenyMs
	if approve > 0 && (deny <= 0 || approve <= deny) {
		return "Approve"
	}
	return "Deny"
}

// autoPolicyContext derives a context carrying the configured auto-policy
// deadline, if any.
func (e *Engine) autoPolicyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ms := e.exec.ApprovalAutoApproveMs
	if ms == 0 || (e.exec.ApprovalAutoDenyMs > 0 && e.exec.ApprovalAutoDenyMs < ms) {
		ms = e.exec.ApprovalAutoDenyMs
	}
	if ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

// AsError converts a denied Decision into a *ferr.ApprovalDenial, for
// callers (the completion loop) that want a single error value.
func (d Decision) AsError() error {
	if d.Approved {
		return nil
	}
	return &ferr.ApprovalDenial{Reason: d.Reason}
}

// CheckEdit runs the edit workflow for a single {file_path, unified_diff}.
func (e *Engine) CheckEdit(ctx context.Context, filePath, unifiedDiff string, sess *SessionState) Decision {
	if !e.exec.EditMode {
		reason := "edit mode disabled"
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "edit", Subject: filePath, Decision: "denied", Reason: reason})
		return denied(reason)
	}

	if e.exec.AutoApprove {
		e.renderEditAudit(filePath, unifiedDiff)
		e.auditApproved("edit", filePath, "auto")
		return approved
	}

	if sess.editApprovedForSession(filePath) {
		e.auditApproved("edit", filePath, "session")
		return approved
	}

	if !e.queue.IsTTY() {
		reason := "non_interactive: approval required but no tty attached"
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "edit", Subject: filePath, Decision: "denied", Reason: reason})
		return denied(reason)
	}

	ia := e.queue.BeginInteraction()
	defer ia.End()
	ia.Render(unifiedDiff)

	choiceCtx, cancel := e.autoPolicyContext(ctx)
	defer cancel()

	choices := []ui.Choice{
		{Label: "Approve", Default: true},
		{Label: "Approve for session"},
		{Label: "Deny"},
		{Label: "Deny with feedback"},
	}
	choice, err := ia.Choose(choiceCtx, "Approve edit to "+filePath+"?", choices, e.autoChoiceLabel())
	if err != nil {
		return denied(fmt.Sprintf("approval prompt failed: %v", err))
	}

	switch choice {
	case "Approve":
		e.auditApproved("edit", filePath, "prompt")
		return approved
	case "Approve for session":
		sess.approveEditForSession(filePath)
		e.auditApproved("edit", filePath, "session")
		return approved
	case "Deny":
		reason := "denied by user"
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "edit", Subject: filePath, Decision: "denied", Reason: reason})
		return denied(reason)
	case "Deny with feedback":
		feedback, _ := ia.PromptText(ctx, "feedback", "")
		logging.Audit(logging.AuditEvent{Timestamp: time.Now(), Kind: "edit", Subject: filePath, Decision: "denied", Reason: feedback})
		return denied(feedback)
	default:
		return denied("unrecognised choice: " + choice)
	}
}

func (e *Engine) renderEditAudit(filePath, unifiedDiff string) {
	logging.ApprovalsDebug("auto-approved edit to %s (diff rendered for audit)", filePath)
	e.queue.Log(logging.CategoryApprovals, unifiedDiff)
}
