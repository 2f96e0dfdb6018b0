package approvals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fnord/internal/config"
	"fnord/internal/settings"
	"fnord/internal/ui"
)

func newTestEngine(t *testing.T, exec config.ExecutionConfig, opts ...ui.Option) (*Engine, *settings.Store, *ui.Queue) {
	t.Helper()
	dir := t.TempDir()
	store := settings.NewStore(filepath.Join(dir, "settings.json"))

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { w.Close(); r.Close() })
	queue := ui.New(w, opts...)
	t.Cleanup(func() { queue.Close(time.Second) })

	return New(store, queue, "myproject", exec), store, queue
}

// S1: a read-only command's prefix is in the built-in allow-list, so the
// engine approves without prompting (no TTY is attached, which would
// otherwise be a non-interactive denial if it ever reached the prompt
// step).
func TestS1ApprovalOfReadOnlyCommand(t *testing.T) {
	e, _, _ := newTestEngine(t, config.ExecutionConfig{})
	sess := NewSessionState()

	p := Pipeline{
		Operator: "|",
		Commands: []Command{{Command: "/usr/bin/git", Args: []string{"log", "-n", "1"}}},
		Purpose:  "show last commit",
	}
	d := e.CheckShell(context.Background(), p, sess)
	if !d.Approved || d.Denied {
		t.Fatalf("expected approval, got %+v", d)
	}
}

// S2: bash -c is unconditionally rejected, with the exact message spec.md
// §8 specifies, regardless of any approval list.
func TestS2RejectionOfShellInvocation(t *testing.T) {
	e, _, _ := newTestEngine(t, config.ExecutionConfig{})
	sess := NewSessionState()

	p := Pipeline{
		Operator: "&&",
		Commands: []Command{{Command: "bash", Args: []string{"-c", "rm -rf /"}}},
		Purpose:  "x",
	}
	d := e.CheckShell(context.Background(), p, sess)
	if d.Approved || !d.Denied {
		t.Fatalf("expected denial, got %+v", d)
	}
	const want = "shell invocation not allowed: bash -c rm -rf /"
	if d.Reason != want {
		t.Fatalf("reason = %q, want %q", d.Reason, want)
	}
}

func TestS2RejectionSurvivesEnvLaundering(t *testing.T) {
	e, _, _ := newTestEngine(t, config.ExecutionConfig{})
	sess := NewSessionState()

	p := Pipeline{
		Operator: "|",
		Commands: []Command{{Command: "env", Args: []string{"FOO=bar", "bash", "-c", "echo hi"}}},
		Purpose:  "x",
	}
	d := e.CheckShell(context.Background(), p, sess)
	if !d.Denied {
		t.Fatalf("expected env-laundered bash -c to be rejected, got %+v", d)
	}
}

// S3: "Approve persistently" with default prefix and project scope writes
// to the settings store at projects.<P>.approvals.shell.
func TestS3PersistentApproval(t *testing.T) {
	inR, inW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { inR.Close() })

	e, store, _ := newTestEngine(t, config.ExecutionConfig{}, ui.WithForceTTY(true), ui.WithInput(inR))
	sess := NewSessionState()

	p := Pipeline{
		Operator: "|",
		Commands: []Command{{Command: "docker", Args: []string{"image", "ls"}}},
		Purpose:  "list images",
	}

	// Script the interactive dialog: Approve persistently, keep the default
	// prefix (blank line), choose project scope. Written upfront since the
	// pipe buffer comfortably holds a few lines and the consumer reads them
	// as each prompt's Choose/PromptText call is reached.
	go func() {
		fmt.Fprint(inW, "Approve persistently\n\nproject\n")
		inW.Close()
	}()

	d := e.CheckShell(context.Background(), p, sess)
	if !d.Approved {
		t.Fatalf("expected approval after persisting, got %+v", d)
	}

	got, err := store.ApprovalsGet("myproject", "shell")
	if err != nil {
		t.Fatalf("ApprovalsGet: %v", err)
	}
	if len(got) != 1 || got[0] != "docker image" {
		t.Fatalf("approvals.shell = %v, want [\"docker image\"]", got)
	}
}
