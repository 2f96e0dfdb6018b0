package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func newTestGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com", "GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	os.WriteFile(filepath.Join(dir, "needle.txt"), []byte("findme here\n"), 0644)
	run("add", ".")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestGitGrepFindsMatch(t *testing.T) {
	dir := newTestGitRepo(t)
	out, err := executeGitGrep(context.Background(), map[string]any{"pattern": "findme", "working_dir": dir})
	if err != nil {
		t.Fatalf("executeGitGrep: %v", err)
	}
	if !strings.Contains(out, "findme") {
		t.Fatalf("expected match in output, got %q", out)
	}
}

func TestGitShowHead(t *testing.T) {
	dir := newTestGitRepo(t)
	out, err := executeGitShow(context.Background(), map[string]any{"revision": "HEAD", "working_dir": dir})
	if err != nil {
		t.Fatalf("executeGitShow: %v", err)
	}
	if !strings.Contains(out, "initial") {
		t.Fatalf("expected commit message in output, got %q", out)
	}
}

func TestGitListBranches(t *testing.T) {
	dir := newTestGitRepo(t)
	out, err := executeGitListBranches(context.Background(), map[string]any{"working_dir": dir})
	if err != nil {
		t.Fatalf("executeGitListBranches: %v", err)
	}
	if out == "" {
		t.Fatalf("expected at least one branch listed")
	}
}

func TestGitUnstagedChanges(t *testing.T) {
	dir := newTestGitRepo(t)
	os.WriteFile(filepath.Join(dir, "needle.txt"), []byte("changed\n"), 0644)
	out, err := executeGitUnstagedChanges(context.Background(), map[string]any{"working_dir": dir})
	if err != nil {
		t.Fatalf("executeGitUnstagedChanges: %v", err)
	}
	if !strings.Contains(out, "needle.txt") {
		t.Fatalf("expected modified file listed, got %q", out)
	}
}
