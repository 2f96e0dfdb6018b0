package core

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestRipgrepTool_Definition(t *testing.T) {
	tool := RipgrepTool()
	if tool.Name != "ripgrep" {
		t.Errorf("Name mismatch: got %q", tool.Name)
	}
	if !tool.AsyncSafe {
		t.Errorf("expected ripgrep to be async-safe")
	}
}

func TestRipgrepTool_Execute_MissingPattern(t *testing.T) {
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("rg not on PATH")
	}
	if _, err := executeRipgrep(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing pattern")
	}
}

func TestRipgrepTool_Execute_FindsMatch(t *testing.T) {
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("rg not on PATH")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	os.WriteFile(path, []byte("package a\n\nfunc Needle() {}\n"), 0644)

	out, err := executeRipgrep(context.Background(), map[string]any{"pattern": "Needle", "path": dir})
	if err != nil {
		t.Fatalf("executeRipgrep: %v", err)
	}
	if !strings.Contains(out, "Needle") {
		t.Fatalf("expected match in output, got %q", out)
	}
}

func TestRipgrepTool_Execute_NoMatches(t *testing.T) {
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("rg not on PATH")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	os.WriteFile(path, []byte("package a\n"), 0644)

	out, err := executeRipgrep(context.Background(), map[string]any{"pattern": "NoSuchThing", "path": dir})
	if err != nil {
		t.Fatalf("executeRipgrep: %v", err)
	}
	if !strings.Contains(out, "no matches") {
		t.Fatalf("expected no-matches message, got %q", out)
	}
}
