package edit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindHunksReturnsContextAroundMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	os.WriteFile(path, []byte("package a\n\nfunc foo() {}\n\nfunc bar() {}\n"), 0644)

	tool := FindHunksTool()
	args, err := tool.ReadArgs(map[string]any{"file_path": path, "pattern": "func foo"})
	if err != nil {
		t.Fatalf("ReadArgs: %v", err)
	}
	out, err := tool.Call(context.Background(), args)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(out, "func foo") {
		t.Fatalf("expected match context, got %q", out)
	}
}

func TestMakePatchThenApplyPatchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("old\n"), 0644)

	store := NewPatchStore()
	makePatch := MakePatchTool(store)
	applyPatch := ApplyPatchTool(store)

	mpArgs, err := makePatch.ReadArgs(map[string]any{"file_path": path, "new_content": "new\n"})
	if err != nil {
		t.Fatalf("make_patch ReadArgs: %v", err)
	}
	out, err := makePatch.Call(context.Background(), mpArgs)
	if err != nil {
		t.Fatalf("make_patch Call: %v", err)
	}
	if !strings.Contains(out, "patch_id:") {
		t.Fatalf("expected patch_id in output, got %q", out)
	}

	var patchID string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "patch_id: ") {
			patchID = strings.TrimPrefix(line, "patch_id: ")
		}
	}
	if patchID == "" {
		t.Fatalf("could not parse patch_id from %q", out)
	}

	apArgs, err := applyPatch.ReadArgs(map[string]any{"patch_id": patchID})
	if err != nil {
		t.Fatalf("apply_patch ReadArgs: %v", err)
	}
	if apArgs["file_path"] != path {
		t.Fatalf("expected file_path injected into args, got %v", apArgs["file_path"])
	}
	if apArgs["unified_diff"] == "" {
		t.Fatalf("expected unified_diff injected into args")
	}

	if _, err := applyPatch.Call(context.Background(), apArgs); err != nil {
		t.Fatalf("apply_patch Call: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "new\n" {
		t.Fatalf("expected file updated, got %q", content)
	}

	backup, err := os.ReadFile(path + backupSuffix)
	if err != nil || string(backup) != "old\n" {
		t.Fatalf("expected backup of old content, got %q err=%v", backup, err)
	}

	// The ticket was consumed; re-applying must fail.
	if _, err := applyPatch.ReadArgs(map[string]any{"patch_id": patchID}); err == nil {
		t.Fatalf("expected re-applying a consumed patch_id to fail")
	}
}

func TestApplyPatchUnknownIDFails(t *testing.T) {
	store := NewPatchStore()
	applyPatch := ApplyPatchTool(store)
	if _, err := applyPatch.ReadArgs(map[string]any{"patch_id": "does-not-exist"}); err == nil {
		t.Fatalf("expected error for unknown patch_id")
	}
}

func TestRestoreBackupRevertsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("current\n"), 0644)
	os.WriteFile(path+backupSuffix, []byte("original\n"), 0644)

	tool := RestoreBackupTool()
	args, err := tool.ReadArgs(map[string]any{"file_path": path})
	if err != nil {
		t.Fatalf("ReadArgs: %v", err)
	}
	if _, err := tool.Call(context.Background(), args); err != nil {
		t.Fatalf("Call: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "original\n" {
		t.Fatalf("expected restored content, got %q", content)
	}
}

func TestMakeChangesReplacesTextAndBacksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("hello world\n"), 0644)

	tool := MakeChangesTool()
	args, err := tool.ReadArgs(map[string]any{"file_path": path, "old_text": "world", "new_text": "there"})
	if err != nil {
		t.Fatalf("ReadArgs: %v", err)
	}
	if args["unified_diff"] == "" {
		t.Fatalf("expected unified_diff populated for approval")
	}
	if _, err := tool.Call(context.Background(), args); err != nil {
		t.Fatalf("Call: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "hello there\n" {
		t.Fatalf("expected replaced content, got %q", content)
	}
	if _, err := os.Stat(path + backupSuffix); err != nil {
		t.Fatalf("expected backup file created: %v", err)
	}
}

func TestMakeChangesOldTextNotFoundFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("hello\n"), 0644)

	tool := MakeChangesTool()
	if _, err := tool.ReadArgs(map[string]any{"file_path": path, "old_text": "nope", "new_text": "x"}); err == nil {
		t.Fatalf("expected error when old_text not found")
	}
}
