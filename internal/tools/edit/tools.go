package edit

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"fnord/internal/diff"
	"fnord/internal/logging"
	"fnord/internal/tools"
)

// FindHunksTool returns a tool that shows numbered context around matches
// of a pattern in one file, the anchors a model needs to build a precise
// make-patch new_content argument. Read-only, never needs approval.
func FindHunksTool() *tools.Tool {
	return &tools.Tool{
		Name:        "find_hunks",
		Description: "Find line-numbered context blocks matching a pattern in a file, for use with make_patch",
		Category:    tools.CategoryFile,
		Priority:    85,
		AsyncSafe:   true,
		Execute:     executeFindHunks,
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "pattern"},
			Properties: map[string]tools.Property{
				"file_path": {Type: "string", Description: "The file to search"},
				"pattern":   {Type: "string", Description: "Regular expression to anchor on"},
				"context_lines": {
					Type:        "integer",
					Description: "Lines of context before/after each match (default 3)",
					Default:     3,
				},
			},
		},
	}
}

func executeFindHunks(ctx context.Context, args map[string]any) (string, error) {
	filePath, _ := args["file_path"].(string)
	pattern, _ := args["pattern"].(string)
	contextLines := 3
	if cl, ok := args["context_lines"].(int); ok && cl > 0 {
		contextLines = cl
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filePath, err)
	}
	lines := strings.Split(string(content), "\n")

	var b strings.Builder
	matched := 0
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		matched++
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(lines) {
			end = len(lines)
		}
		fmt.Fprintf(&b, "--- match at line %d ---\n", i+1)
		for j := start; j < end; j++ {
			marker := "  "
			if j == i {
				marker = "> "
			}
			fmt.Fprintf(&b, "%s%d: %s\n", marker, j+1, lines[j])
		}
	}

	logging.Tools("find_hunks: %s pattern=%q matches=%d", filePath, pattern, matched)
	if matched == 0 {
		return fmt.Sprintf("no matches for %q in %s", pattern, filePath), nil
	}
	return b.String(), nil
}

// MakePatchTool returns a tool that stages a proposed new file body as a
// temp file plus a rendered unified diff, minting a patch_id the model
// must pass to apply_patch. It never mutates the target file itself.
func MakePatchTool(store *PatchStore) *tools.Tool {
	return &tools.Tool{
		Name:        "make_patch",
		Description: "Stage a proposed new version of a file and return a patch_id and unified diff to review before applying",
		Category:    tools.CategoryFile,
		Priority:    80,
		Execute:     makeMakePatchExecute(store),
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "new_content"},
			Properties: map[string]tools.Property{
				"file_path":   {Type: "string", Description: "The file the patch targets"},
				"new_content": {Type: "string", Description: "The full proposed new file content"},
			},
		},
	}
}

func makeMakePatchExecute(store *PatchStore) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		filePath, _ := args["file_path"].(string)
		newContent, _ := args["new_content"].(string)

		oldContentBytes, err := os.ReadFile(filePath)
		oldContent := ""
		if err == nil {
			oldContent = string(oldContentBytes)
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("read %s: %w", filePath, err)
		}

		tmp, err := os.CreateTemp("", "fnord-patch-*")
		if err != nil {
			return "", fmt.Errorf("create temp file: %w", err)
		}
		if _, err := tmp.WriteString(newContent); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", fmt.Errorf("write temp file: %w", err)
		}
		tmp.Close()

		unified := diff.ComputeUnifiedDiff(filePath, filePath, oldContent, newContent)
		patchID := store.Mint(filePath, tmp.Name(), unified, oldContent)

		logging.Tools("make_patch: %s patch_id=%s", filePath, patchID)
		return fmt.Sprintf("patch_id: %s\ntemp_file_path: %s\n\n%s", patchID, tmp.Name(), unified), nil
	}
}

// ApplyPatchTool returns a tool that applies a previously-minted patch.
// RequiresApproval routes it through C4's edit workflow; ReadArgs looks
// the ticket up so checkApproval's generic file_path/unified_diff
// extraction (internal/completion/dispatch.go) works unmodified.
func ApplyPatchTool(store *PatchStore) *tools.Tool {
	return &tools.Tool{
		Name:             "apply_patch",
		Description:      "Apply a staged patch by patch_id, backing up the original file first",
		Category:         tools.CategoryFile,
		Priority:         80,
		RequiresApproval: true,
		ReadArgsFunc:     makeApplyPatchReadArgs(store),
		Execute:          makeApplyPatchExecute(store),
		Schema: tools.ToolSchema{
			Required: []string{"patch_id"},
			Properties: map[string]tools.Property{
				"patch_id": {Type: "string", Description: "The patch_id returned by make_patch"},
			},
		},
	}
}

func makeApplyPatchReadArgs(store *PatchStore) tools.ArgsFunc {
	return func(args map[string]any) (map[string]any, error) {
		patchID, _ := args["patch_id"].(string)
		if patchID == "" {
			return nil, &tools.ArgError{Missing: true, Key: "patch_id"}
		}
		t, ok := store.Lookup(patchID)
		if !ok {
			return nil, &tools.ArgError{Invalid: true, Key: "patch_id", Reason: "patch is not live: it was never minted, already applied, or has expired"}
		}
		return map[string]any{
			"patch_id":     patchID,
			"file_path":    t.FilePath,
			"unified_diff": t.UnifiedDiff,
		}, nil
	}
}

func makeApplyPatchExecute(store *PatchStore) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		patchID, _ := args["patch_id"].(string)
		filePath, _ := args["file_path"].(string)

		t, ok := store.Lookup(patchID)
		if !ok {
			return "", fmt.Errorf("patch %s is no longer live", patchID)
		}

		newContent, err := os.ReadFile(t.TempFilePath)
		if err != nil {
			return "", fmt.Errorf("patch temp file missing: %w", err)
		}

		if err := writeBackup(filePath, t.OldContent); err != nil {
			return "", fmt.Errorf("backup %s: %w", filePath, err)
		}

		if err := os.WriteFile(filePath, newContent, 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", filePath, err)
		}

		os.Remove(t.TempFilePath)
		store.Discard(patchID)

		logging.Tools("apply_patch: %s patch_id=%s (%d bytes)", filePath, patchID, len(newContent))
		return fmt.Sprintf("applied patch to %s", filePath), nil
	}
}

// backupSuffix is appended to a file's path for its single most-recent
// pre-edit snapshot; restore_backup reads it back.
const backupSuffix = ".fnord-bak"

func writeBackup(filePath, oldContent string) error {
	return os.WriteFile(filePath+backupSuffix, []byte(oldContent), 0644)
}

// RestoreBackupTool returns a tool that reverts a file to its most recent
// apply_patch/make_changes backup. RequiresApproval since it mutates the
// file; the diff shown to the approver is backup-vs-current.
func RestoreBackupTool() *tools.Tool {
	return &tools.Tool{
		Name:             "restore_backup",
		Description:      "Restore a file from its most recent edit backup",
		Category:         tools.CategoryFile,
		Priority:         70,
		RequiresApproval: true,
		ReadArgsFunc:     readRestoreBackupArgs,
		Execute:          executeRestoreBackup,
		Schema: tools.ToolSchema{
			Required: []string{"file_path"},
			Properties: map[string]tools.Property{
				"file_path": {Type: "string", Description: "The file to restore"},
			},
		},
	}
}

func readRestoreBackupArgs(args map[string]any) (map[string]any, error) {
	filePath, _ := args["file_path"].(string)
	if filePath == "" {
		return nil, &tools.ArgError{Missing: true, Key: "file_path"}
	}
	backupContent, err := os.ReadFile(filePath + backupSuffix)
	if err != nil {
		return nil, &tools.ArgError{Invalid: true, Key: "file_path", Reason: "no backup found for this file"}
	}
	current, _ := os.ReadFile(filePath)
	unified := diff.ComputeUnifiedDiff(filePath, filePath, string(current), string(backupContent))
	return map[string]any{
		"file_path":    filePath,
		"unified_diff": unified,
	}, nil
}

func executeRestoreBackup(ctx context.Context, args map[string]any) (string, error) {
	filePath, _ := args["file_path"].(string)
	backupContent, err := os.ReadFile(filePath + backupSuffix)
	if err != nil {
		return "", fmt.Errorf("read backup: %w", err)
	}
	if err := os.WriteFile(filePath, backupContent, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", filePath, err)
	}
	logging.Tools("restore_backup: %s", filePath)
	return fmt.Sprintf("restored %s from backup", filePath), nil
}

// MakeChangesTool returns a tool generalizing the teacher's literal
// search/replace edit into the approval-gated flow in one call, for the
// common case where a full make_patch/apply_patch round trip is overkill.
func MakeChangesTool() *tools.Tool {
	return &tools.Tool{
		Name:             "make_changes",
		Description:      "Replace exact text in a file, subject to edit approval",
		Category:         tools.CategoryFile,
		Priority:         85,
		RequiresApproval: true,
		ReadArgsFunc:     readMakeChangesArgs,
		Execute:          executeMakeChanges,
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "old_text", "new_text"},
			Properties: map[string]tools.Property{
				"file_path": {Type: "string", Description: "The file to edit"},
				"old_text":  {Type: "string", Description: "The exact text to replace"},
				"new_text":  {Type: "string", Description: "The replacement text"},
				"replace_all": {
					Type:        "boolean",
					Description: "Replace every occurrence instead of just the first (default false)",
					Default:     false,
				},
			},
		},
	}
}

func readMakeChangesArgs(args map[string]any) (map[string]any, error) {
	filePath, _ := args["file_path"].(string)
	if filePath == "" {
		return nil, &tools.ArgError{Missing: true, Key: "file_path"}
	}
	oldText, _ := args["old_text"].(string)
	if oldText == "" {
		return nil, &tools.ArgError{Missing: true, Key: "old_text"}
	}
	newText, _ := args["new_text"].(string)
	replaceAll, _ := args["replace_all"].(bool)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &tools.ArgError{Invalid: true, Key: "file_path", Reason: err.Error()}
	}
	if !strings.Contains(string(content), oldText) {
		return nil, &tools.ArgError{Invalid: true, Key: "old_text", Reason: "not found in file"}
	}

	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(string(content), oldText, newText)
	} else {
		newContent = strings.Replace(string(content), oldText, newText, 1)
	}
	unified := diff.ComputeUnifiedDiff(filePath, filePath, string(content), newContent)

	return map[string]any{
		"file_path":    filePath,
		"old_content":  string(content),
		"new_content":  newContent,
		"unified_diff": unified,
	}, nil
}

func executeMakeChanges(ctx context.Context, args map[string]any) (string, error) {
	filePath, _ := args["file_path"].(string)
	oldContent, _ := args["old_content"].(string)
	newContent, _ := args["new_content"].(string)

	if err := writeBackup(filePath, oldContent); err != nil {
		return "", fmt.Errorf("backup %s: %w", filePath, err)
	}
	if err := os.WriteFile(filePath, []byte(newContent), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", filePath, err)
	}
	logging.Tools("make_changes: %s (%d bytes)", filePath, len(newContent))
	return fmt.Sprintf("updated %s", filePath), nil
}
