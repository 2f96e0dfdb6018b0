package core

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// RipgrepTool shells out to `rg` when it is on PATH, per SPEC_FULL.md's
// C3 addition "ripgrep wrapper (new, shells out to rg when present, else
// falls back to a Go regexp walk)"; IsAvailableFunc lets the registry's
// FilterAvailable drop it cleanly when rg is missing, at which point
// GrepTool (the Go regexp walk already in this package) serves the same
// role.
func RipgrepTool() *tools.Tool {
	return &tools.Tool{
		Name:            "ripgrep",
		Description:     "Search file contents using ripgrep (rg)",
		Category:        tools.CategorySearch,
		Priority:        95,
		AsyncSafe:       true,
		IsAvailableFunc: ripgrepAvailable,
		Execute:         executeRipgrep,
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {Type: "string", Description: "Pattern to search for (rg regex syntax)"},
				"path":    {Type: "string", Description: "File or directory to search (default: current directory)"},
				"glob": {
					Type:        "string",
					Description: "Restrict search to files matching this glob, e.g. '*.go'",
				},
				"ignore_case": {Type: "boolean", Description: "Case insensitive search", Default: false},
				"max_results": {Type: "integer", Description: "Maximum number of matching lines per file", Default: 50},
			},
		},
	}
}

func ripgrepAvailable(ctx context.Context) bool {
	_, err := exec.LookPath("rg")
	return err == nil
}

func executeRipgrep(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	path := "."
	if p, ok := args["path"].(string); ok && p != "" {
		path = p
	}
	maxResults := 50
	if mr, ok := args["max_results"].(int); ok && mr > 0 {
		maxResults = mr
	}

	rgArgs := []string{"--line-number", "--no-heading", "--color=never"}
	if ic, ok := args["ignore_case"].(bool); ok && ic {
		rgArgs = append(rgArgs, "--ignore-case")
	}
	if glob, ok := args["glob"].(string); ok && glob != "" {
		rgArgs = append(rgArgs, "--glob", glob)
	}
	rgArgs = append(rgArgs, "--max-count", strconv.Itoa(maxResults), pattern, path)

	logging.ToolsDebug("ripgrep: pattern=%s path=%s", pattern, path)

	cmd := exec.CommandContext(ctx, "rg", rgArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// rg exits 1 for "no matches", which is not a tool failure.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "no matches found for pattern: " + pattern, nil
		}
		return "", fmt.Errorf("rg failed: %w: %s", err, stderr.String())
	}

	logging.Tools("ripgrep completed: %s (%d bytes)", pattern, stdout.Len())
	if stdout.Len() == 0 {
		return "no matches found for pattern: " + pattern, nil
	}
	return stdout.String(), nil
}
