package shell

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// GitDiffTool returns a tool for inspecting the working-tree or staged diff.
func GitDiffTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_diff",
		Description: "Show unstaged changes (working tree vs index), or staged changes (index vs HEAD) when staged is set",
		Category:    tools.CategoryGit,
		Priority:    70,
		Execute:     executeGitDiff,
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "Restrict the diff to this file or directory",
				},
				"staged": {
					Type:        "boolean",
					Description: "Show the staged diff (git diff --cached) instead of the unstaged one",
					Default:     false,
				},
				"working_dir": {
					Type:        "string",
					Description: "Repository directory (default: current directory)",
				},
			},
		},
	}
}

func executeGitDiff(ctx context.Context, args map[string]any) (string, error) {
	gitArgs := []string{"diff"}
	if staged, _ := args["staged"].(bool); staged {
		gitArgs = append(gitArgs, "--cached")
	}
	if path, ok := args["path"].(string); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	return runGit(ctx, args, gitArgs...)
}

// GitLogTool returns a tool for reading commit history, including the
// pickaxe search (-S) over the log.
func GitLogTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_log",
		Description: "Show commit history, optionally filtered by author or a pickaxe search over commit content",
		Category:    tools.CategoryGit,
		Priority:    65,
		Execute:     executeGitLog,
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"count": {
					Type:        "integer",
					Description: "Maximum number of commits to show (default: 20)",
					Default:     20,
				},
				"author": {
					Type:        "string",
					Description: "Filter commits by author",
				},
				"pickaxe": {
					Type:        "string",
					Description: "Find commits whose diff adds or removes this string (git log -S)",
				},
				"path": {
					Type:        "string",
					Description: "Restrict history to this file or directory",
				},
				"working_dir": {
					Type:        "string",
					Description: "Repository directory (default: current directory)",
				},
			},
		},
	}
}

func executeGitLog(ctx context.Context, args map[string]any) (string, error) {
	count := 20
	switch v := args["count"].(type) {
	case int:
		if v > 0 {
			count = v
		}
	case float64:
		if v > 0 {
			count = int(v)
		}
	}

	gitArgs := []string{"log", "-n", strconv.Itoa(count), "--oneline"}
	if author, ok := args["author"].(string); ok && author != "" {
		gitArgs = append(gitArgs, "--author="+author)
	}
	if pickaxe, ok := args["pickaxe"].(string); ok && pickaxe != "" {
		gitArgs = append(gitArgs, "-S"+pickaxe)
	}
	if path, ok := args["path"].(string); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	return runGit(ctx, args, gitArgs...)
}

// GitOperationTool returns a tool covering the git subcommands that mutate
// or query repository state: status, add, commit, push, pull, checkout,
// branch, fetch, stash, reset.
func GitOperationTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_operation",
		Description: "Run a git repository operation: status, add, commit, push, pull, checkout, branch, fetch, stash, or reset",
		Category:    tools.CategoryGit,
		Priority:    60,
		Execute:     executeGitOperation,
		Schema: tools.ToolSchema{
			Required: []string{"operation"},
			Properties: map[string]tools.Property{
				"operation": {
					Type:        "string",
					Description: "The git operation to run",
					Enum:        []any{"status", "add", "commit", "push", "pull", "checkout", "branch", "fetch", "stash", "reset"},
				},
				"files": {
					Type:        "string",
					Description: "Files to add (operation=add), defaults to \".\"",
				},
				"message": {
					Type:        "string",
					Description: "Commit message (operation=commit)",
				},
				"branch": {
					Type:        "string",
					Description: "Branch name (operation=checkout, branch)",
				},
				"args": {
					Type:        "string",
					Description: "Extra arguments appended verbatim (operation=push, pull, fetch, stash, reset)",
				},
				"working_dir": {
					Type:        "string",
					Description: "Repository directory (default: current directory)",
				},
			},
		},
	}
}

func executeGitOperation(ctx context.Context, args map[string]any) (string, error) {
	operation, _ := args["operation"].(string)
	if operation == "" {
		return "", fmt.Errorf("operation is required")
	}

	var gitArgs []string
	switch operation {
	case "status":
		gitArgs = []string{"status"}
	case "add":
		files, _ := args["files"].(string)
		if files == "" {
			files = "."
		}
		gitArgs = []string{"add", files}
	case "commit":
		message, _ := args["message"].(string)
		if message == "" {
			return "", fmt.Errorf("message is required for operation=commit")
		}
		gitArgs = []string{"commit", "-m", message}
	case "push":
		gitArgs = appendExtra([]string{"push"}, args)
	case "pull":
		gitArgs = appendExtra([]string{"pull"}, args)
	case "checkout":
		branch, _ := args["branch"].(string)
		if branch == "" {
			return "", fmt.Errorf("branch is required for operation=checkout")
		}
		gitArgs = []string{"checkout", branch}
	case "branch":
		branch, _ := args["branch"].(string)
		if branch == "" {
			gitArgs = []string{"branch"}
		} else {
			gitArgs = []string{"branch", branch}
		}
	case "fetch":
		gitArgs = appendExtra([]string{"fetch"}, args)
	case "stash":
		gitArgs = appendExtra([]string{"stash"}, args)
	case "reset":
		gitArgs = appendExtra([]string{"reset"}, args)
	default:
		return "", fmt.Errorf("unsupported git operation: %s", operation)
	}

	return runGit(ctx, args, gitArgs...)
}

// GitGrepTool searches tracked file contents via `git grep`, rounding out
// the git read-only family alongside diff/log/pickaxe.
func GitGrepTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_grep",
		Description: "Search tracked file contents with git grep",
		Category:    tools.CategoryGit,
		Priority:    70,
		AsyncSafe:   true,
		Execute:     executeGitGrep,
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {Type: "string", Description: "Pattern to search for"},
				"path":    {Type: "string", Description: "Restrict the search to this file or directory"},
				"ignore_case": {
					Type:        "boolean",
					Description: "Case insensitive search",
					Default:     false,
				},
				"working_dir": {Type: "string", Description: "Repository directory (default: current directory)"},
			},
		},
	}
}

func executeGitGrep(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	gitArgs := []string{"grep", "-n"}
	if ic, _ := args["ignore_case"].(bool); ic {
		gitArgs = append(gitArgs, "-i")
	}
	gitArgs = append(gitArgs, pattern)
	if path, ok := args["path"].(string); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	return runGit(ctx, args, gitArgs...)
}

// GitShowTool shows a single commit or revision's content, e.g. `git show
// HEAD~2` or `git show HEAD:path/to/file`.
func GitShowTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_show",
		Description: "Show a commit or a revision of a file",
		Category:    tools.CategoryGit,
		Priority:    65,
		AsyncSafe:   true,
		Execute:     executeGitShow,
		Schema: tools.ToolSchema{
			Required: []string{"revision"},
			Properties: map[string]tools.Property{
				"revision":    {Type: "string", Description: "A commit-ish, optionally with a :path suffix"},
				"working_dir": {Type: "string", Description: "Repository directory (default: current directory)"},
			},
		},
	}
}

func executeGitShow(ctx context.Context, args map[string]any) (string, error) {
	revision, _ := args["revision"].(string)
	if revision == "" {
		return "", fmt.Errorf("revision is required")
	}
	return runGit(ctx, args, "show", revision)
}

// GitListBranchesTool lists local and remote-tracking branches.
func GitListBranchesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_list_branches",
		Description: "List local and remote-tracking branches",
		Category:    tools.CategoryGit,
		Priority:    65,
		AsyncSafe:   true,
		Execute:     executeGitListBranches,
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"all":         {Type: "boolean", Description: "Include remote-tracking branches", Default: false},
				"working_dir": {Type: "string", Description: "Repository directory (default: current directory)"},
			},
		},
	}
}

func executeGitListBranches(ctx context.Context, args map[string]any) (string, error) {
	gitArgs := []string{"branch"}
	if all, _ := args["all"].(bool); all {
		gitArgs = append(gitArgs, "-a")
	}
	return runGit(ctx, args, gitArgs...)
}

// GitUnstagedChangesTool lists files with unstaged modifications, the
// short form of git_diff useful for a quick "what's dirty" check.
func GitUnstagedChangesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "git_unstaged_changes",
		Description: "List files with unstaged changes",
		Category:    tools.CategoryGit,
		Priority:    65,
		AsyncSafe:   true,
		Execute:     executeGitUnstagedChanges,
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"working_dir": {Type: "string", Description: "Repository directory (default: current directory)"},
			},
		},
	}
}

func executeGitUnstagedChanges(ctx context.Context, args map[string]any) (string, error) {
	return runGit(ctx, args, "diff", "--name-status")
}

// appendExtra splits args["args"] on whitespace and appends the tokens,
// for operations that accept free-form trailing arguments (e.g. "origin main").
func appendExtra(gitArgs []string, args map[string]any) []string {
	extra, _ := args["args"].(string)
	if extra == "" {
		return gitArgs
	}
	return append(gitArgs, strings.Fields(extra)...)
}

// runGit shells out to git with the given arguments in working_dir,
// going through execCommandContext so tests can mock the process.
func runGit(ctx context.Context, args map[string]any, gitArgs ...string) (string, error) {
	workingDir, _ := args["working_dir"].(string)

	logging.ToolsDebug("git %s: dir=%s", strings.Join(gitArgs, " "), workingDir)

	cmd := execCommandContext(ctx, "git", gitArgs...)
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}

	if err != nil {
		logging.Tools("git %s failed: %v", strings.Join(gitArgs, " "), err)
		return output, fmt.Errorf("git %s failed: %w\nOutput:\n%s", gitArgs[0], err, output)
	}

	return output, nil
}
