// Package main implements fnord's CLI entrypoint: a cobra command tree that
// wires C1-C7 together for each invocation.
//
// # File Index
//
// Entry Point & Global State:
//   - main.go             - rootCmd, global flags
//   - app.go              - app wiring helpers
//
// Commands:
//   - cmd_index.go        - index
//   - cmd_search.go       - search
//   - cmd_ask.go          - ask
//   - cmd_conversations.go - conversations
//   - cmd_config.go       - config {list|set|approvals|approve|mcp}
//   - cmd_project.go      - projects, files, summary, torch, upgrade
//   - cmd_misc.go         - notes, frobs
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fnord/internal/logging"
)

var (
	// Global flags
	homeDir    string
	project    string
	apiKeyFlag string
	quiet      bool
	timeoutFl  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "fnord",
	Short: "fnord - an LLM agent grounded in your codebase and notes",
	Long: `fnord grounds a large language model in a project's codebase and notes.

It maintains an on-disk index of per-file summaries, outlines, and
embeddings; exposes a registry of built-in and user-supplied tools; and
drives a multi-round completion loop with layered approvals for anything
that touches the filesystem or a shell.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home, err := resolveHome()
		if err != nil {
			return err
		}
		homeDir = home

		if err := logging.Initialize(homeDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize logging: %v\n", err)
		}
		if err := logging.InitAudit(homeDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize audit log: %v\n", err)
		}
		logging.CLI("fnord %s (home=%s)", cmd.Name(), homeDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAudit()
		logging.CloseAll()
	},
}

func resolveHome() (string, error) {
	if homeDir != "" {
		return homeDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".fnord"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "fnord home directory (default ~/.fnord)")
	rootCmd.PersistentFlags().StringVar(&project, "project", "", "project name")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "LLM API key override")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress interactive output except errors")
	rootCmd.PersistentFlags().DurationVar(&timeoutFl, "timeout", 0, "override the configured LLM/execution timeout")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(torchCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(frobsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
