package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fnord/internal/tools/semantic"
)

var (
	searchQuery  string
	searchDetail bool
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a project's index semantically",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp()
		if err != nil {
			return err
		}
		if searchQuery == "" {
			return fmt.Errorf("--query is required")
		}
		proj, err := a.resolveProject(project, "", nil)
		if err != nil {
			return err
		}

		vecStore, err := a.vecStore(proj)
		if err != nil {
			return err
		}
		defer vecStore.Close()

		engine, err := a.embeddingEngine()
		if err != nil {
			return err
		}

		tool := semantic.SearchTool(engine, vecStore)
		out, err := tool.Call(ctx, map[string]any{"query": searchQuery, "limit": searchLimit})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		fmt.Print(out)
		if searchDetail {
			fmt.Println("\n(entry contents live under each file's derivative directory; use `summary` for the stored outline)")
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "natural-language search query")
	searchCmd.Flags().BoolVar(&searchDetail, "detail", false, "print a note on where entry contents are stored after the results")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
}
