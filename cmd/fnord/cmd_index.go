package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	indexDir     string
	indexExclude []string
	indexReindex bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh a project's on-disk index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp()
		if err != nil {
			return err
		}
		proj, err := a.resolveProject(project, indexDir, indexExclude)
		if err != nil {
			return err
		}

		spinner := a.ui().NewSpinner(fmt.Sprintf("indexing %s", proj.Name))
		defer spinner.Stop("")

		pipeline, err := a.pipeline(ctx, proj)
		if err != nil {
			return err
		}

		sourceFiles, err := proj.SourceFiles()
		if err != nil {
			return fmt.Errorf("scan source files: %w", err)
		}

		before, err := proj.ListFiles(pipeline.Store)
		if err != nil {
			return fmt.Errorf("list tracked files: %w", err)
		}
		if err := proj.DeleteMissingFiles(pipeline.Store, sourceFiles); err != nil {
			return fmt.Errorf("purge missing entries: %w", err)
		}

		failed := pipeline.IndexAll(ctx, sourceFiles, indexReindex)

		vecStore, err := a.vecStore(proj)
		if err != nil {
			return err
		}
		defer vecStore.Close()

		current := make(map[string]bool, len(sourceFiles))
		for _, f := range sourceFiles {
			current[f] = true
		}
		for _, rel := range before {
			if !current[rel] {
				if err := vecStore.Remove(rel); err != nil {
					a.ui().LogError(fmt.Sprintf("remove stale vector for %s: %v", rel, err))
				}
			}
		}
		for _, rel := range sourceFiles {
			entry, err := pipeline.Store.Load(rel)
			if err != nil || len(entry.Embedding) == 0 {
				continue
			}
			if err := vecStore.Upsert(rel, entry.ContentHash, entry.Summary, entry.Embedding); err != nil {
				a.ui().LogError(fmt.Sprintf("upsert vector for %s: %v", rel, err))
			}
		}

		spinner.Stop(fmt.Sprintf("indexed %d files (%d failed)", len(sourceFiles)-len(failed), len(failed)))
		if len(failed) > 0 {
			for _, rel := range failed {
				fmt.Printf("failed: %s\n", rel)
			}
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexDir, "dir", "", "project source directory (creates/updates the project record)")
	indexCmd.Flags().StringSliceVar(&indexExclude, "exclude", nil, "additional exclude globs")
	indexCmd.Flags().BoolVar(&indexReindex, "reindex", false, "force re-indexing of every file, not just stale ones")
}
