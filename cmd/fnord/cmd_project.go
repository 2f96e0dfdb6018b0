package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fnord/internal/index"
	"fnord/internal/settings"
)

// entryStoreFor builds the EntryStore for proj without requiring an
// embedder or LLM client, for commands that only read/delete derivatives.
func entryStoreFor(proj *index.Project) *index.EntryStore {
	return index.NewEntryStore(proj.StorePath)
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List every known project",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		names, err := a.settings.ListProjects()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no projects")
			return nil
		}
		for _, name := range names {
			rec, err := a.settings.GetProject(name)
			if err != nil {
				continue
			}
			fmt.Printf("%s  %s\n", name, rec.Root)
		}
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List every file currently tracked in a project's index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		proj, err := a.resolveProject(project, "", nil)
		if err != nil {
			return err
		}
		entryStore := entryStoreFor(proj)
		rels, err := proj.ListFiles(entryStore)
		if err != nil {
			return err
		}
		for _, rel := range rels {
			fmt.Println(rel)
		}
		return nil
	},
}

var summaryFile string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a file's stored summary and outline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if summaryFile == "" {
			return fmt.Errorf("--file is required")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		proj, err := a.resolveProject(project, "", nil)
		if err != nil {
			return err
		}
		entry, err := entryStoreFor(proj).Load(summaryFile)
		if err != nil {
			return err
		}
		if entry.ContentHash == "" {
			return fmt.Errorf("%s is not indexed", summaryFile)
		}
		fmt.Printf("# %s\n\n## Summary\n%s\n\n## Outline\n%s\n", summaryFile, entry.Summary, entry.Outline)
		return nil
	},
}

var torchCmd = &cobra.Command{
	Use:   "torch",
	Short: "Delete a project's entire on-disk index and settings record",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		proj, err := a.resolveProject(project, "", nil)
		if err != nil {
			return err
		}
		if err := proj.Delete(entryStoreFor(proj)); err != nil {
			return err
		}
		if err := a.settings.Delete("projects." + proj.Name); err != nil {
			return fmt.Errorf("remove project record: %w", err)
		}
		fmt.Printf("torched project %s\n", proj.Name)
		return nil
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Run the settings document through its migration/healing pass and persist the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.settings.Update(func(doc *settings.Document) error { return nil }); err != nil {
			return err
		}
		fmt.Println("settings document migrated and persisted")
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFile, "file", "", "project-relative file path")
}
