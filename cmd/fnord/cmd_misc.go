package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"fnord/internal/frob"
	projecttools "fnord/internal/tools/project"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Save, read, list, or delete project notes",
}

var (
	noteSlug    string
	noteTitle   string
	noteContent string
)

func notesStore() *projecttools.Store {
	return projecttools.NewStore(homeDir)
}

var notesSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a note",
	RunE: func(cmd *cobra.Command, args []string) error {
		if project == "" || noteSlug == "" {
			return fmt.Errorf("--project and --slug are required")
		}
		if _, err := newApp(); err != nil {
			return err
		}
		tool := projecttools.NoteSaveTool(notesStore())
		out, err := tool.Call(context.Background(), map[string]any{
			"project": project, "slug": noteSlug, "title": noteTitle, "content": noteContent,
		})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var notesGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Read a note by slug",
	RunE: func(cmd *cobra.Command, args []string) error {
		if project == "" || noteSlug == "" {
			return fmt.Errorf("--project and --slug are required")
		}
		if _, err := newApp(); err != nil {
			return err
		}
		tool := projecttools.NoteGetTool(notesStore())
		out, err := tool.Call(context.Background(), map[string]any{"project": project, "slug": noteSlug})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's note slugs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if project == "" {
			return fmt.Errorf("--project is required")
		}
		if _, err := newApp(); err != nil {
			return err
		}
		tool := projecttools.NoteListTool(notesStore())
		out, err := tool.Call(context.Background(), map[string]any{"project": project})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a note by slug",
	RunE: func(cmd *cobra.Command, args []string) error {
		if project == "" || noteSlug == "" {
			return fmt.Errorf("--project and --slug are required")
		}
		if _, err := newApp(); err != nil {
			return err
		}
		tool := projecttools.NoteDeleteTool(notesStore())
		out, err := tool.Call(context.Background(), map[string]any{"project": project, "slug": noteSlug})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var frobsCmd = &cobra.Command{
	Use:   "frobs",
	Short: "List external tool integrations available to a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		root := filepath.Join(a.home, "frobs")
		defs, err := frob.Discover(root)
		if err != nil {
			return err
		}
		if len(defs) == 0 {
			fmt.Println("no frobs found under " + root)
			return nil
		}
		for _, def := range defs {
			scope := "global"
			if !def.Registry.Global {
				scope = fmt.Sprintf("projects=%v", def.Registry.Projects)
			}
			fmt.Printf("%s  %s  (%s)\n", def.Spec.Name, def.Spec.Description, scope)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{notesSaveCmd, notesGetCmd, notesListCmd, notesDeleteCmd} {
		c.Flags().StringVar(&noteSlug, "slug", "", "note identifier")
	}
	notesSaveCmd.Flags().StringVar(&noteTitle, "title", "", "note title")
	notesSaveCmd.Flags().StringVar(&noteContent, "content", "", "note body")

	notesCmd.AddCommand(notesSaveCmd, notesGetCmd, notesListCmd, notesDeleteCmd)
}
