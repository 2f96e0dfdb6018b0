package project

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// NoteRecord is one project note, stored at <project>/notes/<slug>.json.
type NoteRecord struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NoteSaveTool creates or overwrites a project note.
func NoteSaveTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "notes_save",
		Description: "Create or update a project note",
		Category:    tools.CategoryProject,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			title, _ := args["title"].(string)
			content, _ := args["content"].(string)

			path := store.notesPath(project, slug)
			rec := NoteRecord{Slug: slug, Title: title, Content: content, UpdatedAt: nowRFC3339()}
			var existing NoteRecord
			if readJSON(path, &existing) == nil {
				rec.CreatedAt = existing.CreatedAt
			} else {
				rec.CreatedAt = rec.UpdatedAt
			}
			if err := writeJSONAtomic(path, rec); err != nil {
				return "", fmt.Errorf("save note %s: %w", slug, err)
			}
			logging.Tools("notes_save: project=%s slug=%s", project, slug)
			return fmt.Sprintf("saved note %q", slug), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug", "content"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Short identifier for this note"},
				"title":   {Type: "string", Description: "Human-readable title"},
				"content": {Type: "string", Description: "Note body"},
			},
		},
	}
}

// NoteGetTool reads back a note by slug.
func NoteGetTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "notes_get",
		Description: "Read a project note by slug",
		Category:    tools.CategoryProject,
		Priority:    70,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			var rec NoteRecord
			if err := readJSON(store.notesPath(project, slug), &rec); err != nil {
				return "", fmt.Errorf("note %q not found", slug)
			}
			return fmt.Sprintf("# %s\n\n%s", rec.Title, rec.Content), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Note identifier"},
			},
		},
	}
}

// NoteListTool lists a project's note slugs.
func NoteListTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "notes_list",
		Description: "List a project's note slugs",
		Category:    tools.CategoryProject,
		Priority:    65,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			dir := store.notesPath(project, "placeholder")
			dir = dir[:len(dir)-len("placeholder.json")]
			slugs, err := listSlugs(dir)
			if err != nil {
				return "", fmt.Errorf("list notes: %w", err)
			}
			if len(slugs) == 0 {
				return "no notes found", nil
			}
			return strings.Join(slugs, "\n"), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
			},
		},
	}
}

// NoteDeleteTool removes a note by slug.
func NoteDeleteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "notes_delete",
		Description: "Delete a project note",
		Category:    tools.CategoryProject,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			path := store.notesPath(project, slug)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return "", fmt.Errorf("delete note %s: %w", slug, err)
			}
			logging.Tools("notes_delete: project=%s slug=%s", project, slug)
			return fmt.Sprintf("deleted note %q", slug), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Note identifier"},
			},
		},
	}
}
