package project

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// MemoryRecord is one long-term memory entry, stored at
// <project>/memory/<slug>.json or, when Project is empty, global
// memory/<slug>.json (spec.md §6).
type MemoryRecord struct {
	Slug      string `json:"slug"`
	Project   string `json:"project,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func memoryProperties() map[string]tools.Property {
	return map[string]tools.Property{
		"slug":    {Type: "string", Description: "Short identifier for this memory"},
		"project": {Type: "string", Description: "Project name; omit for a global memory"},
		"content": {Type: "string", Description: "The memory text"},
	}
}

// MemorySaveTool creates or overwrites a long-term memory.
func MemorySaveTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "memory_save",
		Description: "Create or update a long-term memory",
		Category:    tools.CategoryProject,
		Priority:    70,
		Execute:     memorySaveExecute(store),
		Schema: tools.ToolSchema{
			Required:   []string{"slug", "content"},
			Properties: memoryProperties(),
		},
	}
}

func memorySaveExecute(store *Store) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		slug, _ := args["slug"].(string)
		project, _ := args["project"].(string)
		content, _ := args["content"].(string)

		path := store.memoryPath(project, slug)
		rec := MemoryRecord{Slug: slug, Project: project, Content: content, UpdatedAt: nowRFC3339()}
		var existing MemoryRecord
		if readJSON(path, &existing) == nil {
			rec.CreatedAt = existing.CreatedAt
		} else {
			rec.CreatedAt = rec.UpdatedAt
		}

		if err := writeJSONAtomic(path, rec); err != nil {
			return "", fmt.Errorf("save memory %s: %w", slug, err)
		}
		logging.Tools("memory_save: slug=%s project=%s", slug, project)
		return fmt.Sprintf("saved memory %q", slug), nil
	}
}

// MemoryGetTool reads back a memory by slug.
func MemoryGetTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "memory_get",
		Description: "Read a long-term memory by slug",
		Category:    tools.CategoryProject,
		Priority:    70,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			slug, _ := args["slug"].(string)
			project, _ := args["project"].(string)
			var rec MemoryRecord
			if err := readJSON(store.memoryPath(project, slug), &rec); err != nil {
				return "", fmt.Errorf("memory %q not found", slug)
			}
			return rec.Content, nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"slug"},
			Properties: map[string]tools.Property{
				"slug":    {Type: "string", Description: "Memory identifier"},
				"project": {Type: "string", Description: "Project name; omit for a global memory"},
			},
		},
	}
}

// MemoryListTool lists known memory slugs for a project or the global
// store.
func MemoryListTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "memory_list",
		Description: "List long-term memory slugs",
		Category:    tools.CategoryProject,
		Priority:    65,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			dir := store.memoryPath(project, "placeholder")
			dir = dir[:len(dir)-len("placeholder.json")]
			slugs, err := listSlugs(dir)
			if err != nil {
				return "", fmt.Errorf("list memories: %w", err)
			}
			if len(slugs) == 0 {
				return "no memories found", nil
			}
			return strings.Join(slugs, "\n"), nil
		},
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name; omit to list global memories"},
			},
		},
	}
}

// MemoryDeleteTool removes a memory by slug.
func MemoryDeleteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "memory_delete",
		Description: "Delete a long-term memory",
		Category:    tools.CategoryProject,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			slug, _ := args["slug"].(string)
			project, _ := args["project"].(string)
			path := store.memoryPath(project, slug)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return "", fmt.Errorf("delete memory %s: %w", slug, err)
			}
			logging.Tools("memory_delete: slug=%s project=%s", slug, project)
			return fmt.Sprintf("deleted memory %q", slug), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"slug"},
			Properties: map[string]tools.Property{
				"slug":    {Type: "string", Description: "Memory identifier"},
				"project": {Type: "string", Description: "Project name; omit for a global memory"},
			},
		},
	}
}
