package project

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// TaskItem is one entry in a task list.
type TaskItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// TaskListRecord is one named task list, stored at
// <project>/tasks/<slug>.json.
type TaskListRecord struct {
	Slug      string     `json:"slug"`
	Items     []TaskItem `json:"items"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

func loadOrNewTaskList(store *Store, project, slug string) (TaskListRecord, string) {
	path := store.taskListPath(project, slug)
	var rec TaskListRecord
	if readJSON(path, &rec) != nil {
		rec = TaskListRecord{Slug: slug, CreatedAt: nowRFC3339()}
	}
	return rec, path
}

func renderTaskList(rec TaskListRecord) string {
	if len(rec.Items) == 0 {
		return fmt.Sprintf("task list %q is empty", rec.Slug)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "task list %q:\n", rec.Slug)
	for i, item := range rec.Items {
		box := "[ ]"
		if item.Done {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, box, item.Text)
	}
	return b.String()
}

// TaskListAddTool appends a new item to a task list, creating it if it
// doesn't exist yet.
func TaskListAddTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "task_list_add",
		Description: "Add an item to a task list, creating the list if needed",
		Category:    tools.CategoryProject,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			text, _ := args["text"].(string)

			rec, path := loadOrNewTaskList(store, project, slug)
			rec.Items = append(rec.Items, TaskItem{Text: text})
			rec.UpdatedAt = nowRFC3339()
			if err := writeJSONAtomic(path, rec); err != nil {
				return "", fmt.Errorf("save task list %s: %w", slug, err)
			}
			logging.Tools("task_list_add: project=%s slug=%s", project, slug)
			return renderTaskList(rec), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug", "text"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Task list identifier"},
				"text":    {Type: "string", Description: "The task description"},
			},
		},
	}
}

// TaskListCompleteTool marks an item done by its 1-based position.
func TaskListCompleteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "task_list_complete",
		Description: "Mark a task list item done by its 1-based position",
		Category:    tools.CategoryProject,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			index, _ := args["index"].(int)

			rec, path := loadOrNewTaskList(store, project, slug)
			if index < 1 || index > len(rec.Items) {
				return "", fmt.Errorf("index %d out of range (list has %d items)", index, len(rec.Items))
			}
			rec.Items[index-1].Done = true
			rec.UpdatedAt = nowRFC3339()
			if err := writeJSONAtomic(path, rec); err != nil {
				return "", fmt.Errorf("save task list %s: %w", slug, err)
			}
			logging.Tools("task_list_complete: project=%s slug=%s index=%d", project, slug, index)
			return renderTaskList(rec), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug", "index"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Task list identifier"},
				"index":   {Type: "integer", Description: "1-based position of the item to complete"},
			},
		},
	}
}

// TaskListGetTool renders a task list.
func TaskListGetTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "task_list_get",
		Description: "Show a task list",
		Category:    tools.CategoryProject,
		Priority:    70,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			rec, _ := loadOrNewTaskList(store, project, slug)
			return renderTaskList(rec), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Task list identifier"},
			},
		},
	}
}

// TaskListDeleteTool removes a task list entirely.
func TaskListDeleteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "task_list_delete",
		Description: "Delete a task list",
		Category:    tools.CategoryProject,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, _ := args["project"].(string)
			slug, _ := args["slug"].(string)
			path := store.taskListPath(project, slug)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return "", fmt.Errorf("delete task list %s: %w", slug, err)
			}
			logging.Tools("task_list_delete: project=%s slug=%s", project, slug)
			return fmt.Sprintf("deleted task list %q", slug), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"project", "slug"},
			Properties: map[string]tools.Property{
				"project": {Type: "string", Description: "Project name"},
				"slug":    {Type: "string", Description: "Task list identifier"},
			},
		},
	}
}
