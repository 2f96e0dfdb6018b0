package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// StrategyRecord is one research strategy, stored as a single
// prompts/<uuid>/strategy.json file holding title, prompt, questions,
// embedding and version -- a global, non-project-scoped store of reusable
// research prompts. strategy_save leaves Embedding empty, and no other
// code sets it.
type StrategyRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Prompt    string    `json:"prompt"`
	Questions []string  `json:"questions"`
	Embedding []float32 `json:"embedding,omitempty"`
	Version   int       `json:"version"`
}

func (s *Store) strategyDir(id string) string {
	return filepath.Join(s.Home, "prompts", id)
}

func (s *Store) strategyRecordPath(id string) string {
	return filepath.Join(s.strategyDir(id), "strategy.json")
}

// StrategySaveTool creates a new research strategy (id omitted) or
// updates an existing one (id provided), bumping version on update.
func StrategySaveTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "strategy_save",
		Description: "Create or update a research strategy (title, prompt, follow-up questions)",
		Category:    tools.CategoryProject,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, _ := args["id"].(string)
			title, _ := args["title"].(string)
			prompt, _ := args["prompt"].(string)
			var questions []string
			if qs, ok := args["questions"].([]any); ok {
				for _, q := range qs {
					if qs, ok := q.(string); ok {
						questions = append(questions, qs)
					}
				}
			}

			var rec StrategyRecord
			if id == "" {
				id = uuid.NewString()
				rec = StrategyRecord{ID: id, Version: 1}
			} else if readJSON(store.strategyRecordPath(id), &rec) == nil {
				rec.Version++
			} else {
				rec = StrategyRecord{ID: id, Version: 1}
			}
			rec.Title = title
			rec.Prompt = prompt
			rec.Questions = questions

			if err := writeJSONAtomic(store.strategyRecordPath(id), rec); err != nil {
				return "", fmt.Errorf("save strategy %s: %w", id, err)
			}
			logging.Tools("strategy_save: id=%s version=%d", id, rec.Version)
			return fmt.Sprintf("saved strategy %s (version %d)", id, rec.Version), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"title", "prompt"},
			Properties: map[string]tools.Property{
				"id":     {Type: "string", Description: "Existing strategy id to update; omit to create a new one"},
				"title":  {Type: "string", Description: "Short strategy title"},
				"prompt": {Type: "string", Description: "The research prompt body"},
				"questions": {
					Type:        "array",
					Description: "Follow-up questions this strategy should answer",
					Items:       &tools.PropertyItems{Type: "string"},
				},
			},
		},
	}
}

// StrategyGetTool reads back a research strategy by id.
func StrategyGetTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "strategy_get",
		Description: "Read a research strategy by id",
		Category:    tools.CategoryProject,
		Priority:    70,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, _ := args["id"].(string)
			var rec StrategyRecord
			if err := readJSON(store.strategyRecordPath(id), &rec); err != nil {
				return "", fmt.Errorf("strategy %q not found", id)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "# %s (v%d)\n\n%s\n", rec.Title, rec.Version, rec.Prompt)
			for _, q := range rec.Questions {
				fmt.Fprintf(&b, "- %s\n", q)
			}
			return b.String(), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"id"},
			Properties: map[string]tools.Property{
				"id": {Type: "string", Description: "Strategy id"},
			},
		},
	}
}

// StrategyListTool lists known strategy ids.
func StrategyListTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "strategy_list",
		Description: "List research strategy ids",
		Category:    tools.CategoryProject,
		Priority:    65,
		AsyncSafe:   true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir := filepath.Join(store.Home, "prompts")
			entries, err := os.ReadDir(dir)
			if os.IsNotExist(err) {
				return "no strategies found", nil
			}
			if err != nil {
				return "", fmt.Errorf("list strategies: %w", err)
			}
			var ids []string
			for _, e := range entries {
				if e.IsDir() {
					ids = append(ids, e.Name())
				}
			}
			if len(ids) == 0 {
				return "no strategies found", nil
			}
			return strings.Join(ids, "\n"), nil
		},
		Schema: tools.ToolSchema{},
	}
}

// StrategyDeleteTool removes a research strategy by id.
func StrategyDeleteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "strategy_delete",
		Description: "Delete a research strategy",
		Category:    tools.CategoryProject,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, _ := args["id"].(string)
			if err := os.RemoveAll(store.strategyDir(id)); err != nil {
				return "", fmt.Errorf("delete strategy %s: %w", id, err)
			}
			logging.Tools("strategy_delete: id=%s", id)
			return fmt.Sprintf("deleted strategy %s", id), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"id"},
			Properties: map[string]tools.Property{
				"id": {Type: "string", Description: "Strategy id"},
			},
		},
	}
}
