package project

import (
	"fnord/internal/tools"
)

// RegisterAll registers the strategy/notes/memory/task-list CRUD tool
// families with the given registry.
func RegisterAll(registry *tools.Registry, store *Store) error {
	allTools := []*tools.Tool{
		MemorySaveTool(store),
		MemoryGetTool(store),
		MemoryListTool(store),
		MemoryDeleteTool(store),

		NoteSaveTool(store),
		NoteGetTool(store),
		NoteListTool(store),
		NoteDeleteTool(store),

		TaskListAddTool(store),
		TaskListCompleteTool(store),
		TaskListGetTool(store),
		TaskListDeleteTool(store),

		StrategySaveTool(store),
		StrategyGetTool(store),
		StrategyListTool(store),
		StrategyDeleteTool(store),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}
