package project

import (
	"context"
	"strings"
	"testing"
)

func TestMemorySaveGetListDelete(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	save := MemorySaveTool(store)
	args, _ := save.ReadArgs(map[string]any{"project": "p1", "slug": "pref", "content": "likes tabs"})
	if _, err := save.Call(ctx, args); err != nil {
		t.Fatalf("save: %v", err)
	}

	get := MemoryGetTool(store)
	args, _ = get.ReadArgs(map[string]any{"project": "p1", "slug": "pref"})
	out, err := get.Call(ctx, args)
	if err != nil || out != "likes tabs" {
		t.Fatalf("get: out=%q err=%v", out, err)
	}

	list := MemoryListTool(store)
	args, _ = list.ReadArgs(map[string]any{"project": "p1"})
	out, err = list.Call(ctx, args)
	if err != nil || !strings.Contains(out, "pref") {
		t.Fatalf("list: out=%q err=%v", out, err)
	}

	del := MemoryDeleteTool(store)
	args, _ = del.ReadArgs(map[string]any{"project": "p1", "slug": "pref"})
	if _, err := del.Call(ctx, args); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := get.Call(ctx, args); err == nil {
		t.Fatalf("expected get to fail after delete")
	}
}

func TestMemoryGlobalScopeOmitsProject(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	save := MemorySaveTool(store)
	args, _ := save.ReadArgs(map[string]any{"slug": "global-note", "content": "applies everywhere"})
	if _, err := save.Call(ctx, args); err != nil {
		t.Fatalf("save: %v", err)
	}

	get := MemoryGetTool(store)
	args, _ = get.ReadArgs(map[string]any{"slug": "global-note"})
	out, err := get.Call(ctx, args)
	if err != nil || out != "applies everywhere" {
		t.Fatalf("get: out=%q err=%v", out, err)
	}
}

func TestTaskListAddCompleteGet(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	add := TaskListAddTool(store)
	args, _ := add.ReadArgs(map[string]any{"project": "p1", "slug": "sprint", "text": "write tests"})
	if _, err := add.Call(ctx, args); err != nil {
		t.Fatalf("add: %v", err)
	}
	args, _ = add.ReadArgs(map[string]any{"project": "p1", "slug": "sprint", "text": "ship it"})
	if _, err := add.Call(ctx, args); err != nil {
		t.Fatalf("add 2: %v", err)
	}

	complete := TaskListCompleteTool(store)
	args, _ = complete.ReadArgs(map[string]any{"project": "p1", "slug": "sprint", "index": 1})
	out, err := complete.Call(ctx, args)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(out, "[x] write tests") {
		t.Fatalf("expected first item marked done, got %q", out)
	}
	if !strings.Contains(out, "[ ] ship it") {
		t.Fatalf("expected second item still open, got %q", out)
	}

	complete2 := TaskListCompleteTool(store)
	args, _ = complete2.ReadArgs(map[string]any{"project": "p1", "slug": "sprint", "index": 99})
	if _, err := complete2.Call(ctx, args); err == nil {
		t.Fatalf("expected out-of-range index to fail")
	}
}

func TestStrategySaveUpdateBumpsVersion(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	save := StrategySaveTool(store)
	args, _ := save.ReadArgs(map[string]any{"title": "t", "prompt": "p"})
	out, err := save.Call(ctx, args)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.Contains(out, "version 1") {
		t.Fatalf("expected version 1, got %q", out)
	}

	list := StrategyListTool(store)
	listOut, err := list.Call(ctx, map[string]any{})
	if err != nil || listOut == "no strategies found" {
		t.Fatalf("expected a strategy listed: out=%q err=%v", listOut, err)
	}

	// Extract the id from the list and update it.
	id := strings.TrimSpace(listOut)

	args, _ = save.ReadArgs(map[string]any{"id": id, "title": "t2", "prompt": "p2"})
	out, err = save.Call(ctx, args)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(out, "version 2") {
		t.Fatalf("expected version bumped to 2, got %q", out)
	}
}
