package convstore

import (
	"testing"
	"time"

	"fnord/internal/completion"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	conv := New()
	conv.Messages = append(conv.Messages, completion.Message{Role: completion.RoleUser, Content: "hello"})

	if err := store.Save("proj", conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("proj", conv.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != conv.ID || len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Fatalf("unexpected loaded conversation: %+v", loaded)
	}
}

func TestForkCopiesHistoryUpToIndex(t *testing.T) {
	src := New()
	src.Messages = []completion.Message{
		{Role: completion.RoleUser, Content: "a"},
		{Role: completion.RoleAssistant, Content: "b"},
		{Role: completion.RoleUser, Content: "c"},
	}

	forked := Fork(src, 1)
	if forked.ID == src.ID {
		t.Fatalf("expected a fresh id")
	}
	if len(forked.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(forked.Messages))
	}

	forked.Messages[0].Content = "mutated"
	if src.Messages[0].Content == "mutated" {
		t.Fatalf("fork must not alias source's backing array")
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())

	older := New()
	older.Timestamp = time.Now().Add(-48 * time.Hour)
	newer := New()
	newer.Timestamp = time.Now()

	if err := store.Save("proj", older); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("proj", newer); err != nil {
		t.Fatal(err)
	}

	list, err := store.List("proj")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newer first, got %+v", list)
	}
}

func TestPruneRemovesOlderThanCutoff(t *testing.T) {
	store := NewStore(t.TempDir())

	stale := New()
	stale.Timestamp = time.Now().AddDate(0, 0, -10)
	fresh := New()
	fresh.Timestamp = time.Now()

	if err := store.Save("proj", stale); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("proj", fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune("proj", 7)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	list, err := store.List("proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != fresh.ID {
		t.Fatalf("expected only fresh conversation left, got %+v", list)
	}
}
