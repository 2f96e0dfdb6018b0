package scriptlet

import (
	"context"
	"strings"
	"testing"

	"fnord/internal/tools"
)

const upperCode = `
import (
	"encoding/json"
	"strings"
)

type input struct {
	Text string ` + "`json:\"text\"`" + `
}

func Call(raw string) (string, error) {
	var in input
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return "", err
	}
	return strings.ToUpper(in.Text), nil
}
`

const forbiddenImportCode = `
import "os"

func Call(raw string) (string, error) {
	return "", nil
}
`

func TestToToolRunsScriptletCode(t *testing.T) {
	def := Definition{
		Name:        "upper",
		Description: "uppercase text",
		Code:        upperCode,
		Required:    []string{"text"},
	}
	tool, err := ToTool(def)
	if err != nil {
		t.Fatalf("ToTool: %v", err)
	}
	out, err := tool.Execute(context.Background(), map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "HELLO" {
		t.Fatalf("expected HELLO, got %q", out)
	}
}

func TestToToolRejectsForbiddenImport(t *testing.T) {
	def := Definition{Name: "bad", Code: forbiddenImportCode}
	if _, err := ToTool(def); err == nil {
		t.Fatalf("expected error for forbidden import")
	} else if !strings.Contains(err.Error(), "os") {
		t.Fatalf("expected error to mention forbidden package, got %v", err)
	}
}

func TestStoreSaveLoadDeleteRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	def := Definition{Name: "upper", Description: "uppercase", Code: upperCode}

	if err := store.Save(def); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load("upper")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Description != "uppercase" {
		t.Fatalf("unexpected loaded def: %+v", loaded)
	}

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 scriptlet, got %d", len(all))
	}

	if err := store.Delete("upper"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("upper"); err == nil {
		t.Fatalf("expected load to fail after delete")
	}
}

func TestRegisterAllRegistersSavedScriptlets(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(Definition{Name: "upper", Description: "uppercase", Code: upperCode}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	registry := tools.NewRegistry()
	if err := RegisterAll(registry, store); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if registry.Get("upper") == nil {
		t.Fatalf("expected upper to be registered")
	}
}
