package index

import (
	"context"
	"strings"
	"testing"
)

func TestTreeSitterOutlinerExtractsGoSignatures(t *testing.T) {
	outliner := NewTreeSitterOutliner()
	content := []byte(`package demo

type Widget struct {
	Name string
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func (w *Widget) String() string {
	return w.Name
}
`)

	outline, err := outliner.Outline(context.Background(), "demo.go", content)
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	if !strings.Contains(outline, "type Widget") {
		t.Fatalf("expected type declaration in outline, got %q", outline)
	}
	if !strings.Contains(outline, "func NewWidget") {
		t.Fatalf("expected function declaration in outline, got %q", outline)
	}
}

func TestTreeSitterOutlinerFallsBackForUnknownExtension(t *testing.T) {
	outliner := NewTreeSitterOutliner()
	content := []byte("def handler():\n    pass\n")

	outline, err := outliner.Outline(context.Background(), "script.py", content)
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	if !strings.Contains(outline, "def handler():") {
		t.Fatalf("expected heuristic fallback to surface top-level def, got %q", outline)
	}
}

func TestOutlineByHeuristicIgnoresIndentedLines(t *testing.T) {
	content := []byte("class Foo:\n    def bar(self):\n        pass\n")
	outline := outlineByHeuristic(content)
	if strings.Contains(outline, "pass") {
		t.Fatalf("expected indented lines to be excluded, got %q", outline)
	}
	if !strings.Contains(outline, "class Foo:") {
		t.Fatalf("expected top-level class line, got %q", outline)
	}
}
