package index

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"fnord/internal/logging"
)

// TreeSitterOutliner implements Outliner as a structural fallback: when no
// model-backed summarizing step is configured (or it fails), it extracts
// top-level function/method/type signatures instead of prose.
//
// Only Go gets a real tree-sitter grammar today; other languages fall back
// to a cheap line-based heuristic. A goParser pool avoids re-allocating
// tree-sitter parsers across concurrent IndexFile calls.
type TreeSitterOutliner struct {
	goParsers sync.Pool
}

// NewTreeSitterOutliner returns an Outliner backed by tree-sitter.
func NewTreeSitterOutliner() *TreeSitterOutliner {
	return &TreeSitterOutliner{
		goParsers: sync.Pool{
			New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(golang.GetLanguage())
				return p
			},
		},
	}
}

// Outline implements Outliner.
func (o *TreeSitterOutliner) Outline(ctx context.Context, relativePath string, content []byte) (string, error) {
	switch filepath.Ext(relativePath) {
	case ".go":
		return o.outlineGo(ctx, relativePath, content)
	default:
		return outlineByHeuristic(content), nil
	}
}

func (o *TreeSitterOutliner) outlineGo(ctx context.Context, relativePath string, content []byte) (string, error) {
	parser := o.goParsers.Get().(*sitter.Parser)
	defer o.goParsers.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", relativePath, err)
	}
	defer tree.Close()

	var lines []string
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "function_declaration":
			lines = append(lines, signatureLine(n, content, "func "))
		case "method_declaration":
			lines = append(lines, signatureLine(n, content, "func "))
		case "type_declaration":
			for j := 0; j < int(n.NamedChildCount()); j++ {
				spec := n.NamedChild(j)
				if spec.Type() == "type_spec" {
					if name := spec.ChildByFieldName("name"); name != nil {
						lines = append(lines, "type "+name.Content(content))
					}
				}
			}
		}
	}
	if len(lines) == 0 {
		logging.IndexDebug("tree-sitter outline for %s produced no symbols, falling back to heuristic", relativePath)
		return outlineByHeuristic(content), nil
	}
	return strings.Join(lines, "\n"), nil
}

func signatureLine(n *sitter.Node, content []byte, prefix string) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return prefix + n.Content(content)
	}
	sig := prefix + name.Content(content)
	if params := n.ChildByFieldName("parameters"); params != nil {
		sig += params.Content(content)
	}
	if result := n.ChildByFieldName("result"); result != nil {
		sig += " " + result.Content(content)
	}
	return sig
}

// outlineByHeuristic extracts lines that look like top-level declarations
// (no leading whitespace, ends in a brace or colon) for languages without a
// registered grammar. Crude, but good enough as a staleness-safe fallback.
func outlineByHeuristic(content []byte) string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			continue
		}
		if line != strings.TrimLeft(line, " \t") {
			continue // indented: not top-level
		}
		if strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, ":") ||
			strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "function ") || strings.HasPrefix(trimmed, "export ") {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
