// Package semantic implements C3's semantic_search built-in tool, wired to
// C2's sqlite-vec cache (internal/index.VecStore) rather than a linear scan
// over every stored embedding, per SPEC_FULL.md's C2 section.
package semantic

import (
	"context"
	"fmt"
	"strings"

	"fnord/internal/embedding"
	"fnord/internal/index"
	"fnord/internal/logging"
	"fnord/internal/tools"
)

// SearchTool returns the semantic_search built-in. embedder turns the
// query text into the same vector space as the project's indexed
// derivatives; store is the project's sqlite-vec cache.
func SearchTool(embedder embedding.EmbeddingEngine, store *index.VecStore) *tools.Tool {
	return &tools.Tool{
		Name:        "semantic_search",
		Description: "Find files semantically related to a query using the project's embedding index",
		Category:    tools.CategorySearch,
		Priority:    90,
		AsyncSafe:   true,
		Execute:     executeSemanticSearch(embedder, store),
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query": {Type: "string", Description: "Natural-language description of what to find"},
				"limit": {Type: "integer", Description: "Maximum number of results (default 10)", Default: 10},
			},
		},
	}
}

func executeSemanticSearch(embedder embedding.EmbeddingEngine, store *index.VecStore) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("query is required")
		}
		limit := 10
		if l, ok := args["limit"].(int); ok && l > 0 {
			limit = l
		}

		vec, err := embedder.Embed(ctx, query)
		if err != nil {
			return "", fmt.Errorf("embed query: %w", err)
		}

		results, err := store.Search(ctx, vec, limit)
		if err != nil {
			return "", fmt.Errorf("vector search: %w", err)
		}
		if len(results) == 0 {
			return "no semantically related files found", nil
		}

		logging.Tools("semantic_search: query=%q results=%d", query, len(results))

		var b strings.Builder
		for _, r := range results {
			fmt.Fprintf(&b, "%.3f  %s\n", r.Score, r.RelativePath)
			if r.Summary != "" {
				fmt.Fprintf(&b, "      %s\n", r.Summary)
			}
		}
		return b.String(), nil
	}
}
