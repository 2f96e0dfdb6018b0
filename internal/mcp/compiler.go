package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fnord/internal/embedding"
	"fnord/internal/logging"
)

// ToolCompiler builds a context-aware tool catalog for a completion round,
// fitting the description/schema detail it sends to the model within a
// token budget. It is how remote MCP tools get narrowed down before being
// merged with the registry's built-ins for a round's tool list.
type ToolCompiler struct {
	store    *MCPToolStore
	embedder embedding.EmbeddingEngine
	config   ToolSelectionConfig
}

// NewToolCompiler creates a new tool compiler.
func NewToolCompiler(store *MCPToolStore, embedder embedding.EmbeddingEngine) *ToolCompiler {
	return &ToolCompiler{
		store:    store,
		embedder: embedder,
		config:   DefaultToolSelectionConfig(),
	}
}

// SetConfig sets the tool selection configuration.
func (c *ToolCompiler) SetConfig(config ToolSelectionConfig) {
	c.config = config
}

// Compile generates a context-aware tool set.
func (c *ToolCompiler) Compile(ctx context.Context, tcc ToolCompilationContext) (*CompiledToolSet, error) {
	start := time.Now()
	stats := ToolCompilationStats{
		TokenBudget: tcc.TokenBudget,
	}

	if tcc.TokenBudget == 0 {
		tcc.TokenBudget = c.config.TokenBudget
		stats.TokenBudget = tcc.TokenBudget
	}

	allTools, err := c.store.GetAllTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tools: %w", err)
	}
	stats.TotalTools = len(allTools)

	if len(allTools) == 0 {
		return &CompiledToolSet{Stats: stats}, nil
	}

	var vectorScores map[string]float64
	vectorStart := time.Now()
	if c.embedder != nil && tcc.TaskDescription != "" {
		vectorScores, err = c.vectorSearch(ctx, tcc.TaskDescription, allTools)
		if err != nil {
			logging.Get(logging.CategoryTools).Debug("vector search failed: %v", err)
		}
	}
	stats.VectorQueryMs = time.Since(vectorStart).Milliseconds()

	selectStart := time.Now()
	selected := c.selectTools(tcc, allTools, vectorScores)
	stats.SelectQueryMs = time.Since(selectStart).Milliseconds()

	result := c.buildToolSet(allTools, selected, &stats)

	c.fitBudget(result, tcc.TokenBudget, &stats)

	stats.Duration = time.Since(start)
	result.Stats = stats

	logging.Get(logging.CategoryTools).Info(
		"tool compiler: %dms | tools=%d (full=%d, condensed=%d, minimal=%d) | vec=%dms | budget=%d/%d",
		stats.Duration.Milliseconds(),
		stats.SelectedTools,
		len(result.FullTools),
		len(result.CondensedTools),
		len(result.MinimalTools),
		stats.VectorQueryMs,
		stats.TokensUsed,
		stats.TokenBudget,
	)

	return result, nil
}

// vectorSearch performs semantic search over tool embeddings.
func (c *ToolCompiler) vectorSearch(ctx context.Context, query string, tools []*MCPTool) (map[string]float64, error) {
	queryEmbed, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := c.store.SemanticSearch(ctx, queryEmbed, len(tools))
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, r := range results {
		scores[r.ToolID] = r.Score
	}
	return scores, nil
}

// usageScore derives a 0-100 score from a tool's historical success rate,
// so tools that have worked reliably in the past are favored over those
// that have only ever failed, independent of semantic relevance.
func usageScore(tool *MCPTool) int {
	if tool.UsageCount == 0 {
		return 50 // no history, neutral prior
	}
	rate := float64(tool.SuccessCount) / float64(tool.UsageCount)
	return int(rate * 100)
}

// selectTools scores every discovered tool by blended usage + vector
// relevance and assigns each a render mode (or excludes it).
func (c *ToolCompiler) selectTools(tcc ToolCompilationContext, tools []*MCPTool, vectorScores map[string]float64) []SelectedTool {
	type scoredTool struct {
		tool       *MCPTool
		usage      int
		vec        int
		finalScore int
	}

	var scored []scoredTool
	for _, tool := range tools {
		st := scoredTool{tool: tool, usage: usageScore(tool)}
		if score, ok := vectorScores[tool.ToolID]; ok {
			st.vec = int(score * 100)
		} else if tcc.TaskDescription == "" {
			// No task description to score against: don't penalize tools
			// just because there is nothing to compare them to.
			st.vec = 50
		}
		st.finalScore = int(float64(st.usage)*c.config.UsageWeight + float64(st.vec)*c.config.VectorWeight)
		scored = append(scored, st)
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].finalScore > scored[j].finalScore
	})

	var selected []SelectedTool
	for _, st := range scored {
		var mode RenderMode
		switch {
		case st.finalScore >= c.config.FullThreshold:
			mode = RenderModeFull
		case st.finalScore >= c.config.CondensedThreshold:
			mode = RenderModeCondensed
		case st.finalScore >= c.config.MinimalThreshold:
			mode = RenderModeMinimal
		default:
			continue
		}

		selected = append(selected, SelectedTool{
			ToolID:      st.tool.ToolID,
			RenderMode:  mode,
			UsageScore:  st.usage,
			VectorScore: st.vec,
			FinalScore:  st.finalScore,
		})
	}

	return selected
}

// buildToolSet builds the compiled tool set from selected tools.
func (c *ToolCompiler) buildToolSet(allTools []*MCPTool, selected []SelectedTool, stats *ToolCompilationStats) *CompiledToolSet {
	toolMap := make(map[string]*MCPTool)
	for _, t := range allTools {
		toolMap[t.ToolID] = t
	}

	result := &CompiledToolSet{}

	for _, sel := range selected {
		tool, ok := toolMap[sel.ToolID]
		if !ok {
			continue
		}

		switch sel.RenderMode {
		case RenderModeFull:
			result.FullTools = append(result.FullTools, *tool)
			stats.SkeletonTools++
		case RenderModeCondensed:
			result.CondensedTools = append(result.CondensedTools, ToolSummary{
				Name:      tool.Name,
				Condensed: tool.Condensed,
				ServerID:  tool.ServerID,
			})
			stats.FleshTools++
		case RenderModeMinimal:
			result.MinimalTools = append(result.MinimalTools, tool.Name)
			stats.FleshTools++
		}
	}

	stats.SelectedTools = len(result.FullTools) + len(result.CondensedTools) + len(result.MinimalTools)
	return result
}

// fitBudget ensures the tool set fits within the token budget by
// progressively demoting the lowest-ranked entries to a cheaper render mode.
func (c *ToolCompiler) fitBudget(result *CompiledToolSet, budget int, stats *ToolCompilationStats) {
	const (
		fullToolTokens      = 200
		condensedToolTokens = 30
		minimalToolTokens   = 5
	)

	tokens := len(result.FullTools)*fullToolTokens +
		len(result.CondensedTools)*condensedToolTokens +
		len(result.MinimalTools)*minimalToolTokens

	for tokens > budget && len(result.FullTools) > c.config.MaxFullTools {
		lastFull := result.FullTools[len(result.FullTools)-1]
		result.FullTools = result.FullTools[:len(result.FullTools)-1]
		result.CondensedTools = append(result.CondensedTools, ToolSummary{
			Name:      lastFull.Name,
			Condensed: lastFull.Condensed,
			ServerID:  lastFull.ServerID,
		})
		tokens = tokens - fullToolTokens + condensedToolTokens
	}

	for tokens > budget && len(result.CondensedTools) > c.config.MaxCondensedTools {
		lastCondensed := result.CondensedTools[len(result.CondensedTools)-1]
		result.CondensedTools = result.CondensedTools[:len(result.CondensedTools)-1]
		result.MinimalTools = append(result.MinimalTools, lastCondensed.Name)
		tokens = tokens - condensedToolTokens + minimalToolTokens
	}

	for tokens > budget && len(result.MinimalTools) > 0 {
		result.MinimalTools = result.MinimalTools[:len(result.MinimalTools)-1]
		tokens -= minimalToolTokens
	}

	stats.TokensUsed = tokens
}

// CompileForTask is a convenience wrapper around Compile using the
// compiler's default token budget.
func (c *ToolCompiler) CompileForTask(ctx context.Context, taskDescription string) (*CompiledToolSet, error) {
	return c.Compile(ctx, ToolCompilationContext{
		TaskDescription: taskDescription,
		TokenBudget:     c.config.TokenBudget,
	})
}
