package index

import (
	"context"
	"fmt"
)

// Completer is the minimal chat-completion capability a Summarizer needs: a
// single-turn system+user text request. internal/completion's GenAIClient
// satisfies this via its CompleteText method without C2 depending on C6's
// broader multi-round Client contract, keeping spec.md §2's leaves-first
// dependency order (C2 below C6) intact even though both end up backed by
// the same provider client at wiring time.
type Completer interface {
	CompleteText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

const summarizerSystemPrompt = "You summarize source files for a code index. " +
	"Given a file's path and contents, write a concise plain-text summary " +
	"(2-4 sentences) of what it does and why it exists. No markdown, no " +
	"headers, no code fences."

// LLMSummarizer implements Summarizer by asking a model for prose, per
// spec.md §4.2 step 2's "generate summary ... via the indexer capability".
type LLMSummarizer struct {
	Completer Completer
	Model     string
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, relativePath string, content []byte) (string, error) {
	prompt := fmt.Sprintf("File: %s\n\n%s", relativePath, truncateForPrompt(content))
	out, err := s.Completer.CompleteText(ctx, s.Model, summarizerSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", relativePath, err)
	}
	return out, nil
}

// maxSummaryInputBytes bounds how much of a large file gets sent to the
// model for a summary; the outline and embedding still cover the full file.
const maxSummaryInputBytes = 32 * 1024

func truncateForPrompt(content []byte) []byte {
	if len(content) <= maxSummaryInputBytes {
		return content
	}
	return content[:maxSummaryInputBytes]
}
