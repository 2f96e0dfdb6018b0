package index

import (
	"context"
	"strings"
	"testing"
)

type fakeCompleter struct {
	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) CompleteText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return "does a thing", nil
}

func TestLLMSummarizerIncludesPathAndContent(t *testing.T) {
	completer := &fakeCompleter{}
	summarizer := &LLMSummarizer{Completer: completer, Model: "test-model"}

	out, err := summarizer.Summarize(context.Background(), "auth/login.go", []byte("package auth"))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "does a thing" {
		t.Fatalf("unexpected summary: %q", out)
	}
	if !strings.Contains(completer.lastUser, "auth/login.go") || !strings.Contains(completer.lastUser, "package auth") {
		t.Fatalf("expected prompt to include path and content, got %q", completer.lastUser)
	}
}

func TestLLMSummarizerTruncatesLargeFiles(t *testing.T) {
	completer := &fakeCompleter{}
	summarizer := &LLMSummarizer{Completer: completer, Model: "test-model"}

	big := strings.Repeat("x", maxSummaryInputBytes+100)
	if _, err := summarizer.Summarize(context.Background(), "big.go", []byte(big)); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(completer.lastUser) > maxSummaryInputBytes+200 {
		t.Fatalf("expected prompt to be truncated, got length %d", len(completer.lastUser))
	}
}
