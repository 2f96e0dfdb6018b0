package completion

import (
	"context"
	"fmt"
	"strings"
)

// TimestampClassifier backs step 6's auto-timestamping decision with a
// second, cheaper model call through the same Client interface the main
// loop uses, rather than a bespoke HTTP path.
type TimestampClassifier struct {
	Client Client
	Model  string
}

const classifierPrompt = "You are deciding whether a new user message continues " +
	"the conversation below or starts an unrelated new topic. Reply with exactly " +
	"one word: \"new\" or \"continue\"."

// ClassifyNewOrContinue implements Classifier.
func (c *TimestampClassifier) ClassifyNewOrContinue(ctx context.Context, tail []Message, prompt string) (string, error) {
	var transcript strings.Builder
	for _, m := range tail {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&transcript, "user: %s\n", prompt)

	messages := []Message{
		{Role: RoleSystem, Content: classifierPrompt},
		{Role: RoleUser, Content: transcript.String()},
	}
	resp, err := c.Client.Complete(ctx, c.Model, messages, nil)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	verdict := strings.ToLower(strings.TrimSpace(resp.Text))
	if strings.Contains(verdict, "new") {
		return "new", nil
	}
	return "continue", nil
}
