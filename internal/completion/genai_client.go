package completion

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// GenAIClient implements Client against Google's Gemini API via the official
// google.golang.org/genai SDK, the way internal/embedding's GenAIEngine
// builds its client — construction is the same, the surface used (chat +
// function calling) is different.
type GenAIClient struct {
	client *genai.Client
}

// NewGenAIClient dials the Gemini API. apiKey must be non-empty.
func NewGenAIClient(ctx context.Context, apiKey string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	logging.Completion("creating GenAI completion client")
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &GenAIClient{client: client}, nil
}

// Complete implements Client, per spec.md §4.6 step 2's {model, messages,
// tool_specs} -> {text, tool_calls, usage} request/response shape.
func (c *GenAIClient) Complete(ctx context.Context, model string, messages []Message, toolSpecs []ToolSpec) (*Response, error) {
	start := time.Now()

	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, &genai.Part{Text: m.Content})
		case RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		case RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: tc.Args}})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.Name,
						Response: map[string]any{"content": m.Content},
					},
				}},
			})
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: systemParts}
	}
	if len(toolSpecs) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(toolSpecs))
		for i, spec := range toolSpecs {
			decls[i] = &genai.FunctionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  schemaToGenAI(spec.Schema),
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		logging.CompletionError("GenerateContent failed after %v: %v", time.Since(start), err)
		return nil, fmt.Errorf("genai: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("genai: empty response")
	}

	out := &Response{}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	for i, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, ToolCallRequest{
				ID:   fmt.Sprintf("call_%d", i),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	logging.CompletionDebug("GenerateContent model=%s rounds_text_len=%d tool_calls=%d took=%v",
		model, len(out.Text), len(out.ToolCalls), time.Since(start))
	return out, nil
}

// CompleteText runs a single-turn system+user completion and returns just
// the text, satisfying internal/index's narrower Completer interface so C2
// can drive a summarizer off the same client as C6 without depending on
// completion's full Client contract.
func (c *GenAIClient) CompleteText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.Complete(ctx, model, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// schemaToGenAI adapts internal/tools' provider-agnostic ToolSchema into the
// SDK's genai.Schema, the way embedding/genai.go in the teacher builds a
// GenAI request from neutral inputs.
func schemaToGenAI(s tools.ToolSchema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = propertyToGenAI(p)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required,
	}
}

func propertyToGenAI(p tools.Property) *genai.Schema {
	schema := &genai.Schema{
		Type:        genAIType(p.Type),
		Description: p.Description,
	}
	if len(p.Enum) > 0 {
		enum := make([]string, 0, len(p.Enum))
		for _, v := range p.Enum {
			enum = append(enum, fmt.Sprintf("%v", v))
		}
		schema.Enum = enum
	}
	if p.Items != nil {
		schema.Items = &genai.Schema{Type: genAIType(p.Items.Type)}
	}
	return schema
}

func genAIType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
