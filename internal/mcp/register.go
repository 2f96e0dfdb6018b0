package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fnord/internal/tools"
)

// RegisterServerTools installs every tool offered by an already-connected
// server as a synthetic built-in named "<server>_<tool>", per spec.md
// §4.3's remote tool family: "installs each as a synthetic built-in...
// passing calls through to the transport with a bounded per-call timeout."
// This is the direct path the completion loop's plain tools.Registry
// needs; it bypasses DiscoverTools' LLM condensation pipeline (built for
// the JIT tool-serving surface), since a freshly-installed remote tool
// should be usable the moment a server connects, not after an analyzer
// pass.
func RegisterServerTools(ctx context.Context, registry *tools.Registry, manager *MCPClientManager, serverID string, callTimeout time.Duration) error {
	conn, ok := manager.GetServer(serverID)
	if !ok {
		return fmt.Errorf("mcp server %s is not connected", serverID)
	}

	schemas, err := conn.Transport.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools from %s: %w", serverID, err)
	}

	for _, schema := range schemas {
		t := toolFromSchema(manager, serverID, schema, callTimeout)
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register mcp tool %s: %w", t.Name, err)
		}
	}
	return nil
}

func toolFromSchema(manager *MCPClientManager, serverID string, schema MCPToolSchema, callTimeout time.Duration) *tools.Tool {
	name := serverID + "_" + schema.Name
	toolID := serverID + "/" + schema.Name
	props, required := schemaFromJSON(schema.InputSchema)

	return &tools.Tool{
		Name:        name,
		Description: schema.Description,
		Category:    tools.CategoryRemote,
		AsyncSafe:   true,
		Schema:      tools.ToolSchema{Required: required, Properties: props},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()

			result, err := manager.CallTool(callCtx, toolID, args)
			if err != nil {
				return "", fmt.Errorf("mcp call %s: %w", name, err)
			}
			if !result.Success {
				return "", fmt.Errorf("mcp call %s failed: %s", name, result.Error)
			}
			return string(result.Output), nil
		},
	}
}

// schemaFromJSON best-effort decodes a JSON-schema "object" document (the
// shape every MCP server's inputSchema takes) into fnord's neutral
// tools.Property map. Unrecognised shapes degrade to an empty schema
// rather than failing registration -- a remote tool with an odd schema is
// still better installed (args pass through unchecked) than dropped.
func schemaFromJSON(raw json.RawMessage) (map[string]tools.Property, []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil
	}
	if len(doc.Properties) == 0 {
		return nil, doc.Required
	}
	props := make(map[string]tools.Property, len(doc.Properties))
	for name, p := range doc.Properties {
		props[name] = tools.Property{Type: p.Type, Description: p.Description}
	}
	return props, doc.Required
}
