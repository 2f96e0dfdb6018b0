package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

// newTestMCPWebSocketServer serves a minimal MCP JSON-RPC protocol over a
// WebSocket connection: initialize, tools/list, tools/call, ping.
func newTestMCPWebSocketServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := websocket.Handler(func(ws *websocket.Conn) {
		for {
			var req mcpRequest
			if err := websocket.JSON.Receive(ws, &req); err != nil {
				return
			}

			resp := mcpResponse{JSONRPC: "2.0", ID: req.ID}
			switch req.Method {
			case "initialize":
				resp.Result, _ = json.Marshal(map[string]any{
					"capabilities": map[string]any{"tools": true},
					"serverInfo":   map[string]any{"name": "test", "version": "1.0"},
				})
			case "tools/list":
				resp.Result, _ = json.Marshal(map[string]any{
					"tools": []MCPToolSchema{{Name: "echo", Description: "echoes input"}},
				})
			case "tools/call":
				resp.Result, _ = json.Marshal(map[string]any{"echoed": true})
			case "ping":
				resp.Result = json.RawMessage(`{}`)
			default:
				resp.Error = &mcpError{Code: -32601, Message: "method not found"}
			}

			if err := websocket.JSON.Send(ws, resp); err != nil {
				return
			}
		}
	})
	return httptest.NewServer(handler)
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWebSocketTransportConnectListAndCallTool(t *testing.T) {
	server := newTestMCPWebSocketServer(t)
	defer server.Close()

	transport := NewWebSocketTransport(wsURL(server.URL), 2*time.Second)
	ctx := context.Background()

	if err := transport.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer transport.Disconnect()

	if !transport.IsConnected() {
		t.Fatalf("expected IsConnected true after Connect")
	}

	toolsList, err := transport.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(toolsList) != 1 || toolsList[0].Name != "echo" {
		t.Fatalf("unexpected tools: %+v", toolsList)
	}

	result, err := transport.CallTool(ctx, "echo", map[string]interface{}{"text": "hi"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	if err := transport.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	if err := transport.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if transport.IsConnected() {
		t.Fatalf("expected IsConnected false after Disconnect")
	}
}
