package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"fnord/internal/logging"
)

// WebSocketTransport implements MCPTransport over a WebSocket connection,
// per spec.md §6's remote-server transport list ("stdio, streamable HTTP,
// or WebSocket"). It replaces an earlier SSE transport: SSE's one-way
// event stream plus a separate POST endpoint needed its own handshake
// (waiting for an "endpoint" event before any call could be made), where a
// WebSocket gives a single bidirectional connection for the same
// request/response JSON-RPC shape HTTPTransport already uses.
type WebSocketTransport struct {
	mu sync.RWMutex

	url        string
	timeout    time.Duration
	conn       *websocket.Conn
	connected  bool
	serverInfo *MCPCapabilities

	pending map[int]chan *mcpResponse
	nextID  int
	cancel  context.CancelFunc
}

// NewWebSocketTransport creates a transport dialing url (ws:// or wss://).
func NewWebSocketTransport(url string, timeout time.Duration) *WebSocketTransport {
	return &WebSocketTransport{
		url:     url,
		timeout: timeout,
		pending: make(map[int]chan *mcpResponse),
		nextID:  1,
	}
}

// origin derives an Origin header value from the target URL, since
// websocket.Dial requires one even though MCP servers generally don't
// enforce it.
func (t *WebSocketTransport) origin() string {
	origin := strings.Replace(t.url, "wss://", "https://", 1)
	origin = strings.Replace(origin, "ws://", "http://", 1)
	return origin
}

// Connect dials the WebSocket and starts the read loop, then fetches
// capabilities to confirm the server is responsive.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}

	conn, err := websocket.Dial(t.url, "", t.origin())
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("failed to dial MCP websocket %s: %w", t.url, err)
	}
	t.conn = conn

	readCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.readLoop(readCtx)
	t.mu.Unlock()

	initCtx, cancelInit := context.WithTimeout(ctx, t.timeout)
	defer cancelInit()

	caps, err := t.GetCapabilities(initCtx)
	if err != nil {
		t.Disconnect()
		return fmt.Errorf("failed to get capabilities: %w", err)
	}

	t.mu.Lock()
	t.serverInfo = caps
	t.connected = true
	t.mu.Unlock()

	logging.Get(logging.CategoryTools).Info("MCP websocket transport connected to %s", t.url)
	return nil
}

// Disconnect closes the socket and unblocks any callers waiting on a
// pending response.
func (t *WebSocketTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connected = false
	t.serverInfo = nil

	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}

	logging.Get(logging.CategoryTools).Info("MCP websocket transport disconnected from %s", t.url)
	return nil
}

// readLoop decodes one JSON-RPC response per frame and routes it to the
// caller awaiting that ID, the websocket analogue of
// StdioTransport.readStdout.
func (t *WebSocketTransport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var resp mcpResponse
		if err := websocket.JSON.Receive(t.conn, &resp); err != nil {
			t.mu.Lock()
			wasConnected := t.connected
			t.connected = false
			t.mu.Unlock()
			if wasConnected {
				logging.Get(logging.CategoryTools).Warn("MCP websocket read error: %v", err)
			}
			return
		}

		t.mu.RLock()
		ch, ok := t.pending[resp.ID]
		t.mu.RUnlock()
		if !ok {
			logging.Get(logging.CategoryTools).Debug("received unsolicited MCP response ID %d", resp.ID)
			continue
		}
		select {
		case ch <- &resp:
		default:
			logging.Get(logging.CategoryTools).Warn("response channel full for ID %d", resp.ID)
		}
	}
}

// call sends a JSON-RPC request over the socket and waits for the matching
// response ID, with the same timeout/cancellation shape HTTPTransport's
// call gives synchronous HTTP round trips.
func (t *WebSocketTransport) call(ctx context.Context, method string, params interface{}) (*mcpResponse, error) {
	t.mu.Lock()
	if t.conn == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("not connected to MCP server")
	}
	id := t.nextID
	t.nextID++
	ch := make(chan *mcpResponse, 1)
	t.pending[id] = ch
	conn := t.conn
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := mcpRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
	if err := websocket.JSON.Send(conn, req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed")
		}
		if resp.Error != nil {
			return resp, fmt.Errorf("MCP error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(t.timeout):
		return nil, fmt.Errorf("timeout waiting for response")
	}
}

// GetCapabilities returns server capabilities, performing the MCP
// "initialize" handshake on first call.
func (t *WebSocketTransport) GetCapabilities(ctx context.Context) (*MCPCapabilities, error) {
	t.mu.RLock()
	if t.serverInfo != nil {
		caps := *t.serverInfo
		t.mu.RUnlock()
		return &caps, nil
	}
	t.mu.RUnlock()

	resp, err := t.call(ctx, "initialize", map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]string{
			"name":    "fnord",
			"version": "1.0.0",
		},
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Capabilities MCPCapabilities `json:"capabilities"`
		ServerInfo   struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		var simple MCPCapabilities
		if err2 := json.Unmarshal(resp.Result, &simple); err2 != nil {
			return nil, fmt.Errorf("failed to parse capabilities: %w", err)
		}
		return &simple, nil
	}
	return &result.Capabilities, nil
}

// ListTools retrieves available tools from the server.
func (t *WebSocketTransport) ListTools(ctx context.Context) ([]MCPToolSchema, error) {
	resp, err := t.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	var result struct {
		Tools []MCPToolSchema `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool on the MCP server.
func (t *WebSocketTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (*MCPCallResult, error) {
	start := time.Now()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}

	resp, err := t.call(ctx, "tools/call", params)
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		return &MCPCallResult{
			Success:   false,
			Error:     err.Error(),
			LatencyMs: latencyMs,
		}, nil
	}
	if resp.Error != nil {
		return &MCPCallResult{
			Success:   false,
			Error:     resp.Error.Message,
			LatencyMs: latencyMs,
		}, nil
	}

	return &MCPCallResult{
		Success:   true,
		Output:    resp.Result,
		LatencyMs: latencyMs,
	}, nil
}

// Ping checks if the server is responsive.
func (t *WebSocketTransport) Ping(ctx context.Context) error {
	_, err := t.call(ctx, "ping", nil)
	return err
}

// IsConnected returns current connection status.
func (t *WebSocketTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Ensure WebSocketTransport implements MCPTransport.
var _ MCPTransport = (*WebSocketTransport)(nil)
