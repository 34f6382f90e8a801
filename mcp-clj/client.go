package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	clj "github.com/ethanresnick/clojure-in-go/core"
)

// client forwards tool calls to a clj-server, one request at a time.
type client struct {
	conn net.Conn
	mu   sync.Mutex // serializes request/response pairs on conn
}

func (c *client) send(req map[string]any) (map[string]any, error) {
	req["id"] = clj.NextID()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := clj.WriteMsg(c.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := clj.ReadMsg(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a server response into a tool result. Printed values
// are shown as the reader would read them back; anything else as JSON.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	if printed, ok := resp["printed"].(string); ok {
		return mcp.NewToolResultText(printed), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (c *client) forward(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := c.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func (c *client) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.forward(map[string]any{"op": "eval", "expr": expr})
}

func (c *client) handleDefine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.forward(map[string]any{"op": "define", "name": name, "expr": expr})
}

func (c *client) handleLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.forward(map[string]any{"op": "lookup", "name": name})
}

func (c *client) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetInt("n", -1); n >= 0 {
		req["n"] = n
	}
	return c.forward(req)
}

func (c *client) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.forward(map[string]any{"op": "clear"})
}
