// Command mcp-clj exposes a running clj-server to MCP clients over stdio.
package main

import (
	"log"
	"net"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func newMCPServer(c *client) *server.MCPServer {
	s := server.NewMCPServer(
		"clj",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("clj_eval",
			mcp.WithDescription("Evaluate a program in the shared session. Several top-level forms run in order; the last value is returned."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Source to evaluate, e.g. (defn sq [x] (* x x)) (sq 4)"),
			),
		),
		c.handleEval,
	)

	s.AddTool(
		mcp.NewTool("clj_define",
			mcp.WithDescription("Evaluate an expression and bind the result to a name in the root frame."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Symbol name to define"),
			),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Expression for the symbol's value"),
			),
		),
		c.handleDefine,
	)

	s.AddTool(
		mcp.NewTool("clj_lookup",
			mcp.WithDescription("Show the value bound to a name in the root frame."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Symbol name to resolve"),
			),
		),
		c.handleLookup,
	)

	s.AddTool(
		mcp.NewTool("clj_traces",
			mcp.WithDescription("List recent evaluations with their results or errors, newest last."),
			mcp.WithNumber("n",
				mcp.Description("How many traces to return; all when omitted"),
			),
		),
		c.handleTraces,
	)

	s.AddTool(
		mcp.NewTool("clj_clear",
			mcp.WithDescription("Discard every definition and trace, leaving only builtins and library macros."),
		),
		c.handleClear,
	)

	return s
}

func main() {
	sockPath := os.Getenv("CLJ_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/clj.sock"
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to %s: %v", sockPath, err)
	}
	defer conn.Close()
	log.Printf("connected to clj server: %s", sockPath)

	if err := server.ServeStdio(newMCPServer(&client{conn: conn})); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
