// Package mcpbridge exposes a mock tool registry as an MCP server, so an
// external voice system under test that speaks MCP (rather than this
// harness's own ResponseEvent tool-call protocol) can call the same mocked
// tools a scenario registers. It is an optional entry point: nothing in
// internal/orchestrator depends on it, and HandleCall still routes every
// call through the registry's own latency/failure-rate/signaling pipeline.
package mcpbridge

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"voxharness/internal/tools"
)

// callInput is the JSON shape of an incoming MCP tool call: a single
// "args" object forwarded verbatim to the mocked tool's handler.
type callInput struct {
	Args map[string]any `json:"args,omitempty"`
}

// callOutput mirrors model.ToolResult's observable fields back to the MCP
// client.
type callOutput struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Server wraps an MCP *mcp.Server bound to registry: every tool currently
// registered is exposed as an MCP tool with the same name, forwarding calls
// through registry.HandleCall.
type Server struct {
	mcp      *mcp.Server
	registry *tools.Registry
}

// New builds an MCP server named name exposing every tool currently
// registered on registry. Tools registered on registry after New is called
// are not automatically picked up — call New again once the
// scenario's mock catalogue is finalized.
func New(name, version string, registry *tools.Registry) *Server {
	impl := &mcp.Implementation{Name: name, Version: version}
	srv := &Server{mcp: mcp.NewServer(impl, nil), registry: registry}
	srv.registerTools()
	return srv
}

func (s *Server) registerTools() {
	for _, name := range s.registry.Names() {
		toolName := name
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        toolName,
			Description: fmt.Sprintf("Invoke the mocked %q tool registered for this scenario run.", toolName),
		}, func(ctx context.Context, _ *mcp.CallToolRequest, in callInput) (*mcp.CallToolResult, callOutput, error) {
			result := s.registry.HandleCall(ctx, toolName, in.Args)
			out := callOutput{Success: result.Success, Result: result.Result, Error: result.Err}
			return nil, out, nil
		})
	}
}

// ServeStdio runs the bridge over stdio until ctx is cancelled or the
// client disconnects, matching the transport the registry's host
// (github.com/MrWong99/glyphoxa's mcphost, grounded on in the retrieval
// pack) uses for local MCP servers.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
