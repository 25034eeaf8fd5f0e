// Package server exposes the operation catalog as MCP tools over
// stdio. Each catalog entry becomes one tool; all calls funnel through
// the dispatcher, so the transport layer holds no operation logic.
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/tools"
)

// Server wraps the MCP stdio server around a dispatcher.
type Server struct {
	mcp        *server.MCPServer
	dispatcher *tools.Dispatcher
}

// New registers every catalog operation as an MCP tool.
func New(dispatcher *tools.Dispatcher, version string) *Server {
	s := server.NewMCPServer(
		"proxmox-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	for _, op := range dispatcher.Operations() {
		s.AddTool(buildTool(op), toolHandler(dispatcher, op.Name))
	}
	log.Info().Int("tools", len(dispatcher.Operations())).Str("version", version).
		Msg("Registered MCP tools")

	return &Server{mcp: s, dispatcher: dispatcher}
}

// ServeStdio blocks, serving MCP requests on stdin/stdout until the
// stream closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func buildTool(op tools.Operation) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(op.Description)}
	for _, arg := range op.Args {
		opts = append(opts, argOption(arg))
	}
	return mcp.NewTool(op.Name, opts...)
}

func argOption(arg tools.ArgSpec) mcp.ToolOption {
	switch arg.Type {
	case tools.TypeNumber:
		propOpts := []mcp.PropertyOption{mcp.Description(arg.Description)}
		if arg.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if arg.Default != nil {
			propOpts = append(propOpts, mcp.DefaultNumber(toFloat(arg.Default)))
		}
		return mcp.WithNumber(arg.Name, propOpts...)
	case tools.TypeBoolean:
		propOpts := []mcp.PropertyOption{mcp.Description(arg.Description)}
		if arg.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if b, ok := arg.Default.(bool); ok {
			propOpts = append(propOpts, mcp.DefaultBool(b))
		}
		return mcp.WithBoolean(arg.Name, propOpts...)
	default:
		propOpts := []mcp.PropertyOption{mcp.Description(arg.Description)}
		if arg.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if s, ok := arg.Default.(string); ok {
			propOpts = append(propOpts, mcp.DefaultString(s))
		}
		return mcp.WithString(arg.Name, propOpts...)
	}
}

func toolHandler(dispatcher *tools.Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Failures are already well-formed envelopes; the transport
		// never sees a bare error.
		env := dispatcher.Dispatch(ctx, name, req.GetArguments())
		return mcp.NewToolResultText(env.Text()), nil
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
