package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"blocknotes/internal/block"
	"blocknotes/internal/service"
)

// Server exposes block editing to MCP clients.
type Server struct {
	mcp     *server.MCPServer
	emitter service.EventEmitter
	blocks  *service.BlockService
	logger  *zap.Logger
}

// Deps holds what the command layer hands to the MCP server.
type Deps struct {
	Emitter service.EventEmitter
	Blocks  *service.BlockService
	Logger  *zap.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	s := &Server{
		emitter: deps.Emitter,
		blocks:  deps.Blocks,
		logger:  deps.Logger,
	}
	if s.emitter == nil {
		s.emitter = service.LogEmitter{Logger: deps.Logger}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(
		"blocknotes-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)

	s.registerBlockTools()
	s.registerImageTools()
	s.registerImportTools()
	s.registerResources()
	return s
}

// MCP returns the underlying server, mainly for tests and alternative
// transports.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting mcp stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// emitBlocksChanged tells listeners an agent changed a block.
func (s *Server) emitBlocksChanged(ctx context.Context, blockID string) {
	s.emitter.Emit(ctx, "mcp:blocks-changed", map[string]string{"blockId": blockID})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// getBlockForTool resolves the blockId argument to a live block.
func (s *Server) getBlockForTool(ctx context.Context, args map[string]any) (*block.Block, error) {
	blockID, ok := args["blockId"].(string)
	if !ok || blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	return s.blocks.Get(ctx, blockID)
}
