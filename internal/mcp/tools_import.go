package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"blocknotes/internal/etl"
)

func (s *Server) registerImportTools() {
	s.mcp.AddTool(mcp.NewTool("list_import_sources",
		mcp.WithDescription("List the sources blocks can be imported from and the config each one reads"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListImportSources)

	s.mcp.AddTool(mcp.NewTool("import_blocks",
		mcp.WithDescription("Import blocks from a source. With preview > 0 nothing is written and the first records are returned."),
		mcp.WithString("source", mcp.Description("Source type, see list_import_sources"), mcp.Required()),
		mcp.WithString("config", mcp.Description("JSON object with the source config")),
		mcp.WithString("mode", mcp.Description("upsert (default) keeps record ids, create always makes new blocks"), mcp.Enum("upsert", "create")),
		mcp.WithNumber("limit", mcp.Description("Import at most this many records")),
		mcp.WithNumber("preview", mcp.Description("Return up to N records without importing them")),
	), s.handleImportBlocks)
}

func (s *Server) handleListImportSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(etl.ListSources())
}

func (s *Server) handleImportBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	source := req.GetString("source", "")
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}
	cfg, err := parseFields(args, "config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := etl.ParseImportMode(req.GetString("mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	engine := &etl.Engine{Dest: &etl.BlockWriter{Blocks: s.blocks}, Logger: s.logger}
	if n := cast.ToInt(args["preview"]); n > 0 {
		records, err := engine.Preview(ctx, source, cfg, n)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(records)
	}

	res, err := engine.Run(ctx, &etl.Job{SourceType: source, SourceCfg: cfg, Mode: mode, Limit: cast.ToInt(args["limit"])})
	for _, id := range res.IDs {
		s.emitBlocksChanged(ctx, id)
	}
	out, jerr := jsonResult(res)
	if jerr != nil {
		return nil, jerr
	}
	if err != nil && res.Written == 0 {
		out.IsError = true
	}
	return out, nil
}
