package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
)

func (s *Server) registerBlockTools() {
	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List the block types that can be created and which of them run lifecycle hooks"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListBlockTypes)

	// ── create_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a block and store it. Data is a JSON object with the fields of the type, e.g. {\"content\":\"Intro\",\"level\":2} for a heading."),
		mcp.WithString("type",
			mcp.Description("Block type: paragraph, heading, image, link, code, markdown, number, bullet, list, quote, subpage, table, board"),
			mcp.Required(),
		),
		mcp.WithString("data", mcp.Description("JSON object with the block fields"), mcp.Required()),
	), s.handleCreateBlock)

	// ── get_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Get a block as {id, type, data}"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Change some fields of a block. Fields not given keep their value."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("data", mcp.Description("JSON object with the fields to change"), mcp.Required()),
	), s.handleUpdateBlock)

	// ── replace_block ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("replace_block",
		mcp.WithDescription("Replace the whole data of a block. The type cannot change."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("data", mcp.Description("JSON object with every field of the type"), mcp.Required()),
	), s.handleReplaceBlock)

	// ── save_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_block",
		mcp.WithDescription("Write a block to storage now and merge back what the backend changed"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
	), s.handleSaveBlock)

	// ── load_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("load_block",
		mcp.WithDescription("Load a stored block into memory, keeping its id"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
	), s.handleLoadBlock)

	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List stored blocks, optionally filtered by type"),
		mcp.WithString("type", mcp.Description("Filter by block type (optional)")),
		mcp.WithBoolean("renderable", mcp.Description("Only blocks with enough content to be shown, e.g. no empty paragraphs or half-filled links (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListBlocks)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block from memory and storage."),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── commit_link ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("commit_link",
		mcp.WithDescription("Set the URL and caption of a link block. Nothing changes until both are non-empty."),
		mcp.WithString("blockId", mcp.Description("Link block ID"), mcp.Required()),
		mcp.WithString("url", mcp.Description("Link target")),
		mcp.WithString("caption", mcp.Description("Link text")),
	), s.handleCommitLink)
}

// toolFailure turns caller mistakes into a tool error the agent can read and
// passes everything else up as a protocol error.
func toolFailure(err error) (*mcp.CallToolResult, error) {
	var unsupported *domain.UnsupportedTypeError
	var missing *domain.MissingFieldError
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrNotFound),
		errors.As(err, &unsupported),
		errors.As(err, &missing):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types := s.blocks.Types()
	hooked := s.blocks.Hooks().Types()
	if hooked == nil {
		hooked = []domain.BlockType{}
	}
	return jsonResult(map[string]any{
		"types":  types,
		"hooked": hooked,
	})
}

func (s *Server) handleCreateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockType, _ := args["type"].(string)
	if blockType == "" {
		return nil, fmt.Errorf("type is required")
	}
	fields, err := parseFields(args, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, err := s.blocks.Create(ctx, blockType, fields)
	if err != nil {
		return toolFailure(err)
	}
	s.emitBlocksChanged(ctx, b.ID())
	return jsonResult(b.Unit())
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.getBlockForTool(ctx, req.GetArguments())
	if err != nil {
		return toolFailure(err)
	}
	return jsonResult(b.Unit())
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	b, err := s.getBlockForTool(ctx, args)
	if err != nil {
		return toolFailure(err)
	}
	fields, err := parseFields(args, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.blocks.Update(ctx, b.ID(), fields); err != nil {
		return toolFailure(err)
	}
	s.emitBlocksChanged(ctx, b.ID())
	return jsonResult(b.Unit())
}

func (s *Server) handleReplaceBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	b, err := s.getBlockForTool(ctx, args)
	if err != nil {
		return toolFailure(err)
	}
	fields, err := parseFields(args, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.blocks.Replace(ctx, b.ID(), fields); err != nil {
		return toolFailure(err)
	}
	s.emitBlocksChanged(ctx, b.ID())
	return jsonResult(b.Unit())
}

func (s *Server) handleSaveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.getBlockForTool(ctx, req.GetArguments())
	if err != nil {
		return toolFailure(err)
	}
	if err := s.blocks.Save(ctx, b.ID()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(b.Unit())
}

func (s *Server) handleLoadBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, _ := req.GetArguments()["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	b, err := s.blocks.Load(ctx, blockID)
	if err != nil {
		return toolFailure(err)
	}
	return jsonResult(b.Unit())
}

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := strings.TrimSpace(req.GetString("type", ""))
	renderable := req.GetBool("renderable", false)

	units, err := s.blocks.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Unit, 0, len(units))
	for _, u := range units {
		if filter != "" && string(u.Type) != filter {
			continue
		}
		if renderable && !domain.RenderEligible(u.Data) {
			continue
		}
		out = append(out, u)
	}
	return jsonResult(out)
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, _ := req.GetArguments()["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	if err := s.blocks.Delete(ctx, blockID); err != nil {
		return toolFailure(err)
	}
	s.emitBlocksChanged(ctx, blockID)
	return textResult(fmt.Sprintf("Block %s deleted", blockID)), nil
}

func (s *Server) handleCommitLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	b, err := s.getBlockForTool(ctx, args)
	if err != nil {
		return toolFailure(err)
	}
	draft := block.LinkDraft{
		URL:     req.GetString("url", ""),
		Caption: req.GetString("caption", ""),
	}

	ok, err := s.blocks.CommitLink(ctx, b.ID(), draft)
	if err != nil {
		return toolFailure(err)
	}
	if !ok {
		return textResult("Link not changed: url and caption are both required"), nil
	}
	s.emitBlocksChanged(ctx, b.ID())
	return jsonResult(b.Unit())
}
