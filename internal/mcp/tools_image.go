package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerImageTools() {
	// ── create_image ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_image",
		mcp.WithDescription("Upload an image and create an image block for it. Give either path or base64."),
		mcp.WithString("path", mcp.Description("Local file to upload")),
		mcp.WithString("base64", mcp.Description("Base64-encoded image bytes")),
		mcp.WithString("alt", mcp.Description("Alternative text")),
		mcp.WithString("caption", mcp.Description("Caption shown under the image")),
	), s.handleCreateImage)

	// ── attach_image ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Upload an image and point an existing image block at it. Give either path or base64."),
		mcp.WithString("blockId", mcp.Description("Image block ID"), mcp.Required()),
		mcp.WithString("path", mcp.Description("Local file to upload")),
		mcp.WithString("base64", mcp.Description("Base64-encoded image bytes")),
	), s.handleAttachImage)
}

// imageBytes reads the image from the path or base64 argument.
func imageBytes(req mcp.CallToolRequest) ([]byte, error) {
	if path := req.GetString("path", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		return data, nil
	}
	if encoded := req.GetString("base64", ""); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("path or base64 is required")
}

func (s *Server) handleCreateImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := imageBytes(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.blocks.CreateImage(ctx, data, req.GetString("alt", ""), req.GetString("caption", ""))
	if err != nil {
		return toolFailure(err)
	}
	s.emitBlocksChanged(ctx, b.ID())
	return jsonResult(b.Unit())
}

func (s *Server) handleAttachImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.getBlockForTool(ctx, req.GetArguments())
	if err != nil {
		return toolFailure(err)
	}
	data, err := imageBytes(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.blocks.AttachImage(ctx, b.ID(), data); err != nil {
		return toolFailure(err)
	}
	s.emitBlocksChanged(ctx, b.ID())
	return jsonResult(b.Unit())
}
