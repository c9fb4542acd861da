package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
)

const (
	blocksURI      = "blocknotes://blocks"
	blockURIPrefix = "blocknotes://block/"
)

func (s *Server) registerResources() {
	// ── blocknotes://blocks ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		blocksURI,
		"All Blocks",
		mcp.WithMIMEType("application/json"),
	), s.handleBlocksResource)

	// ── blocknotes://block/{blockId} ───────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			blockURIPrefix+"{blockId}",
			"A Single Block",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleBlockResource,
	)
}

func (s *Server) handleBlocksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	units, err := s.blocks.List(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(blocksURI, units)
}

func (s *Server) handleBlockResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	blockID := cast.ToString(req.Params.Arguments["blockId"])
	if blockID == "" {
		blockID = strings.TrimPrefix(uri, blockURIPrefix)
	}
	if blockID == "" || blockID == uri {
		return nil, fmt.Errorf("invalid block URI: %s", uri)
	}

	b, err := s.blocks.Get(ctx, blockID)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, b.Unit())
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
