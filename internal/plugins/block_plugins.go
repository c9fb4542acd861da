package plugins

import (
	"context"
	"fmt"
	"strings"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/service"
	"blocknotes/internal/upload"
)

// ─────────────────────────────────────────────────────────────
// Image cleanup hook
// ─────────────────────────────────────────────────────────────

// imageCleanup implements service.BlockHook for image blocks. Deleting an
// image block removes the uploaded file behind it when the uploader produced
// it.
type imageCleanup struct {
	deleter upload.Deleter
}

// NewImageCleanup creates the image hook. It returns nil when the uploader
// cannot delete what it stored.
func NewImageCleanup(u upload.Uploader) service.BlockHook {
	d, ok := u.(upload.Deleter)
	if !ok {
		return nil
	}
	return &imageCleanup{deleter: d}
}

func (p *imageCleanup) BlockType() domain.BlockType { return domain.BlockTypeImage }

func (p *imageCleanup) OnCreate(context.Context, *block.Block) error { return nil }

func (p *imageCleanup) OnDelete(ctx context.Context, u domain.Unit) error {
	img, ok := u.Data.(domain.Image)
	if !ok || !p.deleter.Owns(img.Src) {
		return nil
	}
	if err := p.deleter.Delete(ctx, img.Src); err != nil {
		return fmt.Errorf("image cleanup: OnDelete: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────
// Subpage guard hook
// ─────────────────────────────────────────────────────────────

// subpageGuard refuses subpage blocks that embed themselves.
type subpageGuard struct{}

func NewSubpageGuard() service.BlockHook {
	return subpageGuard{}
}

func (subpageGuard) BlockType() domain.BlockType { return domain.BlockTypeSubpage }

func (subpageGuard) OnCreate(_ context.Context, b *block.Block) error {
	sp, ok := block.DataAs[domain.Subpage](b)
	if !ok {
		return nil
	}
	if strings.TrimSpace(sp.PageID) == b.ID() {
		return &domain.ValidationError{Type: domain.BlockTypeSubpage, Field: "pageId", Reason: "a subpage cannot embed itself"}
	}
	return nil
}

func (subpageGuard) OnDelete(context.Context, domain.Unit) error { return nil }

// Register installs the standard hooks into r.
func Register(r *service.HookRegistry, u upload.Uploader) {
	r.Register(NewSubpageGuard())
	if h := NewImageCleanup(u); h != nil {
		r.Register(h)
	}
}
