package etl

import (
	"context"
	"fmt"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes records as blocks.

// ImportMode determines how record ids are treated.
type ImportMode string

const (
	// ImportUpsert keeps record ids: an existing block with the same id
	// and type is overwritten.
	ImportUpsert ImportMode = "upsert"
	// ImportCreate ignores record ids and always creates fresh blocks.
	ImportCreate ImportMode = "create"
)

// ParseImportMode maps "" to ImportUpsert and rejects unknown modes.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case "", ImportUpsert:
		return ImportUpsert, nil
	case ImportCreate:
		return ImportCreate, nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// Destination writes one record and returns the resulting block id.
type Destination interface {
	Write(ctx context.Context, rec Record, mode ImportMode) (string, error)
}

// BlockImporter is the slice of the block service the writer needs.
type BlockImporter interface {
	Create(ctx context.Context, typ string, raw map[string]any) (*block.Block, error)
	Import(ctx context.Context, u domain.Unit) (*block.Block, error)
}

// BlockWriter implements Destination on top of the block service, so
// imported blocks go through the same hooks and events as created ones.
type BlockWriter struct {
	Blocks BlockImporter
}

func (w *BlockWriter) Write(ctx context.Context, rec Record, mode ImportMode) (string, error) {
	if mode == ImportCreate || rec.ID == "" {
		b, err := w.Blocks.Create(ctx, rec.Type, rec.Data)
		if err != nil {
			return "", err
		}
		return b.ID(), nil
	}
	u, err := rec.Unit()
	if err != nil {
		return "", err
	}
	b, err := w.Blocks.Import(ctx, u)
	if err != nil {
		return "", err
	}
	return b.ID(), nil
}
