package domain

import "context"

type BlockType string

const (
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeImage     BlockType = "image"
	BlockTypeLink      BlockType = "link"
	BlockTypeCode      BlockType = "code"
	BlockTypeMarkdown  BlockType = "markdown"
	BlockTypeNumber    BlockType = "number"
	BlockTypeBullet    BlockType = "bullet"
	BlockTypeList      BlockType = "list"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeSubpage   BlockType = "subpage"
	BlockTypeTable     BlockType = "table"
	BlockTypeBoard     BlockType = "board"
)

var allBlockTypes = []BlockType{
	BlockTypeParagraph,
	BlockTypeHeading,
	BlockTypeImage,
	BlockTypeLink,
	BlockTypeCode,
	BlockTypeMarkdown,
	BlockTypeNumber,
	BlockTypeBullet,
	BlockTypeList,
	BlockTypeQuote,
	BlockTypeSubpage,
	BlockTypeTable,
	BlockTypeBoard,
}

// AllBlockTypes returns the closed set of block type tags.
func AllBlockTypes() []BlockType {
	out := make([]BlockType, len(allBlockTypes))
	copy(out, allBlockTypes)
	return out
}

// Known reports whether t is one of the closed set of block types.
func (t BlockType) Known() bool {
	for _, k := range allBlockTypes {
		if k == t {
			return true
		}
	}
	return false
}

// UnitStore is the persistence port a block saves through. Local and remote
// backends satisfy it interchangeably: accept a unit, return the unit the
// backend now holds.
type UnitStore interface {
	Put(ctx context.Context, u Unit) (Unit, error)
}

// UnitRepository is a UnitStore that can also read units back.
type UnitRepository interface {
	UnitStore
	Get(ctx context.Context, id string) (Unit, error)
	List(ctx context.Context) ([]Unit, error)
	Delete(ctx context.Context, id string) error
}
