package domain

import (
	"encoding/json"
	"strings"
)

// MaxHeadingLevel is the deepest supported heading (h1..h6).
const MaxHeadingLevel = 6

// Payload is the variant-specific data a block carries. The set of
// implementations is closed: one struct per BlockType.
type Payload interface {
	BlockType() BlockType
	// Validate checks the variant's content rules.
	Validate() error
	// Clone returns a deep copy.
	Clone() Payload

	payload()
}

type Paragraph struct {
	Content string `json:"content"`
}

type Heading struct {
	Content string `json:"content"`
	Level   int    `json:"level"`
}

type Image struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

type Link struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type Code struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}

type Markdown struct {
	Content string `json:"content"`
}

type List struct {
	Items []string `json:"items"`
}

// MarshalJSON writes a nil item list as [] so the unit decodes again.
func (l List) MarshalJSON() ([]byte, error) {
	items := l.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(struct {
		Items []string `json:"items"`
	}{items})
}

// Table keeps its cells as a single serialized content string; Rows and
// Columns describe the grid.
type Table struct {
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Content string `json:"content"`
}

// Subpage embeds a reference to another page.
type Subpage struct {
	PageID  string `json:"pageId"`
	Content string `json:"content"`
}

type Board struct {
	Content string `json:"content"`
}

type Quote struct {
	Content string `json:"content"`
}

type Number struct {
	Content string `json:"content"`
}

type Bullet struct {
	Content string `json:"content"`
}

func (Paragraph) BlockType() BlockType { return BlockTypeParagraph }
func (Heading) BlockType() BlockType   { return BlockTypeHeading }
func (Image) BlockType() BlockType     { return BlockTypeImage }
func (Link) BlockType() BlockType      { return BlockTypeLink }
func (Code) BlockType() BlockType      { return BlockTypeCode }
func (Markdown) BlockType() BlockType  { return BlockTypeMarkdown }
func (List) BlockType() BlockType      { return BlockTypeList }
func (Table) BlockType() BlockType     { return BlockTypeTable }
func (Subpage) BlockType() BlockType   { return BlockTypeSubpage }
func (Board) BlockType() BlockType     { return BlockTypeBoard }
func (Quote) BlockType() BlockType     { return BlockTypeQuote }
func (Number) BlockType() BlockType    { return BlockTypeNumber }
func (Bullet) BlockType() BlockType    { return BlockTypeBullet }

// Paragraphs may be empty while being edited; see RenderEligible.
func (Paragraph) Validate() error { return nil }

func (h Heading) Validate() error {
	if h.Level < 1 || h.Level > MaxHeadingLevel {
		return &ValidationError{Type: BlockTypeHeading, Field: "level", Reason: "must be between 1 and 6"}
	}
	return nil
}

func (i Image) Validate() error {
	if i.Src == "" {
		return &ValidationError{Type: BlockTypeImage, Field: "src", Reason: "no image source provided"}
	}
	return nil
}

func (Link) Validate() error     { return nil }
func (Code) Validate() error     { return nil }
func (Markdown) Validate() error { return nil }
func (List) Validate() error     { return nil }

func (t Table) Validate() error {
	if t.Rows <= 0 {
		return &ValidationError{Type: BlockTypeTable, Field: "rows", Reason: "must be positive"}
	}
	if t.Columns <= 0 {
		return &ValidationError{Type: BlockTypeTable, Field: "columns", Reason: "must be positive"}
	}
	return nil
}

func (s Subpage) Validate() error {
	if strings.TrimSpace(s.PageID) == "" {
		return &ValidationError{Type: BlockTypeSubpage, Field: "pageId", Reason: "required"}
	}
	return nil
}

func (Board) Validate() error  { return nil }
func (Quote) Validate() error  { return nil }
func (Number) Validate() error { return nil }
func (Bullet) Validate() error { return nil }

func (p Paragraph) Clone() Payload { return p }
func (h Heading) Clone() Payload   { return h }
func (i Image) Clone() Payload     { return i }
func (l Link) Clone() Payload      { return l }
func (c Code) Clone() Payload      { return c }
func (m Markdown) Clone() Payload  { return m }
func (t Table) Clone() Payload     { return t }
func (s Subpage) Clone() Payload   { return s }
func (b Board) Clone() Payload     { return b }
func (q Quote) Clone() Payload     { return q }
func (n Number) Clone() Payload    { return n }
func (b Bullet) Clone() Payload    { return b }

func (l List) Clone() Payload {
	if l.Items == nil {
		return List{}
	}
	items := make([]string, len(l.Items))
	copy(items, l.Items)
	return List{Items: items}
}

func (Paragraph) payload() {}
func (Heading) payload()   {}
func (Image) payload()     {}
func (Link) payload()      {}
func (Code) payload()      {}
func (Markdown) payload()  {}
func (List) payload()      {}
func (Table) payload()     {}
func (Subpage) payload()   {}
func (Board) payload()     {}
func (Quote) payload()     {}
func (Number) payload()    {}
func (Bullet) payload()    {}

// RenderEligible reports whether a payload has enough content to be shown.
// An empty paragraph is a valid editing state but is not rendered.
func RenderEligible(p Payload) bool {
	switch v := p.(type) {
	case Paragraph:
		return v.Content != ""
	case Image:
		return v.Src != ""
	case Link:
		return v.URL != "" && v.Caption != ""
	default:
		return p != nil && p.Validate() == nil
	}
}
