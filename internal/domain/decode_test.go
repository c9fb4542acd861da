package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// DecodePayload
// ─────────────────────────────────────────────────────────────

func TestDecodePayload_AllTypes(t *testing.T) {
	cases := []struct {
		typ  domain.BlockType
		raw  map[string]any
		want domain.Payload
	}{
		{domain.BlockTypeParagraph, map[string]any{"content": "hello"}, domain.Paragraph{Content: "hello"}},
		{domain.BlockTypeHeading, map[string]any{"content": "Intro", "level": 2}, domain.Heading{Content: "Intro", Level: 2}},
		{domain.BlockTypeImage, map[string]any{"src": "a.png", "alt": "x", "caption": "y"}, domain.Image{Src: "a.png", Alt: "x", Caption: "y"}},
		{domain.BlockTypeLink, map[string]any{"url": "https://go.dev", "caption": "Go"}, domain.Link{URL: "https://go.dev", Caption: "Go"}},
		{domain.BlockTypeCode, map[string]any{"content": "fmt.Println()", "language": "go"}, domain.Code{Content: "fmt.Println()", Language: "go"}},
		{domain.BlockTypeMarkdown, map[string]any{"content": "# hi"}, domain.Markdown{Content: "# hi"}},
		{domain.BlockTypeList, map[string]any{"items": []any{"a", "b"}}, domain.List{Items: []string{"a", "b"}}},
		{domain.BlockTypeTable, map[string]any{"rows": 2, "columns": 3, "content": "|a|"}, domain.Table{Rows: 2, Columns: 3, Content: "|a|"}},
		{domain.BlockTypeSubpage, map[string]any{"pageId": "p1", "content": "child"}, domain.Subpage{PageID: "p1", Content: "child"}},
		{domain.BlockTypeBoard, map[string]any{"content": "todo"}, domain.Board{Content: "todo"}},
		{domain.BlockTypeQuote, map[string]any{"content": "q"}, domain.Quote{Content: "q"}},
		{domain.BlockTypeNumber, map[string]any{"content": "1."}, domain.Number{Content: "1."}},
		{domain.BlockTypeBullet, map[string]any{"content": "*"}, domain.Bullet{Content: "*"}},
	}
	require.Len(t, cases, len(domain.AllBlockTypes()))

	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			got, err := domain.DecodePayload(tc.typ, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.typ, got.BlockType())
		})
	}
}

func TestDecodePayload_IgnoresUnknownFields(t *testing.T) {
	got, err := domain.DecodePayload(domain.BlockTypeParagraph, map[string]any{
		"content": "hi",
		"level":   3,
		"color":   "red",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Paragraph{Content: "hi"}, got)
}

func TestDecodePayload_UnsupportedType(t *testing.T) {
	_, err := domain.DecodePayload("bogus-type", map[string]any{})
	var ute *domain.UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "bogus-type", ute.Tag)
}

func TestDecodePayload_MissingField(t *testing.T) {
	cases := []struct {
		typ   domain.BlockType
		raw   map[string]any
		field string
	}{
		{domain.BlockTypeHeading, map[string]any{"content": "x"}, "level"},
		{domain.BlockTypeImage, map[string]any{"alt": "x"}, "src"},
		{domain.BlockTypeLink, map[string]any{"url": "u"}, "caption"},
		{domain.BlockTypeList, map[string]any{}, "items"},
		{domain.BlockTypeTable, map[string]any{"rows": 1}, "columns"},
		{domain.BlockTypeSubpage, map[string]any{"content": "x"}, "pageId"},
		{domain.BlockTypeQuote, map[string]any{"content": nil}, "content"},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			_, err := domain.DecodePayload(tc.typ, tc.raw)
			var mfe *domain.MissingFieldError
			require.True(t, errors.As(err, &mfe), "got %v", err)
			assert.Equal(t, tc.field, mfe.Field)
			assert.Equal(t, tc.typ, mfe.Type)
		})
	}
}

func TestDecodePayload_HeadingLevel(t *testing.T) {
	cases := []struct {
		name  string
		level any
		want  int
		ok    bool
	}{
		{"int", 3, 3, true},
		{"json number", float64(4), 4, true},
		{"json.Number", json.Number("5"), 5, true},
		{"text", "2", 2, true},
		{"padded text", " 6 ", 6, true},
		{"fraction", 2.5, 0, false},
		{"garbage text", "two", 0, false},
		{"empty text", "", 0, false},
		{"hex text", "0x3", 0, false},
		{"binary text", "0b10", 0, false},
		{"octal prefix text", "0o4", 0, false},
		{"decimal point text", "2.0", 0, false},
		{"underscore text", "1_0", 0, false},
		{"hex json.Number", json.Number("0x3"), 0, false},
		{"fraction json.Number", json.Number("2.0"), 0, false},
		{"signed text", "+2", 2, true},
		{"negative", -1, 0, false},
		{"zero", 0, 0, false},
		{"too deep", 7, 0, false},
		{"bool", true, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := domain.DecodePayload(domain.BlockTypeHeading, map[string]any{"content": "h", "level": tc.level})
			if !tc.ok {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err), "want ValidationError, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.(domain.Heading).Level)
		})
	}
}

func TestDecodePayload_ImageEmptySrc(t *testing.T) {
	_, err := domain.DecodePayload(domain.BlockTypeImage, map[string]any{"src": ""})
	assert.True(t, domain.IsValidation(err))
}

func TestDecodePayload_TableMustBePositive(t *testing.T) {
	_, err := domain.DecodePayload(domain.BlockTypeTable, map[string]any{"rows": 0, "columns": 2})
	assert.True(t, domain.IsValidation(err))
	_, err = domain.DecodePayload(domain.BlockTypeTable, map[string]any{"rows": 2, "columns": -2})
	assert.True(t, domain.IsValidation(err))
}

func TestDecodePayload_ListShape(t *testing.T) {
	_, err := domain.DecodePayload(domain.BlockTypeList, map[string]any{"items": "a b"})
	assert.True(t, domain.IsValidation(err))

	_, err = domain.DecodePayload(domain.BlockTypeList, map[string]any{"items": []any{"a", map[string]any{}}})
	assert.True(t, domain.IsValidation(err))

	got, err := domain.DecodePayload(domain.BlockTypeList, map[string]any{"items": []any{}})
	require.NoError(t, err)
	assert.Equal(t, domain.List{Items: []string{}}, got)
}

func TestDecodePayload_TextShape(t *testing.T) {
	_, err := domain.DecodePayload(domain.BlockTypeMarkdown, map[string]any{"content": map[string]any{"a": 1}})
	assert.True(t, domain.IsValidation(err))
}

func TestPayloadFields_RoundTrip(t *testing.T) {
	for _, p := range []domain.Payload{
		domain.Heading{Content: "Intro", Level: 2},
		domain.List{Items: []string{"x", "y"}},
		domain.Table{Rows: 1, Columns: 1},
		domain.Subpage{PageID: "p"},
	} {
		fields, err := domain.PayloadFields(p)
		require.NoError(t, err)
		back, err := domain.DecodePayload(p.BlockType(), fields)
		require.NoError(t, err)
		assert.Equal(t, p, back)
	}
}

func TestRenderEligible(t *testing.T) {
	assert.False(t, domain.RenderEligible(domain.Paragraph{}))
	assert.True(t, domain.RenderEligible(domain.Paragraph{Content: "x"}))
	assert.False(t, domain.RenderEligible(domain.Link{URL: "u"}))
	assert.True(t, domain.RenderEligible(domain.Heading{Content: "x", Level: 1}))
	assert.False(t, domain.RenderEligible(domain.Heading{Content: "x", Level: 9}))
}

func TestBlockType_Known(t *testing.T) {
	for _, bt := range domain.AllBlockTypes() {
		assert.True(t, bt.Known(), bt)
	}
	assert.False(t, domain.BlockType("drawing").Known())
}

func TestListClone_DoesNotAlias(t *testing.T) {
	orig := domain.List{Items: []string{"a"}}
	c := orig.Clone().(domain.List)
	c.Items[0] = "changed"
	assert.Equal(t, "a", orig.Items[0])
}
