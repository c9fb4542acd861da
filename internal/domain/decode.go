package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// DecodePayload builds the payload for t from an untyped field map. Only the
// fields the variant needs are read; anything else in raw is ignored. The
// result has passed Validate.
func DecodePayload(t BlockType, raw map[string]any) (Payload, error) {
	if !t.Known() {
		return nil, &UnsupportedTypeError{Tag: string(t)}
	}
	f := fields{t: t, raw: raw}

	var (
		p   Payload
		err error
	)
	switch t {
	case BlockTypeParagraph:
		var v Paragraph
		v.Content, err = f.text("content", true)
		p = v
	case BlockTypeHeading:
		var v Heading
		if v.Content, err = f.text("content", true); err == nil {
			v.Level, err = f.integer("level", true)
		}
		p = v
	case BlockTypeImage:
		var v Image
		if v.Src, err = f.text("src", true); err == nil {
			if v.Alt, err = f.text("alt", false); err == nil {
				v.Caption, err = f.text("caption", false)
			}
		}
		p = v
	case BlockTypeLink:
		var v Link
		if v.URL, err = f.text("url", true); err == nil {
			v.Caption, err = f.text("caption", true)
		}
		p = v
	case BlockTypeCode:
		var v Code
		if v.Content, err = f.text("content", true); err == nil {
			v.Language, err = f.text("language", false)
		}
		p = v
	case BlockTypeMarkdown:
		var v Markdown
		v.Content, err = f.text("content", true)
		p = v
	case BlockTypeList:
		var v List
		v.Items, err = f.strings("items", true)
		p = v
	case BlockTypeTable:
		var v Table
		if v.Rows, err = f.integer("rows", true); err == nil {
			if v.Columns, err = f.integer("columns", true); err == nil {
				v.Content, err = f.text("content", false)
			}
		}
		p = v
	case BlockTypeSubpage:
		var v Subpage
		if v.PageID, err = f.text("pageId", true); err == nil {
			v.Content, err = f.text("content", false)
		}
		p = v
	case BlockTypeBoard:
		var v Board
		v.Content, err = f.text("content", true)
		p = v
	case BlockTypeQuote:
		var v Quote
		v.Content, err = f.text("content", true)
		p = v
	case BlockTypeNumber:
		var v Number
		v.Content, err = f.text("content", true)
		p = v
	case BlockTypeBullet:
		var v Bullet
		v.Content, err = f.text("content", true)
		p = v
	default:
		return nil, &UnsupportedTypeError{Tag: string(t)}
	}
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// PayloadFields returns the field map form of p, the inverse of DecodePayload.
func PayloadFields(p Payload) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", p.BlockType(), err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", p.BlockType(), err)
	}
	return out, nil
}

// fields extracts typed values from an untyped payload map.
type fields struct {
	t   BlockType
	raw map[string]any
}

func (f fields) lookup(name string, required bool) (any, bool, error) {
	v, ok := f.raw[name]
	if !ok || v == nil {
		if required {
			return nil, false, &MissingFieldError{Type: f.t, Field: name}
		}
		return nil, false, nil
	}
	return v, true, nil
}

func (f fields) invalid(name, reason string) error {
	return &ValidationError{Type: f.t, Field: name, Reason: reason}
}

func (f fields) text(name string, required bool) (string, error) {
	v, ok, err := f.lookup(name, required)
	if !ok {
		return "", err
	}
	switch v.(type) {
	case map[string]any, []any, []string, bool:
		return "", f.invalid(name, "must be text")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", f.invalid(name, "must be text")
	}
	return s, nil
}

// integer accepts Go integers, integral floats (JSON numbers) and decimal
// text such as "2" from form inputs.
func (f fields) integer(name string, required bool) (int, error) {
	v, ok, err := f.lookup(name, required)
	if !ok {
		return 0, err
	}
	switch n := v.(type) {
	case bool:
		return 0, f.invalid(name, "must be an integer")
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, f.invalid(name, "must be an integer")
		}
	case float32:
		if n != float32(math.Trunc(float64(n))) {
			return 0, f.invalid(name, "must be an integer")
		}
	case string:
		return f.decimal(name, n)
	case json.Number:
		return f.decimal(name, string(n))
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, f.invalid(name, fmt.Sprintf("must be an integer, got %v", v))
	}
	return i, nil
}

// decimal parses base-10 integer text only; "0x3", "0b10" and "2.0" are
// rejected.
func (f fields) decimal(name, text string) (int, error) {
	s := strings.TrimSpace(text)
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, f.invalid(name, fmt.Sprintf("must be an integer, got %q", text))
	}
	return i, nil
}

func (f fields) strings(name string, required bool) ([]string, error) {
	v, ok, err := f.lookup(name, required)
	if !ok {
		return []string{}, err
	}
	switch s := v.(type) {
	case string, map[string]any:
		return nil, f.invalid(name, "must be a list of text")
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			switch item.(type) {
			case map[string]any, []any, nil:
				return nil, f.invalid(name, "must be a list of text")
			}
			str, err := cast.ToStringE(item)
			if err != nil {
				return nil, f.invalid(name, "must be a list of text")
			}
			out = append(out, str)
		}
		return out, nil
	}
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, f.invalid(name, "must be a list of text")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
