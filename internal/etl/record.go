package etl

import (
	"fmt"

	"github.com/spf13/cast"

	"blocknotes/internal/domain"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate format. Sources emit Records, the
// destination turns each one into a block.

// Record is one block-to-be. ID is optional: an empty ID asks the
// destination to generate one.
type Record struct {
	ID   string         `json:"id,omitempty"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Unit decodes the record's data into a typed unit.
func (r Record) Unit() (domain.Unit, error) {
	t := domain.BlockType(r.Type)
	if !t.Known() {
		return domain.Unit{}, &domain.UnsupportedTypeError{Tag: r.Type}
	}
	data, err := domain.DecodePayload(t, r.Data)
	if err != nil {
		return domain.Unit{}, err
	}
	return domain.Unit{ID: r.ID, Type: t, Data: data}, nil
}

// RecordFromObject reads a record out of a decoded JSON object. Objects
// shaped as {id?, type, data} are taken as-is; anything else becomes the
// data of a block of fallbackType, with an optional "id" key lifted out.
func RecordFromObject(obj map[string]any, fallbackType string) (Record, error) {
	if data, ok := obj["data"].(map[string]any); ok {
		if typ := cast.ToString(obj["type"]); typ != "" {
			return Record{ID: cast.ToString(obj["id"]), Type: typ, Data: data}, nil
		}
	}
	if fallbackType == "" {
		return Record{}, fmt.Errorf("record has no type and no blockType is configured")
	}
	data := make(map[string]any, len(obj))
	var id string
	for k, v := range obj {
		if k == "id" {
			id = cast.ToString(v)
			continue
		}
		data[k] = v
	}
	return Record{ID: id, Type: fallbackType, Data: data}, nil
}
