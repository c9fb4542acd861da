package domain

import (
	"encoding/json"
	"fmt"
)

// Unit is the persisted shape of a block: exactly id, type and data. The
// same JSON is written to local stores and sent to remote services.
type Unit struct {
	ID   string    `json:"id"`
	Type BlockType `json:"type"`
	Data Payload   `json:"data"`
}

// Clone returns a copy that shares no mutable state with u.
func (u Unit) Clone() Unit {
	out := u
	if u.Data != nil {
		out.Data = u.Data.Clone()
	}
	return out
}

type rawUnit struct {
	ID   string          `json:"id"`
	Type BlockType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes data according to the unit's type tag.
func (u *Unit) UnmarshalJSON(b []byte) error {
	var raw rawUnit
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if !raw.Type.Known() {
		return &UnsupportedTypeError{Tag: string(raw.Type)}
	}
	fieldMap := map[string]any{}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, &fieldMap); err != nil {
			return fmt.Errorf("decode %s data: %w", raw.Type, err)
		}
	}
	p, err := DecodePayload(raw.Type, fieldMap)
	if err != nil {
		return err
	}
	u.ID = raw.ID
	u.Type = raw.Type
	u.Data = p
	return nil
}

// DecodeUnit parses a unit from its JSON form.
func DecodeUnit(b []byte) (Unit, error) {
	var u Unit
	if err := json.Unmarshal(b, &u); err != nil {
		return Unit{}, err
	}
	return u, nil
}

// UnitFromFields rebuilds a unit from an id, a type tag and a stored data
// document, e.g. a JSON column.
func UnitFromFields(id string, t BlockType, dataJSON string) (Unit, error) {
	fieldMap := map[string]any{}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &fieldMap); err != nil {
			return Unit{}, fmt.Errorf("decode %s data for %s: %w", t, id, err)
		}
	}
	p, err := DecodePayload(t, fieldMap)
	if err != nil {
		return Unit{}, err
	}
	return Unit{ID: id, Type: t, Data: p}, nil
}

// DataJSON returns the JSON encoding of the unit's payload.
func (u Unit) DataJSON() (string, error) {
	b, err := json.Marshal(u.Data)
	if err != nil {
		return "", fmt.Errorf("encode %s data: %w", u.Type, err)
	}
	return string(b), nil
}
