package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a unit id is unknown.
var ErrNotFound = errors.New("block not found")

// ValidationError reports a payload that breaks its variant's contract.
type ValidationError struct {
	Type   BlockType
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s block: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid %s block: %s %s", e.Type, e.Field, e.Reason)
}

// UnsupportedTypeError is returned for a type tag outside the closed set.
type UnsupportedTypeError struct {
	Tag string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported block type: %q", e.Tag)
}

// MissingFieldError names a field the selected variant requires.
type MissingFieldError struct {
	Type  BlockType
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s block: missing field %q", e.Type, e.Field)
}

// PersistenceError wraps a storage failure during a save.
type PersistenceError struct {
	BlockID string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s block %s: %v", e.Op, e.BlockID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
