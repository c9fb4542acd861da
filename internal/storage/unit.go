package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"blocknotes/internal/domain"
)

// checkUnit rejects units no backend can store.
func checkUnit(u domain.Unit) error {
	if u.ID == "" {
		return &domain.ValidationError{Type: u.Type, Field: "id", Reason: "required"}
	}
	if !u.Type.Known() {
		return &domain.UnsupportedTypeError{Tag: string(u.Type)}
	}
	if u.Data == nil {
		return &domain.MissingFieldError{Type: u.Type, Field: "data"}
	}
	if u.Data.BlockType() != u.Type {
		return &domain.ValidationError{Type: u.Type, Field: "data", Reason: "does not match type"}
	}
	return u.Data.Validate()
}

// checkFileID rejects ids that would escape a directory when used as a file
// name.
func checkFileID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid block id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("block %s: %w", id, domain.ErrNotFound)
}
