// Package upload stores image bytes somewhere addressable and returns the
// source an image block should point at.
package upload

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"blocknotes/internal/domain"
)

// Result is what an upload produced.
type Result struct {
	Src         string `json:"src"`
	ContentType string `json:"contentType,omitempty"`
}

// Uploader stores image bytes.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (Result, error)
}

// Deleter is implemented by uploaders that can remove what they stored.
type Deleter interface {
	// Owns reports whether src was produced by this uploader.
	Owns(src string) bool
	Delete(ctx context.Context, src string) error
}

// ErrNotOwned is returned by Delete for a src the uploader did not produce.
var ErrNotOwned = errors.New("source not owned by uploader")

// DetectImage sniffs data and fails with *domain.ValidationError unless it is
// an image.
func DetectImage(data []byte) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, &domain.ValidationError{Type: domain.BlockTypeImage, Field: "src", Reason: "empty upload"}
	}
	m := mimetype.Detect(data)
	if !strings.HasPrefix(m.String(), "image/") {
		return nil, &domain.ValidationError{
			Type:   domain.BlockTypeImage,
			Field:  "src",
			Reason: "upload is " + m.String() + ", not an image",
		}
	}
	return m, nil
}

func joinURL(base, name string) string {
	if base == "" {
		return name
	}
	return strings.TrimRight(base, "/") + "/" + name
}
