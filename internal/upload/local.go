package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"blocknotes/internal/ident"
)

// LocalUploader writes images into a directory served under BaseURL.
type LocalUploader struct {
	dir     string
	baseURL string
	ids     ident.Generator
}

// NewLocalUploader creates dir if needed. With an empty baseURL, sources are
// file paths.
func NewLocalUploader(dir, baseURL string, ids ident.Generator) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if ids == nil {
		ids = ident.UUID
	}
	if baseURL == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve upload directory: %w", err)
		}
		baseURL = abs
	}
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), ids: ids}, nil
}

func (u *LocalUploader) Upload(_ context.Context, data []byte) (Result, error) {
	m, err := DetectImage(data)
	if err != nil {
		return Result{}, err
	}
	name := u.ids() + m.Extension()
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0644); err != nil {
		return Result{}, fmt.Errorf("write upload: %w", err)
	}
	return Result{Src: joinURL(u.baseURL, name), ContentType: m.String()}, nil
}

func (u *LocalUploader) Owns(src string) bool {
	_, ok := u.name(src)
	return ok
}

func (u *LocalUploader) name(src string) (string, bool) {
	rest, ok := strings.CutPrefix(src, u.baseURL+"/")
	if !ok || rest == "" || strings.ContainsAny(rest, `/\`) || rest == ".." {
		return "", false
	}
	return rest, true
}

// Delete removes an uploaded file. Removing a file that is already gone is not
// an error.
func (u *LocalUploader) Delete(_ context.Context, src string) error {
	name, ok := u.name(src)
	if !ok {
		return ErrNotOwned
	}
	err := os.Remove(filepath.Join(u.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}
