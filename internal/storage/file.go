package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"blocknotes/internal/domain"
	"blocknotes/internal/log"
)

const unitExt = ".json"

// FileStore keeps one <id>.json file per unit in a directory.
type FileStore struct {
	dir    string
	logger *zap.Logger

	// WatchDelay is how long a unit file must be quiet before Watch reports
	// it.
	WatchDelay time.Duration
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create block directory: %w", err)
	}
	return &FileStore{dir: dir, logger: log.Get(), WatchDelay: 200 * time.Millisecond}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+unitExt)
}

// Put writes the unit atomically: readers see the old file or the new one,
// never a partial write.
func (s *FileStore) Put(_ context.Context, u domain.Unit) (domain.Unit, error) {
	if err := checkUnit(u); err != nil {
		return domain.Unit{}, err
	}
	if err := checkFileID(u.ID); err != nil {
		return domain.Unit{}, err
	}
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return domain.Unit{}, fmt.Errorf("encode block %s: %w", u.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".unit-*")
	if err != nil {
		return domain.Unit{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.Unit{}, fmt.Errorf("write block %s: %w", u.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.Unit{}, fmt.Errorf("write block %s: %w", u.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(u.ID)); err != nil {
		return domain.Unit{}, fmt.Errorf("write block %s: %w", u.ID, err)
	}
	return u.Clone(), nil
}

func (s *FileStore) Get(_ context.Context, id string) (domain.Unit, error) {
	if err := checkFileID(id); err != nil {
		return domain.Unit{}, err
	}
	return s.read(id)
}

func (s *FileStore) read(id string) (domain.Unit, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Unit{}, notFound(id)
	}
	if err != nil {
		return domain.Unit{}, fmt.Errorf("read block %s: %w", id, err)
	}
	u, err := domain.DecodeUnit(data)
	if err != nil {
		return domain.Unit{}, fmt.Errorf("decode block %s: %w", id, err)
	}
	if u.ID != id {
		return domain.Unit{}, fmt.Errorf("block file %s holds id %q", id, u.ID)
	}
	return u, nil
}

// List returns every unit in the directory, ordered by id. A file that does
// not decode fails the whole listing.
func (s *FileStore) List(context.Context) ([]domain.Unit, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if id, ok := unitFileID(e.Name()); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	units := make([]domain.Unit, 0, len(ids))
	for _, id := range ids {
		u, err := s.read(id)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := checkFileID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(id)
	}
	if err != nil {
		return fmt.Errorf("delete block %s: %w", id, err)
	}
	return nil
}

func unitFileID(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, unitExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, unitExt)
	return id, id != ""
}

// FileChange reports that a unit file was written or removed by someone.
type FileChange struct {
	ID      string
	Removed bool
}

// Watch reports changes to unit files until ctx is done. Bursts of events on
// the same file are collapsed into one call after WatchDelay. fn runs on
// timer goroutines and must be safe for concurrent use.
func (s *FileStore) Watch(ctx context.Context, fn func(FileChange)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	debouncers := make(map[string]func(func()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			id, ok := unitFileID(filepath.Base(event.Name))
			if !ok || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			d, exists := debouncers[id]
			if !exists {
				d = debounce.New(s.WatchDelay)
				debouncers[id] = d
			}
			d(func() {
				if ctx.Err() != nil {
					return
				}
				_, statErr := os.Stat(s.path(id))
				fn(FileChange{ID: id, Removed: errors.Is(statErr, fs.ErrNotExist)})
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("block watcher error", zap.String("dir", s.dir), zap.Error(err))
		}
	}
}
