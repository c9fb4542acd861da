package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"blocknotes/internal/etl"
)

// stream pushes pre-read records into a channel, honouring ctx.
func stream(ctx context.Context, read func() ([]etl.Record, error)) (<-chan etl.Record, <-chan error) {
	out := make(chan etl.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		records, err := read()
		if err != nil {
			errCh <- err
			return
		}
		for _, rec := range records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

// navigatePath walks a dot-separated path into nested objects.
func navigatePath(obj any, path string) (any, error) {
	if path == "" {
		return obj, nil
	}
	current := obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", part)
		}
		current, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", part)
		}
	}
	return current, nil
}

// toRecords converts a decoded JSON value (array of objects or a single
// object) into records.
func toRecords(raw any, fallbackType string) ([]etl.Record, error) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, fmt.Errorf("expected an object or array of objects, got %T", raw)
	}

	records := make([]etl.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d: expected an object, got %T", i, item)
		}
		rec, err := etl.RecordFromObject(m, fallbackType)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func str(cfg etl.SourceConfig, key string) string {
	return cast.ToString(cfg[key])
}
