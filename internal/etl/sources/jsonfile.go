package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"blocknotes/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads block records from a local JSON document (e.g. the output of
// `blocknotes list`) or a JSON Lines file with one object per line.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the JSON or JSON Lines file"},
			{Key: "format", Label: "Format", Help: "json or jsonl; guessed from the extension when empty"},
			{Key: "dataPath", Label: "Data Path", Help: "Dot-separated path to the array (e.g. 'data.items'), json format only"},
			{Key: "blockType", Label: "Block Type", Help: "Type for items that are plain payload objects"},
		},
	}
}

func (s *jsonFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return stream(ctx, func() ([]etl.Record, error) { return readJSONFile(cfg) })
}

func readJSONFile(cfg etl.SourceConfig) ([]etl.Record, error) {
	filePath := str(cfg, "filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	format := str(cfg, "format")
	if format == "" {
		switch filepath.Ext(filePath) {
		case ".jsonl", ".ndjson":
			format = "jsonl"
		default:
			format = "json"
		}
	}

	dec := json.NewDecoder(f)
	switch format {
	case "json":
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		raw, err = navigatePath(raw, str(cfg, "dataPath"))
		if err != nil {
			return nil, err
		}
		return toRecords(raw, str(cfg, "blockType"))

	case "jsonl":
		var items []any
		for line := 1; ; line++ {
			var obj map[string]any
			err := dec.Decode(&obj)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("parse jsonl record %d: %w", line, err)
			}
			items = append(items, obj)
		}
		return toRecords(items, str(cfg, "blockType"))
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
