package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"

	"blocknotes/internal/domain"
	"blocknotes/internal/etl"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads a local CSV file. By default the whole file becomes one table
// block; with another blockType each row becomes a block whose fields
// come from the header.

type csvFileSource struct{}

func init() { etl.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "csv_file",
		Label: "CSV File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the CSV file"},
			{Key: "delimiter", Label: "Delimiter", Default: ",", Help: "Column delimiter"},
			{Key: "hasHeader", Label: "Has Header", Default: "true", Help: "Whether the first row contains column names"},
			{Key: "blockType", Label: "Block Type", Default: "table", Help: "table for one block per file, any other type for one block per row"},
		},
	}
}

func (s *csvFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return stream(ctx, func() ([]etl.Record, error) { return readCSVRecords(cfg) })
}

func readCSVRecords(cfg etl.SourceConfig) ([]etl.Record, error) {
	headers, rows, err := readCSVFile(cfg)
	if err != nil {
		return nil, err
	}

	blockType := str(cfg, "blockType")
	if blockType == "" || blockType == string(domain.BlockTypeTable) {
		content, err := encodeCSV(headers, rows)
		if err != nil {
			return nil, err
		}
		return []etl.Record{{
			Type: string(domain.BlockTypeTable),
			Data: map[string]any{"rows": len(rows), "columns": len(headers), "content": content},
		}}, nil
	}

	records := make([]etl.Record, 0, len(rows))
	for _, row := range rows {
		data := make(map[string]any, len(headers))
		for j, h := range headers {
			if j < len(row) {
				data[h] = row[j]
			}
		}
		rec, err := etl.RecordFromObject(data, blockType)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readCSVFile(cfg etl.SourceConfig) ([]string, [][]string, error) {
	filePath := str(cfg, "filePath")
	if filePath == "" {
		return nil, nil, fmt.Errorf("filePath is required")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if delim := str(cfg, "delimiter"); len(delim) > 0 {
		reader.Comma = rune(delim[0])
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv file")
	}

	hasHeader := true
	if h, ok := cfg["hasHeader"]; ok {
		hasHeader = cast.ToBool(strings.ToLower(cast.ToString(h)))
	}
	if hasHeader {
		return records[0], records[1:], nil
	}

	// Generate column names: col_1, col_2, ...
	headers := make([]string, len(records[0]))
	for i := range headers {
		headers[i] = fmt.Sprintf("col_%d", i+1)
	}
	return headers, records, nil
}

// encodeCSV writes the header and rows back out as table content.
func encodeCSV(headers []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
