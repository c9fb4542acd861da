package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
	"blocknotes/internal/etl"
	_ "blocknotes/internal/etl/sources"
	"blocknotes/internal/storage"
)

func preview(t *testing.T, typ string, cfg etl.SourceConfig) ([]etl.Record, error) {
	t.Helper()
	e := &etl.Engine{}
	return e.Preview(context.Background(), typ, cfg, 0)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestListSources(t *testing.T) {
	var types []string
	for _, s := range etl.ListSources() {
		types = append(types, s.Type)
	}
	assert.Equal(t, []string{"blocks", "csv_file", "http", "json_file"}, types)
}

func TestJSONFile(t *testing.T) {
	path := writeFile(t, "blocks.json", `{"export":{"blocks":[
		{"id":"a","type":"quote","data":{"content":"q"}},
		{"content":"plain"}
	]}}`)

	records, err := preview(t, "json_file", etl.SourceConfig{"filePath": path, "dataPath": "export.blocks", "blockType": "bullet"})
	require.NoError(t, err)
	assert.Equal(t, []etl.Record{
		{ID: "a", Type: "quote", Data: map[string]any{"content": "q"}},
		{Type: "bullet", Data: map[string]any{"content": "plain"}},
	}, records)

	_, err = preview(t, "json_file", etl.SourceConfig{"filePath": path})
	assert.Error(t, err, "root is not an array of records")

	_, err = preview(t, "json_file", etl.SourceConfig{"filePath": path, "dataPath": "export.missing"})
	assert.ErrorContains(t, err, "missing")

	_, err = preview(t, "json_file", etl.SourceConfig{})
	assert.ErrorContains(t, err, "filePath")
}

func TestJSONFile_Lines(t *testing.T) {
	path := writeFile(t, "blocks.jsonl", `{"id":"a","type":"quote","data":{"content":"q"}}
{"type":"code","data":{"content":"x","language":"go"}}
`)
	records, err := preview(t, "json_file", etl.SourceConfig{"filePath": path})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "code", records[1].Type)

	_, err = preview(t, "json_file", etl.SourceConfig{"filePath": path, "format": "xml"})
	assert.ErrorContains(t, err, "unknown format")

	bad := writeFile(t, "bad.ndjson", "{\"type\":\"quote\"}\n{oops\n")
	_, err = preview(t, "json_file", etl.SourceConfig{"filePath": bad})
	assert.ErrorContains(t, err, "record 2")
}

func TestCSVFile_Table(t *testing.T) {
	path := writeFile(t, "people.csv", "name;age\nAda;36\n\"Grace, H\";85\n")

	records, err := preview(t, "csv_file", etl.SourceConfig{"filePath": path, "delimiter": ";"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "table", rec.Type)

	u, err := rec.Unit()
	require.NoError(t, err)
	assert.Equal(t, domain.Table{Rows: 2, Columns: 2, Content: "name,age\nAda,36\n\"Grace, H\",85"}, u.Data)
}

func TestCSVFile_RowPerBlock(t *testing.T) {
	path := writeFile(t, "todo.csv", "id,content\nt1,milk\nt2,eggs\n")

	records, err := preview(t, "csv_file", etl.SourceConfig{"filePath": path, "blockType": "bullet"})
	require.NoError(t, err)
	assert.Equal(t, []etl.Record{
		{ID: "t1", Type: "bullet", Data: map[string]any{"content": "milk"}},
		{ID: "t2", Type: "bullet", Data: map[string]any{"content": "eggs"}},
	}, records)

	records, err = preview(t, "csv_file", etl.SourceConfig{"filePath": path, "blockType": "bullet", "hasHeader": "false"})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, map[string]any{"col_1": "id", "col_2": "content"}, records[0].Data)

	_, err = preview(t, "csv_file", etl.SourceConfig{"filePath": writeFile(t, "empty.csv", "")})
	assert.ErrorContains(t, err, "empty")
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"r1","type":"link","data":{"url":"https://go.dev","caption":"Go"}}]}`))
	}))
	defer srv.Close()

	records, err := preview(t, "http", etl.SourceConfig{
		"url":      srv.URL,
		"headers":  `{"Authorization":"Bearer secret"}`,
		"dataPath": "data",
	})
	require.NoError(t, err)
	assert.Equal(t, []etl.Record{{ID: "r1", Type: "link", Data: map[string]any{"url": "https://go.dev", "caption": "Go"}}}, records)

	_, err = preview(t, "http", etl.SourceConfig{"url": srv.URL})
	assert.ErrorContains(t, err, "http 401")

	_, err = preview(t, "http", etl.SourceConfig{"url": srv.URL, "headers": 42})
	assert.Error(t, err)
}

func TestBlocks_SQLiteAndFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "other.db")
	db, err := storage.OpenSQLite(dsn)
	require.NoError(t, err)
	_, err = storage.NewSQLStore(db).Put(ctx, domain.Unit{ID: "s1", Type: domain.BlockTypeList, Data: domain.List{Items: []string{"a", "b"}}})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	records, err := preview(t, "blocks", etl.SourceConfig{"driver": "sqlite", "dsn": dsn})
	require.NoError(t, err)
	require.Len(t, records, 1)
	u, err := records[0].Unit()
	require.NoError(t, err)
	assert.Equal(t, domain.Unit{ID: "s1", Type: domain.BlockTypeList, Data: domain.List{Items: []string{"a", "b"}}}, u)

	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	_, err = fs.Put(ctx, domain.Unit{ID: "f1", Type: domain.BlockTypeCode, Data: domain.Code{Content: "x", Language: "go"}})
	require.NoError(t, err)

	records, err = preview(t, "blocks", etl.SourceConfig{"driver": "file", "dsn": dir})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "f1", records[0].ID)

	_, err = preview(t, "blocks", etl.SourceConfig{"driver": "sqlite"})
	assert.ErrorContains(t, err, "dsn")
}
