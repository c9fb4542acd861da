package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blocknotes/internal/etl"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches block records from a JSON endpoint, e.g. another
// workspace's block API.

type httpSource struct {
	client *http.Client
}

func init() { etl.RegisterSource(&httpSource{client: &http.Client{Timeout: 30 * time.Second}}) }

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "http",
		Label: "HTTP API",
		ConfigFields: []etl.ConfigField{
			{Key: "url", Label: "URL", Required: true, Help: "Full URL to fetch"},
			{Key: "method", Label: "Method", Default: "GET"},
			{Key: "headers", Label: "Headers", Help: "JSON object of headers (e.g. {\"Authorization\": \"Bearer xxx\"})"},
			{Key: "body", Label: "Body", Help: "Request body (for POST)"},
			{Key: "dataPath", Label: "Data Path", Help: "Dot-separated path to the array in the response (e.g. 'data.items')"},
			{Key: "blockType", Label: "Block Type", Help: "Type for items that are plain payload objects"},
		},
	}
}

func (s *httpSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return stream(ctx, func() ([]etl.Record, error) { return s.fetch(ctx, cfg) })
}

func (s *httpSource) fetch(ctx context.Context, cfg etl.SourceConfig) ([]etl.Record, error) {
	url := str(cfg, "url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	method := strings.ToUpper(str(cfg, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if body := str(cfg, "body"); body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	headers, err := parseHeaders(cfg["headers"])
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	raw, err = navigatePath(raw, str(cfg, "dataPath"))
	if err != nil {
		return nil, err
	}
	return toRecords(raw, str(cfg, "blockType"))
}

// parseHeaders accepts a header map or its JSON encoding.
func parseHeaders(v any) (map[string]string, error) {
	switch h := v.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return h, nil
	case map[string]any:
		out := make(map[string]string, len(h))
		for k, val := range h {
			out[k] = fmt.Sprint(val)
		}
		return out, nil
	case string:
		if h == "" {
			return nil, nil
		}
		var out map[string]string
		if err := json.Unmarshal([]byte(h), &out); err != nil {
			return nil, fmt.Errorf("parse headers: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("headers must be an object, got %T", v)
}
