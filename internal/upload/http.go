package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPUploader posts raw image bytes to an endpoint that answers with
// {"src": "..."}.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
	header   http.Header
}

func NewHTTPUploader(endpoint string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPUploader{endpoint: endpoint, client: client, header: http.Header{}}
}

// SetHeader sets a header sent with every upload, e.g. Authorization.
func (u *HTTPUploader) SetHeader(key, value string) {
	u.header.Set(key, value)
}

func (u *HTTPUploader) Upload(ctx context.Context, data []byte) (Result, error) {
	m, err := DetectImage(data)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("create upload request: %w", err)
	}
	for k, vs := range u.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", m.String())
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("upload image: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("decode upload response: %w", err)
	}
	if out.Src == "" {
		return Result{}, fmt.Errorf("upload image: response has no src")
	}
	if out.ContentType == "" {
		out.ContentType = m.String()
	}
	return out, nil
}
