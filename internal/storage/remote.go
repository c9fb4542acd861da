package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blocknotes/internal/domain"
)

const maxRemoteBody = 5 * 1024 * 1024

// RemoteStore talks to a block service over HTTP:
//
//	PUT    {base}/blocks/{id}  unit JSON in, stored unit JSON out
//	GET    {base}/blocks/{id}
//	GET    {base}/blocks       JSON array of units
//	DELETE {base}/blocks/{id}
type RemoteStore struct {
	base   string
	client *http.Client
	header http.Header
}

type RemoteOption func(*RemoteStore)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *RemoteStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) RemoteOption {
	return func(s *RemoteStore) { s.header.Add(key, value) }
}

func NewRemoteStore(baseURL string, opts ...RemoteOption) (*RemoteStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote url %q", baseURL)
	}
	s := &RemoteStore{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (s *RemoteStore) blockURL(id string) string {
	return s.base + "/blocks/" + url.PathEscape(id)
}

func (s *RemoteStore) do(ctx context.Context, method, target string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{Method: method, URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// remoteReply is a unit as the service answers it; data may hold only the
// fields the service authored.
type remoteReply struct {
	ID   string           `json:"id"`
	Type domain.BlockType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// Put sends the unit and returns the service's answer. An empty 2xx body
// means the service stored the unit as sent. Fields missing from the
// reply's data keep the values that were sent.
func (s *RemoteStore) Put(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	if err := checkUnit(u); err != nil {
		return domain.Unit{}, err
	}
	var out *remoteReply
	if _, err := s.do(ctx, http.MethodPut, s.blockURL(u.ID), u, &out); err != nil {
		return domain.Unit{}, err
	}
	if out == nil {
		return u.Clone(), nil
	}
	return overlayReply(u, *out)
}

func overlayReply(sent domain.Unit, r remoteReply) (domain.Unit, error) {
	id, typ := r.ID, r.Type
	if id == "" {
		id = sent.ID
	}
	if typ == "" {
		typ = sent.Type
	}

	fields := map[string]any{}
	if typ == sent.Type {
		var err error
		if fields, err = domain.PayloadFields(sent.Data); err != nil {
			return domain.Unit{}, err
		}
	}
	if data := bytes.TrimSpace(r.Data); len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		// Unmarshal into a non-nil map keeps the keys it does not mention.
		if err := json.Unmarshal(data, &fields); err != nil {
			return domain.Unit{}, fmt.Errorf("decode response data: %w", err)
		}
	}
	p, err := domain.DecodePayload(typ, fields)
	if err != nil {
		return domain.Unit{}, fmt.Errorf("decode response: %w", err)
	}
	return domain.Unit{ID: id, Type: typ, Data: p}, nil
}

func (s *RemoteStore) Get(ctx context.Context, id string) (domain.Unit, error) {
	var out domain.Unit
	status, err := s.do(ctx, http.MethodGet, s.blockURL(id), nil, &out)
	if status == http.StatusNotFound {
		return domain.Unit{}, notFound(id)
	}
	if err != nil {
		return domain.Unit{}, err
	}
	return out, nil
}

func (s *RemoteStore) List(ctx context.Context) ([]domain.Unit, error) {
	var out []domain.Unit
	if _, err := s.do(ctx, http.MethodGet, s.base+"/blocks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	status, err := s.do(ctx, http.MethodDelete, s.blockURL(id), nil, nil)
	if status == http.StatusNotFound {
		return notFound(id)
	}
	return err
}
