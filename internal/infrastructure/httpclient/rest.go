package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

// HTTPError is a non-2xx response surfaced to an adapter for
// classification.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// BodyOf returns the response body carried by err, or "".
func BodyOf(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Body
	}
	return ""
}

// REST is a small JSON-over-HTTP helper for the forges without an SDK.
// All requests run through the kernel client handed to NewREST.
type REST struct {
	baseURL string
	client  *http.Client
}

// NewREST creates a REST helper rooted at baseURL.
func NewREST(baseURL string, client *http.Client) *REST {
	return &REST{baseURL: baseURL, client: client}
}

// BaseURL returns the configured API root.
func (r *REST) BaseURL() string {
	return r.baseURL
}

// Do sends one JSON request and decodes the response into out (when out
// is non-nil). Non-2xx responses return an *HTTPError with the body.
func (r *REST) Do(ctx context.Context, method string, path string, body any, out any) error {
	data, _, err := r.DoRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// DoRaw sends one request and returns the raw response body and headers.
func (r *REST) DoRaw(ctx context.Context, method string, path string, body any) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, resp.Header, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}
	return data, resp.Header, nil
}
