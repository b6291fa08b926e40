// Package client talks to a running tagserver over HTTP.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/teslashibe/tagserver/internal/httpc"
	"github.com/teslashibe/tagserver/pkg/tagservice"
)

// ErrNotReady is returned when /ping answers with something other than pong.
var ErrNotReady = errors.New("client: server not ready")

// APIError is a non-200 response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a tagserver API client.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = httpc.NewClient(d) }
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.NewClient(httpc.DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the server answers /ping with pong.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: ping: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return fmt.Errorf("client: ping: %w", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "pong" {
		return fmt.Errorf("%w: status %d body %q", ErrNotReady, resp.StatusCode, body)
	}
	return nil
}

// WaitReady polls Ping every interval until it succeeds or ctx ends.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := c.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("client: wait ready: %w (last error: %v)", ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

// Detect uploads image bytes as the multipart "image" field.
func (c *Client) Detect(ctx context.Context, filename string, image []byte) (*tagservice.DetectionResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("client: create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("client: write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("client: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: detect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(data))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	var out tagservice.DetectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	if out.Detections == nil {
		out.Detections = []tagservice.DetectionRecord{}
	}
	return &out, nil
}
