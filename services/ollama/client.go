// Package ollama is the HTTP client for the inference backend: model
// listing plus streaming generate/chat, both returning newline-delimited
// JSON bodies that the Decoder consumes.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gincol-ia/ollama-api/utils/logging"
	"github.com/gincol-ia/ollama-api/utils/types"
)

// UpstreamError reports a non-2xx backend response received before any
// fragment was streamed.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ollama request failed: status %d: %s", e.StatusCode, e.Body)
}

type GenerateParams struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ChatParams struct {
	Model    string              `json:"model"`
	Messages []types.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type Client struct {
	baseURL      string
	apiClient    *http.Client
	streamClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	return &Client{
		baseURL:   baseURL,
		apiClient: &http.Client{Timeout: 10 * time.Second},
		// Bounds the whole generation, not just the dial.
		streamClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ListModels fetches /api/tags and returns the raw model entries.
func (c *Client) ListModels(ctx context.Context) ([]json.RawMessage, error) {
	defer logging.LogDuration(ctx, "ollama_list_models")()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.apiClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var parsed struct {
		Models []json.RawMessage `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}
	return parsed.Models, nil
}

// Health checks backend liveness via /api/tags.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.apiClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: resp.Status}
	}
	return nil
}

// Generate opens a streaming /api/generate call and returns the raw
// body for the Decoder. The caller owns closing it.
func (c *Client) Generate(ctx context.Context, params GenerateParams) (io.ReadCloser, error) {
	return c.postStream(ctx, "/api/generate", params)
}

// Chat opens a streaming /api/chat call and returns the raw body.
func (c *Client) Chat(ctx context.Context, params ChatParams) (io.ReadCloser, error) {
	return c.postStream(ctx, "/api/chat", params)
}

func (c *Client) postStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	defer logging.LogDuration(ctx, "ollama_stream_dispatch")()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp.Body, nil
}
