package tags

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Client calls the external NLP tagging service over HTTP. It implements
// both Generator and SketchTagger.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a tagging client for the given service base URL.
// timeout <= 0 selects the default.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type tagResponse struct {
	Tags []string `json:"tags"`
}

// Generate requests tags for text from POST {base}/tags.
func (c *Client) Generate(ctx context.Context, text string) ([]string, error) {
	return c.post(ctx, "/tags", map[string]string{"text": text})
}

// GenerateFromSketch requests tags for sketch data from POST {base}/sketch-tags.
func (c *Client) GenerateFromSketch(ctx context.Context, sketchData string) ([]string, error) {
	return c.post(ctx, "/sketch-tags", map[string]string{"sketch": sketchData})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tag service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tag service: status %d", resp.StatusCode)
	}

	var out tagResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Tags, nil
}
