// Package upstream talks to the configured OpenAI-compatible service:
// a JSON client for the proxy's own draft calls and a transparent
// streaming passthrough for everything else.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"interactive-openai-proxy/internal/config"
	"interactive-openai-proxy/internal/telemetry"
	"interactive-openai-proxy/pkg/models"
)

// Client issues non-streaming chat-completion requests to the upstream
// service on the proxy's behalf.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the configured upstream service.
func NewClient(cfg *config.Config) *Client {
	httpClient := telemetry.NewTracedHTTPClient(nil)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(cfg.UpstreamBaseURL, "/"),
		apiKey:     cfg.UpstreamAPIKey,
		httpClient: httpClient,
	}
}

// CreateChatCompletion sends payload to the upstream chat-completions
// endpoint and decodes the response. The payload is passed through as
// given; callers own field selection and defaults.
func (c *Client) CreateChatCompletion(ctx context.Context, payload map[string]interface{}) (*models.ChatCompletion, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upstream returned error: %s - %s", resp.Status, string(respBody))
	}

	var completion models.ChatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &completion, nil
}
