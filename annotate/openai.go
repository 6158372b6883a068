package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const analysisPrompt = `You are an expert in analyzing dealership websites.
Given a dealership URL: %s
Provide a brief, professional assessment of what you can infer about the dealership:
- Likely type of dealership (brand, multi-brand, etc.)
- Potential location or region
- Any notable observations from the URL

Be concise but insightful.`

// Config holds the configuration for the OpenAI-compatible annotator.
type Config struct {
	// APIKey is the authentication key. Empty disables annotation entirely.
	APIKey string

	// BaseURL is the API base URL. Defaults to https://api.openai.com.
	BaseURL string

	// Model is the chat model. Defaults to gpt-3.5-turbo.
	Model string

	// Temperature for the completion. Defaults to 0.7.
	Temperature float32

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New returns an Annotator for the given config. When no API key is
// configured it returns Noop, so callers never branch on availability.
func New(cfg Config, logger *zap.Logger) Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		logger.Info("annotator disabled, no API key configured")
		return Noop{}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "annotator")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Analyze implements Annotator. Errors are returned to the caller; the batch
// orchestrator is responsible for substituting the NoInsight sentinel.
func (c *Client) Analyze(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(analysisPrompt, url)},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("annotator request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("annotator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("annotator error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("annotator returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
