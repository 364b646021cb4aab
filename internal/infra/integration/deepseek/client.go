package deepseek

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

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"

	systemPrompt = "You are a friendly assistant for a loan advisory service on WhatsApp. " +
		"Answer briefly and plainly, in at most five sentences, in the language with code %s."
)

// Client answers general questions through the chat completions API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string {
	return "deepseek"
}

func (c *Client) Reply(ctx context.Context, input, language string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("deepseek not configured")
	}

	payload := completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, language)},
			{Role: "user", Content: input},
		},
		Temperature: 0.3,
		MaxTokens:   400,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("deepseek decode (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("deepseek api error (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("deepseek api error (status %d)", resp.StatusCode)
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("deepseek: no choices returned")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
