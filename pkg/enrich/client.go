// Package enrich turns extracted document text into structured metadata
// by prompting a chat-completion inference service and validating the
// response against the configured key schema. Every call attempt is
// recorded in the extraction log with the exact prompts and raw response.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"pdfharvest/models"
)

// InferenceClient sends a prompt pair to the inference service and
// returns the raw response text.
type InferenceClient interface {
	Complete(ctx context.Context, sysPrompt, userPrompt string) (string, error)
}

// APIError reports a non-2xx response from the inference service.
type APIError struct {
	Code int
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API error %d: %s", e.Code, e.Body)
}

// isTransientAIError reports whether an inference failure is worth
// retrying: timeouts, rate limiting, and server-side errors.
func isTransientAIError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	endpoint    string
	model       string
	apiKey      string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

var _ InferenceClient = (*ChatClient)(nil)

// NewChatClient builds a client from AI configuration.
func NewChatClient(cfg models.AIConfig) *ChatClient {
	return &ChatClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts the prompt pair and returns the first choice's content.
func (c *ChatClient) Complete(ctx context.Context, sysPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("inference client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": sysPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("inference response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
