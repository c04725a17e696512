package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"investwizard/internal/config"
	"investwizard/internal/domain"
	"investwizard/internal/ports"
	"investwizard/internal/retry"
)

const systemPrompt = "You are a financial analyst providing investment insights based on news articles."

// Client implements ports.Enricher backed by OpenAI-compatible
// chat-completions APIs.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

var _ ports.Enricher = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		policy:     retry.New(cfg.MaxAttempts, 2*time.Second),
	}
}

// Enrich asks the model for a summary, then for a structured investment
// suggestion with a confidence score.
func (c *Client) Enrich(ctx context.Context, article domain.Article) (domain.Enrichment, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Enrichment{}, fmt.Errorf("llm client misconfigured")
	}

	summary, err := c.complete(ctx, summaryPrompt(article.Content))
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("summary: %w", err)
	}

	raw, err := c.complete(ctx, suggestionPrompt(article.Content, summary))
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("suggestion: %w", err)
	}

	suggestion, err := parseSuggestion(raw)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("suggestion: %w", err)
	}

	return domain.Enrichment{
		Kind:       domain.EnrichmentReal,
		Summary:    strings.TrimSpace(summary),
		Suggestion: suggestion.Text(),
		Confidence: clamp(suggestion.Confidence),
	}, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	var content string

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		result, callErr := c.completeOnce(ctx, prompt)
		if callErr != nil {
			return callErr
		}
		content = result
		return nil
	})
	return content, err
}

func (c *Client) completeOnce(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("model error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
