package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"investwizard/internal/config"
	"investwizard/internal/domain"
	"investwizard/internal/ports"
	"investwizard/internal/retry"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Sender delivers high-confidence alerts through the SendGrid mail API.
type Sender struct {
	endpoint   string
	apiKey     string
	from       string
	recipients []string
	threshold  float64
	client     *http.Client
	policy     retry.Policy
}

var _ ports.AlertSender = (*Sender)(nil)

// NewSender wires API credentials and the recipient list.
func NewSender(cfg config.AlertConfig) *Sender {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		endpoint:   defaultEndpoint,
		apiKey:     cfg.SendGridAPIKey,
		from:       cfg.FromEmail,
		recipients: cfg.Recipients,
		threshold:  cfg.ConfidenceThreshold,
		client:     &http.Client{Timeout: timeout},
		policy:     retry.New(cfg.MaxAttempts, time.Second),
	}
}

// Send posts a plain-text plus HTML alert for one qualifying article,
// retrying transient delivery failures with backoff.
func (s *Sender) Send(ctx context.Context, article domain.Article) error {
	if s.apiKey == "" || s.from == "" || len(s.recipients) == 0 {
		return fmt.Errorf("email sender misconfigured")
	}

	body, err := s.buildPayload(article)
	if err != nil {
		return fmt.Errorf("build mail payload: %w", err)
	}

	return s.policy.Do(ctx, func(ctx context.Context) error {
		return s.post(ctx, body)
	})
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendgrid error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
}

func (s *Sender) buildPayload(article domain.Article) ([]byte, error) {
	type address struct {
		Email string `json:"email"`
	}

	to := make([]address, 0, len(s.recipients))
	for _, recipient := range s.recipients {
		to = append(to, address{Email: recipient})
	}

	payload := map[string]any{
		"personalizations": []map[string]any{{"to": to}},
		"from":             address{Email: s.from},
		"subject":          subject(article),
		"content": []map[string]string{
			{"type": "text/plain", "value": plainBody(article, s.threshold)},
			{"type": "text/html", "value": htmlBody(article, s.threshold)},
		},
	}

	return json.Marshal(payload)
}

func subject(article domain.Article) string {
	title := article.Title
	if len(title) > 50 {
		cut := 50
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut] + "..."
	}
	return "High-Confidence Investment Alert: " + title
}
