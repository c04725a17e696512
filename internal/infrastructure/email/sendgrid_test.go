package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"investwizard/internal/config"
	"investwizard/internal/domain"
)

func alertArticle() domain.Article {
	summary := "Chip supply deal announced."
	suggestion := "Key Impact: supply shift\nInvestment Suggestion: watch the sector"
	confidence := 0.9
	return domain.Article{
		URL:         "https://techcrunch.com/story",
		Title:       "Big Chip Deal",
		Source:      domain.SourceTechCrunch,
		PublishedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		Summary:     &summary,
		Suggestion:  &suggestion,
		Confidence:  &confidence,
	}
}

func testSender(serverURL string, attempts int) *Sender {
	sender := NewSender(config.AlertConfig{
		Enabled:             true,
		ConfidenceThreshold: 0.8,
		SendGridAPIKey:      "sg-key",
		FromEmail:           "alerts@example.com",
		Recipients:          []string{"a@example.com", "b@example.com"},
		SendTimeout:         time.Second,
		MaxAttempts:         attempts,
	})
	sender.endpoint = serverURL
	sender.policy.BaseDelay = time.Millisecond
	return sender
}

func TestSend(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sg-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &captured); err != nil {
			t.Errorf("payload is not json: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	if err := testSender(server.URL, 1).Send(context.Background(), alertArticle()); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	subject, _ := captured["subject"].(string)
	if !strings.HasPrefix(subject, "High-Confidence Investment Alert: Big Chip Deal") {
		t.Fatalf("unexpected subject: %s", subject)
	}
	contents, _ := captured["content"].([]any)
	if len(contents) != 2 {
		t.Fatalf("expected plain and html parts, got %d", len(contents))
	}
}

func TestSendRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	if err := testSender(server.URL, 3).Send(context.Background(), alertArticle()); err != nil {
		t.Fatalf("Send error after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 delivery attempts, got %d", calls)
	}
}

func TestSendFailsAfterBoundedAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if err := testSender(server.URL, 3).Send(context.Background(), alertArticle()); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 delivery attempts, got %d", calls)
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	t.Parallel()

	sender := NewSender(config.AlertConfig{MaxAttempts: 1})
	if err := sender.Send(context.Background(), alertArticle()); err == nil {
		t.Fatal("expected error for unconfigured sender")
	}
}

func TestPlainBodyContainsArticleFields(t *testing.T) {
	t.Parallel()

	body := plainBody(alertArticle(), 0.8)
	for _, want := range []string{"90.0%", "Big Chip Deal", "https://techcrunch.com/story", "Chip supply deal announced."} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSubjectTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// 49 ASCII bytes followed by a two-byte rune straddling the cut.
	article := domain.Article{Title: strings.Repeat("a", 49) + "é suite"}
	got := subject(article)
	if !utf8.ValidString(got) {
		t.Fatalf("subject contains invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated subject, got %q", got)
	}
	if strings.Contains(got, "é") {
		t.Fatalf("expected the straddling rune to be dropped whole, got %q", got)
	}
}
