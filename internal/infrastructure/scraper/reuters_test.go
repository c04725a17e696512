package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"investwizard/internal/domain"
	"investwizard/internal/scrape"
)

func TestReutersScrape(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			fmt.Fprint(w, "<html><body>home</body></html>")
		case r.URL.Path == "/markets/us/":
			fmt.Fprintf(w, `<html><body>
				<a data-testid="Heading" href="/markets/us/story-one/">One</a>
				<a data-testid="Heading" href="%s/markets/us/story-two/">Two</a>
			</body></html>`, server.URL)
		case r.URL.Path == "/markets/stocks/":
			fmt.Fprint(w, `<html><body>
				<a data-testid="Heading" href="/markets/us/story-one/">Duplicate</a>
			</body></html>`)
		case strings.HasPrefix(r.URL.Path, "/markets/us/story-"):
			fmt.Fprint(w, articleHTML("Reuters Story", now.Add(-time.Hour).Format(time.RFC3339), "Markets moved."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	sc := NewReutersScraper(server.Client(), nil, []string{"us", "stocks"}, 0, 24*time.Hour)
	sc.baseURL = server.URL

	articles, err := sc.Scrape(context.Background(), scrape.Request{MaxArticles: 50})
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (relative link resolved, duplicate dropped), got %d", len(articles))
	}
	if articles[0].URL != server.URL+"/markets/us/story-one/" {
		t.Fatalf("expected relative link resolved against base, got %s", articles[0].URL)
	}
	if articles[0].Source != domain.SourceReuters {
		t.Fatalf("unexpected source: %s", articles[0].Source)
	}
}

func TestReutersScrapeSkipsFailedSection(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/markets/us/":
			http.Error(w, "denied", http.StatusForbidden)
		case r.URL.Path == "/markets/stocks/":
			fmt.Fprintf(w, `<html><body><a data-testid="Heading" href="%s/markets/stocks/story/">S</a></body></html>`, server.URL)
		case r.URL.Path == "/markets/stocks/story/":
			fmt.Fprint(w, articleHTML("Stocks Story", now.Format(time.RFC3339), "Stocks rallied."))
		default:
			fmt.Fprint(w, "<html><body>home</body></html>")
		}
	}))
	defer server.Close()

	sc := NewReutersScraper(server.Client(), nil, []string{"us", "stocks"}, 0, 24*time.Hour)
	sc.baseURL = server.URL

	articles, err := sc.Scrape(context.Background(), scrape.Request{MaxArticles: 50})
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("expected 1 article from surviving section, got %d", len(articles))
	}
}

func TestExtractPublishedAtFallsBackToNow(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>No Date</title></head><body><p>text</p></body></html>`)
	}))
	defer server.Close()

	doc, err := fetchDocument(context.Background(), server.Client(), server.URL, nil)
	if err != nil {
		t.Fatalf("fetchDocument error: %v", err)
	}

	now := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	if got := extractPublishedAt(doc, now); !got.Equal(now) {
		t.Fatalf("expected fallback to now, got %v", got)
	}
}
