package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func fetchDocument(ctx context.Context, client *http.Client, pageURL string, headers map[string]string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractTitle tries og:title, then the head title, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title := strings.TrimSpace(og); title != "" {
			return title
		}
	}
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractBody collects paragraph text from the article container, falling
// back to every paragraph on the page.
func extractBody(doc *goquery.Document) string {
	selectors := []string{".entry-content p", "article p", "p"}

	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, p *goquery.Selection) {
			if text := strings.TrimSpace(p.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}

	return ""
}

// extractPublishedAt reads the source-reported publish time; pages without
// one are treated as published now.
func extractPublishedAt(doc *goquery.Document, now time.Time) time.Time {
	if meta, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(meta)); err == nil {
			return parsed
		}
	}
	if attr, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(attr)); err == nil {
			return parsed
		}
	}
	return now
}

// delayBetweenFetches sleeps the adapter rate limit, aborting early when the
// cycle is cancelled.
func delayBetweenFetches(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
