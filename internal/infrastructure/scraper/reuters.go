package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"investwizard/internal/domain"
	"investwizard/internal/scrape"
)

const reutersBaseURL = "https://www.reuters.com"

// reutersHeaders mimics a browser session; Reuters rejects bare clients.
var reutersHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Sec-Fetch-Dest":  "document",
	"Sec-Fetch-Mode":  "navigate",
}

// ReutersScraper extracts articles from Reuters markets section pages.
type ReutersScraper struct {
	client     *http.Client
	logger     *slog.Logger
	baseURL    string
	sections   []string
	fetchDelay time.Duration
	freshness  time.Duration
	now        func() time.Time
}

var _ scrape.Scraper = (*ReutersScraper)(nil)

// NewReutersScraper wires an HTTP client and the markets sections to walk
// (e.g. "us", "stocks").
func NewReutersScraper(client *http.Client, logger *slog.Logger, sections []string, fetchDelay, freshness time.Duration) *ReutersScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if len(sections) == 0 {
		sections = []string{"us", "stocks"}
	}
	return &ReutersScraper{
		client:     client,
		logger:     logger,
		baseURL:    reutersBaseURL,
		sections:   sections,
		fetchDelay: fetchDelay,
		freshness:  freshness,
		now:        time.Now,
	}
}

// Source identifies the adapter inside the registry.
func (s *ReutersScraper) Source() domain.Source {
	return domain.SourceReuters
}

// Scrape warms the session against the base URL, then walks each configured
// section listing. A section that fails to load is logged and skipped.
func (s *ReutersScraper) Scrape(ctx context.Context, req scrape.Request) ([]domain.RawArticle, error) {
	s.establishSession(ctx)

	var links []string
	seen := map[string]struct{}{}

	for _, section := range s.sections {
		sectionURL := fmt.Sprintf("%s/markets/%s/", s.baseURL, section)
		doc, err := fetchDocument(ctx, s.client, sectionURL, reutersHeaders)
		if err != nil {
			logWarn(s.logger, "section listing failed, skipping", "source", domain.SourceReuters, "url", sectionURL, "error", err)
			continue
		}

		for _, link := range s.sectionLinks(doc) {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
			if req.MaxArticles > 0 && len(links) >= req.MaxArticles {
				break
			}
		}
		if req.MaxArticles > 0 && len(links) >= req.MaxArticles {
			break
		}
	}

	headers := map[string]string{"Referer": s.baseURL, "Sec-Fetch-Site": "same-origin"}
	for key, value := range reutersHeaders {
		headers[key] = value
	}

	return collectArticles(ctx, collectParams{
		client:    s.client,
		logger:    s.logger,
		source:    domain.SourceReuters,
		links:     links,
		headers:   headers,
		delay:     s.fetchDelay,
		freshness: s.freshness,
		now:       s.now,
	})
}

// establishSession visits the base URL to pick up cookies. Failure is not
// fatal; the section fetches may still succeed.
func (s *ReutersScraper) establishSession(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	for key, value := range reutersHeaders {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logWarn(s.logger, "session warm-up failed", "source", domain.SourceReuters, "error", err)
		return
	}
	resp.Body.Close()
}

func (s *ReutersScraper) sectionLinks(doc *goquery.Document) []string {
	var links []string

	doc.Find(`a[data-testid="Heading"]`).Each(func(i int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved, err := s.resolveLink(href)
		if err != nil {
			logWarn(s.logger, "unresolvable listing link, skipping", "source", domain.SourceReuters, "href", href, "error", err)
			return
		}
		links = append(links, resolved)
	})

	return links
}

func (s *ReutersScraper) resolveLink(href string) (string, error) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
