package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"investwizard/internal/domain"
	"investwizard/internal/scrape"
)

const (
	techCrunchBaseURL    = "https://techcrunch.com"
	techCrunchListingURL = "https://techcrunch.com/latest/"
)

// techCrunchSkipped marks listing links that are not articles.
var techCrunchSkipped = []string{"/video/", "/events/", "/podcast/", "/newsletters/", "/author/"}

// TechCrunchScraper extracts articles from the TechCrunch "Latest" listing.
type TechCrunchScraper struct {
	client     *http.Client
	logger     *slog.Logger
	listingURL string
	linkPrefix string
	fetchDelay time.Duration
	freshness  time.Duration
	now        func() time.Time
}

var _ scrape.Scraper = (*TechCrunchScraper)(nil)

// NewTechCrunchScraper wires an HTTP client and adapter limits.
func NewTechCrunchScraper(client *http.Client, logger *slog.Logger, fetchDelay, freshness time.Duration) *TechCrunchScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TechCrunchScraper{
		client:     client,
		logger:     logger,
		listingURL: techCrunchListingURL,
		linkPrefix: techCrunchBaseURL + "/",
		fetchDelay: fetchDelay,
		freshness:  freshness,
		now:        time.Now,
	}
}

// Source identifies the adapter inside the registry.
func (s *TechCrunchScraper) Source() domain.Source {
	return domain.SourceTechCrunch
}

// Scrape fetches the listing, then each article page in listing order. One
// broken article page is skipped and logged; the rest of the run proceeds.
func (s *TechCrunchScraper) Scrape(ctx context.Context, req scrape.Request) ([]domain.RawArticle, error) {
	doc, err := fetchDocument(ctx, s.client, s.listingURL, nil)
	if err != nil {
		return nil, err
	}

	links := s.listingLinks(doc, req.MaxArticles)
	s.debug("listing fetched", "links", len(links))

	return collectArticles(ctx, collectParams{
		client:    s.client,
		logger:    s.logger,
		source:    domain.SourceTechCrunch,
		links:     links,
		delay:     s.fetchDelay,
		freshness: s.freshness,
		now:       s.now,
	})
}

func (s *TechCrunchScraper) listingLinks(doc *goquery.Document, limit int) []string {
	var links []string
	seen := map[string]struct{}{}

	doc.Find("ul.wp-block-post-template li.wp-block-post a.loop-card__title-link").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !strings.HasPrefix(href, s.linkPrefix) {
			return true
		}
		for _, fragment := range techCrunchSkipped {
			if strings.Contains(href, fragment) {
				return true
			}
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}
		links = append(links, href)
		return limit <= 0 || len(links) < limit
	})

	return links
}

func (s *TechCrunchScraper) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
