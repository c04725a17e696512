package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"investwizard/internal/domain"
)

type collectParams struct {
	client    *http.Client
	logger    *slog.Logger
	source    domain.Source
	links     []string
	headers   map[string]string
	delay     time.Duration
	freshness time.Duration
	now       func() time.Time
}

// collectArticles walks listing links in order, fetching and extracting each
// article page. Failures on a single page never abort the run; a stale
// article stops it, since listings are newest-first.
func collectArticles(ctx context.Context, p collectParams) ([]domain.RawArticle, error) {
	if p.now == nil {
		p.now = time.Now
	}

	var articles []domain.RawArticle
	cutoff := p.now().Add(-p.freshness)

	for i, link := range p.links {
		if i > 0 {
			if err := delayBetweenFetches(ctx, p.delay); err != nil {
				return articles, err
			}
		}

		doc, err := fetchDocument(ctx, p.client, link, p.headers)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return articles, err
			}
			logWarn(p.logger, "article page failed, skipping", "source", p.source, "url", link, "error", err)
			continue
		}

		title := extractTitle(doc)
		body := extractBody(doc)
		if title == "" || body == "" {
			logWarn(p.logger, "article extraction incomplete, skipping", "source", p.source, "url", link)
			continue
		}

		publishedAt := extractPublishedAt(doc, p.now())
		if p.freshness > 0 && publishedAt.Before(cutoff) {
			logInfo(p.logger, "reached stale article, stopping run", "source", p.source, "url", link, "published_at", publishedAt)
			break
		}

		articles = append(articles, domain.RawArticle{
			URL:         link,
			Title:       title,
			Content:     body,
			Source:      p.source,
			PublishedAt: publishedAt,
		})
	}

	return articles, nil
}

func logWarn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func logInfo(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}
