package ports

import (
	"context"
	"time"

	"investwizard/internal/domain"
)

// ArticleRepository is the single shared mutable resource of the pipeline.
// All cross-stage coordination happens through its field transitions.
type ArticleRepository interface {
	// FindByURL looks an article up by its canonical URL; returns nil when absent.
	FindByURL(ctx context.Context, url string) (*domain.Article, error)
	// Insert persists a new article with insert-or-ignore semantics on the
	// unique URL constraint. Returns false when the URL already existed.
	Insert(ctx context.Context, article *domain.Article) (bool, error)
	// ListUnprocessed returns every article of one source still awaiting
	// enrichment, oldest first.
	ListUnprocessed(ctx context.Context, source domain.Source) ([]domain.Article, error)
	// ListAlertCandidates returns processed articles of one source whose
	// confidence reached the threshold but whose alert has not gone out yet.
	ListAlertCandidates(ctx context.Context, source domain.Source, threshold float64) ([]domain.Article, error)
	// UpdateEnrichment atomically stores summary, suggestion and confidence
	// and flips is_processed.
	UpdateEnrichment(ctx context.Context, id int64, enrichment domain.Enrichment) error
	// MarkAlertSent durably records that a qualifying alert went out.
	MarkAlertSent(ctx context.Context, id int64) error
	// DeleteOlderThan removes articles created before the cutoff and returns
	// how many were deleted. Used by retention cleanup only.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Enricher produces summary, suggestion and confidence for one article.
type Enricher interface {
	Enrich(ctx context.Context, article domain.Article) (domain.Enrichment, error)
}

// AlertSender delivers a notification for one qualifying article.
type AlertSender interface {
	Send(ctx context.Context, article domain.Article) error
}
