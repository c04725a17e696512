package scrape

import (
	"context"
	"fmt"

	"investwizard/internal/domain"
)

// Request carries all parameters for one adapter run.
type Request struct {
	MaxArticles int
}

// Scraper captures a single source adapter (TechCrunch, Reuters, etc.).
// Implementations fetch the listing plus article pages and extract raw
// articles; they never touch the article store.
type Scraper interface {
	Source() domain.Source
	Scrape(ctx context.Context, req Request) ([]domain.RawArticle, error)
}

// Registry keeps a mapping from source names to their adapters.
type Registry struct {
	scrapers map[domain.Source]Scraper
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: map[domain.Source]Scraper{}}
}

// Register adds or replaces an adapter.
func (r *Registry) Register(scraper Scraper) {
	if r.scrapers == nil {
		r.scrapers = map[domain.Source]Scraper{}
	}
	r.scrapers[scraper.Source()] = scraper
}

// Resolve returns the adapter for a source or an error if it is absent.
func (r *Registry) Resolve(source domain.Source) (Scraper, error) {
	if scraper, ok := r.scrapers[source]; ok {
		return scraper, nil
	}
	return nil, fmt.Errorf("no scraper registered for source %s", source)
}

// Sources lists every registered source.
func (r *Registry) Sources() []domain.Source {
	sources := make([]domain.Source, 0, len(r.scrapers))
	for _, known := range domain.KnownSources() {
		if _, ok := r.scrapers[known]; ok {
			sources = append(sources, known)
		}
	}
	return sources
}
