package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"investwizard/internal/domain"
	"investwizard/internal/ports"
	"investwizard/internal/scrape"
)

// Texts stored when the language model is unavailable or fails. Articles
// enriched this way stay confidence 0 and never alert.
const (
	placeholderKeyImpact  = "Technology sector developments may influence market sentiment"
	placeholderSuggestion = "Monitor related stocks and consider sector-specific ETFs for potential opportunities"

	placeholderSummaryLimit = 280
)

// PipelineDeps wires all driven adapters into one source cycle.
type PipelineDeps struct {
	Scrapers   *scrape.Registry
	Repository ports.ArticleRepository
	Enricher   ports.Enricher
	Sender     ports.AlertSender
	Gate       AlertGate
	Logger     *slog.Logger
}

// PipelineConfig carries the per-cycle tunables.
type PipelineConfig struct {
	MaxArticlesPerSource int
	EnrichmentWorkers    int
}

// CycleStats summarizes what one source cycle did.
type CycleStats struct {
	Fetched      int
	Inserted     int
	Duplicates   int
	Enriched     int
	Placeholders int
	Alerted      int
}

// Pipeline runs the fetch, dedup, persist, enrich and alert stages for a
// single source. It keeps no state of its own; everything it coordinates
// on lives in the article repository.
type Pipeline struct {
	scrapers   *scrape.Registry
	repository ports.ArticleRepository
	enricher   ports.Enricher
	sender     ports.AlertSender
	gate       AlertGate
	logger     *slog.Logger
	cfg        PipelineConfig
}

// NewPipeline constructs the cycle runner.
func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if cfg.EnrichmentWorkers <= 0 {
		cfg.EnrichmentWorkers = 1
	}
	return &Pipeline{
		scrapers:   deps.Scrapers,
		repository: deps.Repository,
		enricher:   deps.Enricher,
		sender:     deps.Sender,
		gate:       deps.Gate,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// Run executes one full cycle for the source, reporting each stage through
// the transition hook. A fetch failure does not abort the cycle: articles
// left over from earlier cycles still get enriched and alerted.
func (p *Pipeline) Run(ctx context.Context, source domain.Source, transition func(CycleState)) (CycleStats, error) {
	var stats CycleStats
	log := p.logger.With("source", string(source))

	transition(StateFetching)
	raws, fetchErr := p.fetch(ctx, source)
	if fetchErr != nil {
		if ctx.Err() != nil {
			return stats, fetchErr
		}
		log.Error("fetch failed, continuing with stored backlog", "error", fetchErr)
	}
	stats.Fetched = len(raws)

	transition(StateDeduping)
	candidates, err := p.dedup(ctx, raws, log)
	if err != nil {
		return stats, err
	}
	stats.Duplicates = len(raws) - len(candidates)

	transition(StatePersisting)
	inserted, err := p.persist(ctx, candidates, log)
	if err != nil {
		return stats, err
	}
	stats.Inserted = inserted
	stats.Duplicates += len(candidates) - inserted

	transition(StateEnriching)
	enriched, placeholders, err := p.enrich(ctx, source, log)
	if err != nil {
		return stats, err
	}
	stats.Enriched = enriched
	stats.Placeholders = placeholders

	transition(StateAlerting)
	alerted, err := p.alert(ctx, source, log)
	if err != nil {
		return stats, err
	}
	stats.Alerted = alerted

	return stats, fetchErr
}

func (p *Pipeline) fetch(ctx context.Context, source domain.Source) ([]domain.RawArticle, error) {
	scraper, err := p.scrapers.Resolve(source)
	if err != nil {
		return nil, err
	}
	raws, err := scraper.Scrape(ctx, scrape.Request{MaxArticles: p.cfg.MaxArticlesPerSource})
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", source, err)
	}
	return raws, nil
}

// dedup canonicalizes URLs and drops articles already known to the store.
// The insert-or-ignore in persist closes the race left between the lookup
// and the write.
func (p *Pipeline) dedup(ctx context.Context, raws []domain.RawArticle, log *slog.Logger) ([]domain.Article, error) {
	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(raws))
	candidates := make([]domain.Article, 0, len(raws))

	for _, raw := range raws {
		canonical, err := scrape.CanonicalURL(raw.URL)
		if err != nil {
			log.Warn("skipping article with bad url", "url", raw.URL, "error", err)
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}

		existing, err := p.repository.FindByURL(ctx, canonical)
		if err != nil {
			return nil, fmt.Errorf("dedup lookup: %w", err)
		}
		if existing != nil {
			continue
		}

		candidates = append(candidates, domain.Article{
			URL:         canonical,
			HashedURL:   scrape.HashURL(canonical),
			Title:       raw.Title,
			Content:     raw.Content,
			Source:      raw.Source,
			PublishedAt: raw.PublishedAt,
			FetchedAt:   now,
		})
	}
	return candidates, nil
}

// persist inserts candidates one by one. A row that the store rejects (for
// example a title over the column limit) is logged and skipped; only a dead
// context aborts the batch, so the remaining candidates and the later
// stages still run.
func (p *Pipeline) persist(ctx context.Context, candidates []domain.Article, log *slog.Logger) (int, error) {
	inserted := 0
	for i := range candidates {
		ok, err := p.repository.Insert(ctx, &candidates[i])
		if err != nil {
			if ctx.Err() != nil {
				return inserted, fmt.Errorf("persist %s: %w", candidates[i].URL, err)
			}
			log.Error("persist failed, skipping article", "url", candidates[i].URL, "error", err)
			continue
		}
		if !ok {
			log.Debug("concurrent duplicate skipped", "url", candidates[i].URL)
			continue
		}
		inserted++
	}
	return inserted, nil
}

// enrich pushes every unprocessed article of the source through a bounded
// worker pool. A failed or absent enricher degrades to placeholder values
// instead of leaving the article unprocessed.
func (p *Pipeline) enrich(ctx context.Context, source domain.Source, log *slog.Logger) (int, int, error) {
	pending, err := p.repository.ListUnprocessed(ctx, source)
	if err != nil {
		return 0, 0, fmt.Errorf("list unprocessed: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	var enriched, placeholders atomic.Int64
	jobs := make(chan domain.Article)

	var wg sync.WaitGroup
	workers := min(p.cfg.EnrichmentWorkers, len(pending))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for article := range jobs {
				result := p.enrichOne(ctx, article, log)
				if err := p.repository.UpdateEnrichment(ctx, article.ID, result); err != nil {
					log.Error("store enrichment failed", "url", article.URL, "error", err)
					continue
				}
				if result.Kind == domain.EnrichmentPlaceholder {
					placeholders.Add(1)
				} else {
					enriched.Add(1)
				}
			}
		}()
	}

	for _, article := range pending {
		select {
		case jobs <- article:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return int(enriched.Load()), int(placeholders.Load()), ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	return int(enriched.Load()), int(placeholders.Load()), nil
}

func (p *Pipeline) enrichOne(ctx context.Context, article domain.Article, log *slog.Logger) domain.Enrichment {
	if p.enricher == nil {
		return placeholderEnrichment(article)
	}
	result, err := p.enricher.Enrich(ctx, article)
	if err != nil {
		log.Warn("enrichment failed, storing placeholder", "url", article.URL, "error", err)
		return placeholderEnrichment(article)
	}
	return result
}

// alert delivers notifications for every qualifying article that has not
// been alerted yet, including leftovers from cycles whose delivery failed.
func (p *Pipeline) alert(ctx context.Context, source domain.Source, log *slog.Logger) (int, error) {
	if !p.gate.Enabled || p.sender == nil {
		return 0, nil
	}

	candidates, err := p.repository.ListAlertCandidates(ctx, source, p.gate.Threshold)
	if err != nil {
		return 0, fmt.Errorf("list alert candidates: %w", err)
	}

	sent := 0
	for _, article := range candidates {
		if !p.gate.ShouldAlert(article) {
			continue
		}
		if err := p.sender.Send(ctx, article); err != nil {
			if ctx.Err() != nil {
				return sent, err
			}
			log.Error("alert delivery failed, will retry next cycle", "url", article.URL, "error", err)
			continue
		}
		if err := p.repository.MarkAlertSent(ctx, article.ID); err != nil {
			return sent, fmt.Errorf("mark alert sent %s: %w", article.URL, err)
		}
		sent++
		log.Info("alert sent", "url", article.URL, "confidence", derefConfidence(article))
	}
	return sent, nil
}

func placeholderEnrichment(article domain.Article) domain.Enrichment {
	summary := truncateSummary(article.Content, placeholderSummaryLimit)
	suggestion := fmt.Sprintf("Key Impact: %s\nInvestment Suggestion: %s",
		placeholderKeyImpact, placeholderSuggestion)
	return domain.Placeholder(summary, suggestion)
}

func truncateSummary(content string, limit int) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "No content available for this article."
	}
	if len(content) <= limit {
		return content
	}
	end := limit
	for end > 0 && !utf8.RuneStart(content[end]) {
		end--
	}
	cut := content[:end]
	if idx := strings.LastIndex(cut, " "); idx > limit*4/5 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func derefConfidence(article domain.Article) float64 {
	if article.Confidence == nil {
		return 0
	}
	return *article.Confidence
}
