package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"investwizard/internal/config"
	"investwizard/internal/infrastructure/email"
	"investwizard/internal/infrastructure/llm"
	"investwizard/internal/infrastructure/scraper"
	"investwizard/internal/infrastructure/storage"
	"investwizard/internal/logging"
	"investwizard/internal/ports"
	"investwizard/internal/scrape"
	"investwizard/internal/usecase"
)

// Application wires configuration to adapters, use cases and the HTTP
// trigger surface, and owns their lifecycle.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	db           *sqlx.DB
	orchestrator *usecase.Orchestrator
	scheduler    *usecase.Scheduler
	server       *http.Server

	// root context for cycles started from HTTP triggers, so they outlive
	// the request that started them.
	baseCtx context.Context
}

// New connects the database, applies the schema and builds the full wiring.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	repository := storage.NewPostgresRepository(db)

	httpClient := &http.Client{Timeout: cfg.Scraping.FetchTimeout}
	registry := scrape.NewRegistry()
	registry.Register(scraper.NewTechCrunchScraper(
		httpClient,
		logging.Component(logger, "scraper.techcrunch"),
		cfg.Scraping.FetchDelay,
		cfg.Scraping.FreshnessWindow,
	))
	registry.Register(scraper.NewReutersScraper(
		httpClient,
		logging.Component(logger, "scraper.reuters"),
		cfg.Scraping.ReutersSections,
		cfg.Scraping.FetchDelay,
		cfg.Scraping.FreshnessWindow,
	))

	var enricher ports.Enricher
	if cfg.LLM.APIKey != "" {
		enricher = llm.NewClient(cfg.LLM)
	} else {
		logger.Warn("no model API key configured, articles will get placeholder enrichment")
	}

	var sender ports.AlertSender
	if cfg.Alerts.SendGridAPIKey != "" && len(cfg.Alerts.Recipients) > 0 {
		sender = email.NewSender(cfg.Alerts)
	} else if cfg.Alerts.Enabled {
		logger.Warn("alerting enabled but SendGrid key or recipients missing, alerts will be skipped")
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Scrapers:   registry,
		Repository: repository,
		Enricher:   enricher,
		Sender:     sender,
		Gate: usecase.AlertGate{
			Enabled:   cfg.Alerts.Enabled,
			Threshold: cfg.Alerts.ConfidenceThreshold,
		},
		Logger: logging.Component(logger, "pipeline"),
	}, usecase.PipelineConfig{
		MaxArticlesPerSource: cfg.Scraping.MaxArticlesPerSource,
		EnrichmentWorkers:    cfg.LLM.Workers,
	})

	orchestrator := usecase.NewOrchestrator(pipeline, logging.Component(logger, "orchestrator"))
	scheduler := usecase.NewScheduler(orchestrator, repository, logging.Component(logger, "scheduler"), usecase.SchedulerConfig{
		ScrapeInterval:  cfg.Scraping.Interval,
		CleanupInterval: cfg.Retention.CleanupInterval,
		MaxArticleAge:   cfg.Retention.MaxAge,
	})

	application := &Application{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		orchestrator: orchestrator,
		scheduler:    scheduler,
	}
	application.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           application.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return application, nil
}

// Run starts the scheduler and the HTTP listener and blocks until ctx is
// cancelled, then shuts both down.
func (a *Application) Run(ctx context.Context) error {
	a.baseCtx = ctx

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		a.scheduler.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Server.ListenAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", "error", err)
	}
	<-schedulerDone
	return nil
}

// Close releases the database connection pool.
func (a *Application) Close() error {
	return a.db.Close()
}
