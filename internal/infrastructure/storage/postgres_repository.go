package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"

	"investwizard/internal/domain"
	"investwizard/internal/ports"
)

// PostgresRepository persists articles and their enrichment state.
type PostgresRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

type dbArticle struct {
	ID          int64           `db:"id"`
	URL         string          `db:"url"`
	HashedURL   string          `db:"hashed_url"`
	Title       string          `db:"title"`
	Content     string          `db:"content"`
	Source      string          `db:"source"`
	PublishedAt time.Time       `db:"published_at"`
	FetchedAt   time.Time       `db:"fetched_at"`
	Summary     sql.NullString  `db:"summary"`
	Suggestion  sql.NullString  `db:"suggestion"`
	Confidence  sql.NullFloat64 `db:"confidence"`
	IsProcessed bool            `db:"is_processed"`
	AlertSent   bool            `db:"alert_sent"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sqlx.DB implementation.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// FindByURL returns the article stored under the canonical URL, or nil.
func (r *PostgresRepository) FindByURL(ctx context.Context, url string) (*domain.Article, error) {
	query, args, err := r.sb.
		Select("*").
		From("articles").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row dbArticle
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by url: %w", err)
	}

	article := toDomain(row)
	return &article, nil
}

// Insert persists a new article; a URL or hash conflict is treated as a
// dedup skip and reported as inserted=false, never as an error.
func (r *PostgresRepository) Insert(ctx context.Context, article *domain.Article) (bool, error) {
	query, args, err := r.sb.
		Insert("articles").
		Columns("url", "hashed_url", "title", "content", "source", "published_at", "fetched_at").
		Values(article.URL, article.HashedURL, article.Title, article.Content, string(article.Source), article.PublishedAt, article.FetchedAt).
		Suffix("ON CONFLICT DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert article: %w", err)
	}

	article.ID = id
	return true, nil
}

// ListUnprocessed returns one source's articles still awaiting enrichment,
// oldest first.
func (r *PostgresRepository) ListUnprocessed(ctx context.Context, source domain.Source) ([]domain.Article, error) {
	query, args, err := r.sb.
		Select("*").
		From("articles").
		Where(sq.Eq{"is_processed": false, "source": string(source)}).
		OrderBy("fetched_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []dbArticle
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list unprocessed: %w", err)
	}

	return lo.Map(rows, func(row dbArticle, _ int) domain.Article {
		return toDomain(row)
	}), nil
}

// ListAlertCandidates returns one source's processed articles whose confidence
// reached the threshold but whose alert has not been delivered yet.
func (r *PostgresRepository) ListAlertCandidates(ctx context.Context, source domain.Source, threshold float64) ([]domain.Article, error) {
	query, args, err := r.sb.
		Select("*").
		From("articles").
		Where(sq.Eq{"is_processed": true, "alert_sent": false, "source": string(source)}).
		Where(sq.GtOrEq{"confidence": threshold}).
		OrderBy("fetched_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []dbArticle
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list alert candidates: %w", err)
	}

	return lo.Map(rows, func(row dbArticle, _ int) domain.Article {
		return toDomain(row)
	}), nil
}

// UpdateEnrichment stores summary, suggestion and confidence and flips
// is_processed in a single statement.
func (r *PostgresRepository) UpdateEnrichment(ctx context.Context, id int64, enrichment domain.Enrichment) error {
	query, args, err := r.sb.
		Update("articles").
		Set("summary", enrichment.Summary).
		Set("suggestion", enrichment.Suggestion).
		Set("confidence", enrichment.Confidence).
		Set("is_processed", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	return nil
}

// MarkAlertSent durably records alert delivery for one article.
func (r *PostgresRepository) MarkAlertSent(ctx context.Context, id int64) error {
	query, args, err := r.sb.
		Update("articles").
		Set("alert_sent", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	return nil
}

// DeleteOlderThan removes articles created before the cutoff.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := r.sb.
		Delete("articles").
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

func toDomain(row dbArticle) domain.Article {
	article := domain.Article{
		ID:          row.ID,
		URL:         row.URL,
		HashedURL:   row.HashedURL,
		Title:       row.Title,
		Content:     row.Content,
		Source:      domain.Source(row.Source),
		PublishedAt: row.PublishedAt,
		FetchedAt:   row.FetchedAt,
		IsProcessed: row.IsProcessed,
		AlertSent:   row.AlertSent,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Summary.Valid {
		article.Summary = &row.Summary.String
	}
	if row.Suggestion.Valid {
		article.Suggestion = &row.Suggestion.String
	}
	if row.Confidence.Valid {
		article.Confidence = &row.Confidence.Float64
	}
	return article
}
