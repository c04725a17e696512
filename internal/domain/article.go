package domain

import "time"

// Source identifies a supported news provider.
type Source string

const (
	SourceTechCrunch Source = "TechCrunch"
	SourceReuters    Source = "Reuters"
)

// KnownSources lists every provider the pipeline can run a cycle for.
func KnownSources() []Source {
	return []Source{SourceTechCrunch, SourceReuters}
}

// RawArticle is what a source adapter extracts from a page, before dedup
// and persistence.
type RawArticle struct {
	URL         string
	Title       string
	Content     string
	Source      Source
	PublishedAt time.Time
}

// Article is the central persisted entity. URL (and its hash) uniquely
// identify an article; Summary, Suggestion and Confidence stay nil until
// enrichment completes.
type Article struct {
	ID          int64
	URL         string
	HashedURL   string
	Title       string
	Content     string
	Source      Source
	PublishedAt time.Time
	FetchedAt   time.Time
	Summary     *string
	Suggestion  *string
	Confidence  *float64
	IsProcessed bool
	AlertSent   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
