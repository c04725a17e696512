package domain

// EnrichmentKind distinguishes real model output from the degraded
// placeholder used when the model is unreachable or unconfigured.
type EnrichmentKind string

const (
	EnrichmentReal        EnrichmentKind = "real"
	EnrichmentPlaceholder EnrichmentKind = "placeholder"
)

// Enrichment is the resolved outcome of enriching one article. A placeholder
// result always carries confidence 0 so it can never pass the alert gate.
type Enrichment struct {
	Kind       EnrichmentKind
	Summary    string
	Suggestion string
	Confidence float64
}

// Placeholder builds the degraded enrichment for an article whose model call
// failed or was never attempted.
func Placeholder(summary, suggestion string) Enrichment {
	return Enrichment{
		Kind:       EnrichmentPlaceholder,
		Summary:    summary,
		Suggestion: suggestion,
		Confidence: 0,
	}
}

// Apply writes the enrichment onto the article and marks it processed.
func (e Enrichment) Apply(article *Article) {
	summary := e.Summary
	suggestion := e.Suggestion
	confidence := e.Confidence

	article.Summary = &summary
	article.Suggestion = &suggestion
	article.Confidence = &confidence
	article.IsProcessed = true
}
