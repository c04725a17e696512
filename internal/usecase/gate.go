package usecase

import "investwizard/internal/domain"

// AlertGate decides whether an article qualifies for a notification.
// Confidence exactly at the threshold qualifies; placeholder enrichment
// carries confidence 0 and never passes.
type AlertGate struct {
	Enabled   bool
	Threshold float64
}

// ShouldAlert reports whether a notification must go out for the article.
func (g AlertGate) ShouldAlert(article domain.Article) bool {
	if !g.Enabled || article.AlertSent {
		return false
	}
	if !article.IsProcessed || article.Confidence == nil {
		return false
	}
	return *article.Confidence >= g.Threshold
}
