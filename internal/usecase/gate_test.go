package usecase

import (
	"testing"

	"investwizard/internal/domain"
)

func TestAlertGateShouldAlert(t *testing.T) {
	t.Parallel()

	confidence := func(v float64) *float64 { return &v }
	gate := AlertGate{Enabled: true, Threshold: 0.8}

	cases := []struct {
		name    string
		article domain.Article
		want    bool
	}{
		{
			name:    "above threshold",
			article: domain.Article{IsProcessed: true, Confidence: confidence(0.9)},
			want:    true,
		},
		{
			name:    "exactly at threshold",
			article: domain.Article{IsProcessed: true, Confidence: confidence(0.8)},
			want:    true,
		},
		{
			name:    "below threshold",
			article: domain.Article{IsProcessed: true, Confidence: confidence(0.79)},
			want:    false,
		},
		{
			name:    "missing confidence",
			article: domain.Article{IsProcessed: true},
			want:    false,
		},
		{
			name:    "not yet processed",
			article: domain.Article{Confidence: confidence(0.9)},
			want:    false,
		},
		{
			name:    "already alerted",
			article: domain.Article{IsProcessed: true, AlertSent: true, Confidence: confidence(0.9)},
			want:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := gate.ShouldAlert(tc.article); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAlertGateDisabled(t *testing.T) {
	t.Parallel()

	confidence := 0.99
	article := domain.Article{IsProcessed: true, Confidence: &confidence}
	gate := AlertGate{Enabled: false, Threshold: 0.8}
	if gate.ShouldAlert(article) {
		t.Fatal("disabled gate must never alert")
	}
}
