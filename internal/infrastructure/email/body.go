package email

import (
	"fmt"
	"html"
	"strings"

	"investwizard/internal/domain"
)

func confidencePercent(article domain.Article) float64 {
	if article.Confidence == nil {
		return 0
	}
	return *article.Confidence * 100
}

func orUnavailable(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "Not available"
	}
	return *value
}

func plainBody(article domain.Article, threshold float64) string {
	return strings.TrimSpace(fmt.Sprintf(`HIGH-CONFIDENCE INVESTMENT ALERT

Confidence Score: %.1f%% (Threshold: %.0f%%)

Article: %s
Source: %s
Published: %s
URL: %s

SUMMARY:
%s

INVESTMENT SUGGESTION:
%s

---
This alert was generated by Investment Wizard
`,
		confidencePercent(article),
		threshold*100,
		article.Title,
		article.Source,
		article.PublishedAt.UTC().Format("2006-01-02 15:04 MST"),
		article.URL,
		orUnavailable(article.Summary),
		orUnavailable(article.Suggestion),
	))
}

func htmlBody(article domain.Article, threshold float64) string {
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="background-color: #d32f2f; color: white; padding: 20px; text-align: center;">
    <h1>HIGH-CONFIDENCE INVESTMENT ALERT</h1>
    <p style="font-size: 24px; font-weight: bold;">Confidence Score: %.1f%%</p>
    <p>Threshold: %.0f%%</p>
  </div>
  <div style="padding: 20px;">
    <h2>%s</h2>
    <p><strong>Source:</strong> %s</p>
    <p><strong>Published:</strong> %s</p>
    <p><strong>URL:</strong> <a href="%s">%s</a></p>
    <div style="background-color: #f5f5f5; padding: 15px; margin: 10px 0;">
      <h3>Summary</h3>
      <p>%s</p>
    </div>
    <div style="background-color: #f5f5f5; padding: 15px; margin: 10px 0;">
      <h3>Investment Suggestion</h3>
      <p>%s</p>
    </div>
  </div>
  <div style="background-color: #f0f0f0; padding: 15px; text-align: center; font-size: 12px; color: #666;">
    <p>This alert was generated by Investment Wizard</p>
  </div>
</body>
</html>`,
		confidencePercent(article),
		threshold*100,
		html.EscapeString(article.Title),
		html.EscapeString(string(article.Source)),
		article.PublishedAt.UTC().Format("2006-01-02 15:04 MST"),
		html.EscapeString(article.URL),
		html.EscapeString(article.URL),
		html.EscapeString(orUnavailable(article.Summary)),
		html.EscapeString(orUnavailable(article.Suggestion)),
	)
}
