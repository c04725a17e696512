package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	summaryContentLimit    = 2000
	suggestionContentLimit = 1500
)

func summaryPrompt(content string) string {
	return fmt.Sprintf(`Please provide a concise summary (2-3 sentences) of the following news article content.
Focus on the key facts and main points that would be relevant for investment decisions.

Content: %s`, truncateContent(content, summaryContentLimit))
}

func suggestionPrompt(content, summary string) string {
	return fmt.Sprintf(`You are a financial analyst. Evaluate the short-term (1-7 days) impact of this news on publicly traded stocks or market indices only. Ignore startups, private firms, or long-term ecosystem effects.

Scoring rules:
- 0.0-0.1: Absolutely no short-term market impact
- 0.2: Minimal/negligible impact
- 0.3-0.4: Very minor impact, not worth investment action
- 0.5: Neutral / uncertain impact
- 0.6-0.8: Clear impact on a sector or public company
- 0.9-1.0: Strong, highly certain impact on overall market or major stocks

Examples:
- "Fed unexpectedly raises interest rates" -> 0.95
- "Apple launches new color iPhone case" -> 0.15
- "Tesla recalls 2M vehicles due to safety issue" -> 0.8
- "VC firm invests in a private AI food startup" -> 0.0

News Summary: %s
News Content: %s

Respond ONLY in valid JSON:
{
  "key_impact": "[brief impact]",
  "suggestion": "[investment recommendation]",
  "confidence_score": <float between 0 and 1>
}`, summary, truncateContent(content, suggestionContentLimit))
}

// suggestionResult is the structured model output for one article.
type suggestionResult struct {
	KeyImpact  string  `json:"key_impact"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence_score"`
}

// Text renders the stored suggestion string.
func (s suggestionResult) Text() string {
	return fmt.Sprintf("Key Impact: %s\nInvestment Suggestion: %s", s.KeyImpact, s.Suggestion)
}

// parseSuggestion decodes the model response. Strict JSON first, then a
// line-oriented fallback for models that wrap or mangle the object.
func parseSuggestion(raw string) (suggestionResult, error) {
	cleaned := stripCodeFence(raw)

	var result suggestionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		if result.KeyImpact != "" || result.Suggestion != "" {
			return result, nil
		}
	}

	result = suggestionResult{}
	found := false
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.Trim(strings.TrimSpace(key), `"`) {
		case "key_impact", "Key Impact":
			result.KeyImpact = value
			found = true
		case "suggestion", "Investment Suggestion":
			result.Suggestion = value
			found = true
		case "confidence_score", "Confidence Score":
			if _, err := fmt.Sscanf(value, "%f", &result.Confidence); err != nil {
				result.Confidence = 0
			}
		}
	}

	if !found {
		return suggestionResult{}, fmt.Errorf("unparseable suggestion response: %.80q", raw)
	}
	return result, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// truncateContent cuts content at a word boundary close to the limit; the
// boundary is abandoned when it would lose more than a fifth of the budget.
func truncateContent(content string, limit int) string {
	if len(content) <= limit {
		return content
	}

	// Back up to a rune boundary so a multi-byte character is never split.
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	truncated := content[:cut]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > limit*4/5 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}
