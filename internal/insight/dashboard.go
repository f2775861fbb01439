package insight

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// DashboardReport is the structured result of a Dashboard analysis.
// Scores are clamped into their contract ranges after parsing.
type DashboardReport struct {
	SentimentScore   int            `json:"sentiment_score"`
	MarketVibrancy   int            `json:"market_vibrancy"`
	TopCategories    map[string]int `json:"top_categories"`
	TrendingKeywords map[string]int `json:"trending_keywords"`
	ThaiSummary      string         `json:"thai_summary"`
}

// ReportParseError marks model output that could not be shaped into a
// DashboardReport. The raw response is kept for operator inspection.
type ReportParseError struct {
	Raw string
	Err error
}

func (e *ReportParseError) Error() string {
	return fmt.Sprintf("could not structure dashboard data: %v", e.Err)
}

func (e *ReportParseError) Unwrap() error { return e.Err }

// rawReport tolerates the float-typed numbers models emit even when
// asked for integers.
type rawReport struct {
	SentimentScore   float64            `json:"sentiment_score"`
	MarketVibrancy   float64            `json:"market_vibrancy"`
	TopCategories    map[string]float64 `json:"top_categories"`
	TrendingKeywords map[string]float64 `json:"trending_keywords"`
	ThaiSummary      string             `json:"thai_summary"`
}

// ParseReport decodes a model's dashboard response. Markdown fences
// and chatter around the JSON object are stripped first; anything
// still unparseable comes back as a ReportParseError.
func ParseReport(raw string) (*DashboardReport, error) {
	cleaned := extractJSON(raw)

	var r rawReport
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, &ReportParseError{Raw: raw, Err: err}
	}

	report := &DashboardReport{
		SentimentScore: clampInt(r.SentimentScore, 0, 100),
		MarketVibrancy: clampInt(r.MarketVibrancy, 0, 100),
		ThaiSummary:    strings.TrimSpace(r.ThaiSummary),
	}

	if len(r.TopCategories) > 0 {
		report.TopCategories = make(map[string]int, len(r.TopCategories))
		for name, count := range r.TopCategories {
			if count < 0 {
				count = 0
			}
			report.TopCategories[name] = int(math.Round(count))
		}
	}
	if len(r.TrendingKeywords) > 0 {
		report.TrendingKeywords = make(map[string]int, len(r.TrendingKeywords))
		for kw, score := range r.TrendingKeywords {
			report.TrendingKeywords[kw] = clampInt(score, 1, 10)
		}
	}

	return report, nil
}

// extractJSON cuts a JSON object out of surrounding markdown fences or
// prose. Models wrap JSON in ```json blocks often enough that this is
// the common path, not the exception.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clampInt(v float64, lo, hi int) int {
	n := int(math.Round(v))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
