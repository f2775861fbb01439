// Package headline turns scraped page text into a clean, deduplicated
// set of market headlines.
package headline

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultMinLen = 30
	defaultMaxLen = 160
	defaultLimit  = 25

	maxQueryLen = 100
)

// Navigation and boilerplate phrases that show up inside heading and
// link tags on the trade sites.
var denylist = []string{
	"privacy",
	"cookie",
	"subscribe",
	"terms",
	"contact",
	"about us",
	"advertise",
	"sign in",
}

// Headline is a single cleaned market headline.
type Headline struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Filter holds the length window and result cap applied to raw candidates.
type Filter struct {
	MinLen int
	MaxLen int
	Limit  int
}

// NewFilter builds a filter; non-positive values fall back to defaults.
func NewFilter(minLen, maxLen, limit int) Filter {
	f := Filter{MinLen: minLen, MaxLen: maxLen, Limit: limit}
	if f.MinLen <= 0 {
		f.MinLen = defaultMinLen
	}
	if f.MaxLen <= 0 {
		f.MaxLen = defaultMaxLen
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	return f
}

// Clean runs the cleanup pipeline over raw candidates: whitespace
// normalization, the length window, the boilerplate denylist, then
// first-seen dedup. Order of first appearance is preserved. The result
// is uncapped; Cap is applied after any focus-query refinement.
func (f Filter) Clean(cands []Candidate) []Headline {
	seen := make(map[string]bool, len(cands))
	out := make([]Headline, 0, len(cands))

	for _, c := range cands {
		text := normalizeSpace(c.Text)

		n := utf8.RuneCountInString(text)
		if n < f.MinLen || n > f.MaxLen {
			continue
		}
		if isBoilerplate(text) {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true

		out = append(out, Headline{Text: text, Source: c.Source})
	}

	return out
}

// Cap trims a headline set to the configured result limit.
func (f Filter) Cap(hs []Headline) []Headline {
	if len(hs) > f.Limit {
		return hs[:f.Limit]
	}
	return hs
}

// Refine narrows headlines to those containing the focus query,
// case-insensitively. When nothing matches, the full set comes back so
// analysis still has material to work with; exact reports whether the
// returned set is what was asked for. An empty query asks for
// everything, so it is exact by definition.
func Refine(all []Headline, query string) (subset []Headline, exact bool) {
	q := strings.ToLower(NormalizeQuery(query))
	if q == "" {
		return all, true
	}

	for _, h := range all {
		if strings.Contains(strings.ToLower(h.Text), q) {
			subset = append(subset, h)
		}
	}

	if len(subset) == 0 {
		return all, false
	}
	return subset, true
}

// NormalizeQuery cleans a user-supplied focus query: whitespace is
// collapsed, markup and quoting characters are stripped, and the
// result is capped at 100 runes. The cleaned query is safe to embed
// in a prompt verbatim.
func NormalizeQuery(query string) string {
	var b strings.Builder
	for _, r := range query {
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case '<', '>', '{', '}', '[', ']', '"', '\'', '`':
			continue
		}
		b.WriteRune(r)
	}

	q := normalizeSpace(b.String())
	if utf8.RuneCountInString(q) > maxQueryLen {
		runes := []rune(q)
		q = strings.TrimSpace(string(runes[:maxQueryLen]))
	}
	return q
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range denylist {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
