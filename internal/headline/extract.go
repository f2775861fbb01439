package headline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Candidate is a raw title pulled from a source before filtering.
type Candidate struct {
	Text   string
	Source string
}

// CandidatesHTML pulls headline candidates out of a news index page.
// Trade sites mark headlines up inconsistently, so it sweeps heading
// tags and link text alike and leaves the cleanup to the filter.
func CandidatesHTML(page []byte, source string) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page from %s: %w", source, err)
	}

	var out []Candidate
	doc.Find("h2, h3, h4, a").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			out = append(out, Candidate{Text: text, Source: source})
		}
	})

	return out, nil
}

// CandidatesRSS pulls item titles out of an RSS or Atom feed.
func CandidatesRSS(data []byte, source string) ([]Candidate, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed from %s: %w", source, err)
	}

	var out []Candidate
	for _, item := range feed.Items {
		text := strings.TrimSpace(item.Title)
		if text != "" {
			out = append(out, Candidate{Text: text, Source: source})
		}
	}

	return out, nil
}
