// Package insight turns a fetched headline set into mode-templated
// business reports via a generative model backend.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brewbaked/insights/internal/headline"
	"github.com/brewbaked/insights/internal/logger"
)

// Generator is one LLM backend: it lists the models a credential can
// reach and runs a single generation against a named model.
type Generator interface {
	Models(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, model, prompt string, opts GenOptions) (string, error)
}

// GenOptions carries per-call generation settings.
type GenOptions struct {
	Temperature float32
	JSON        bool
}

// Candidate models tried first, in this order. Anything else the
// credential reaches is appended after these.
var preferredModels = []string{"gemini-2.5-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

var (
	// ErrNoCredential means no API key was supplied at all.
	ErrNoCredential = errors.New("missing gemini api key")
	// ErrNoHeadlines means analysis was requested before any fetch.
	ErrNoHeadlines = errors.New("no headlines to analyze")
	// ErrAllModelsFailed means every candidate model was tried and none answered.
	ErrAllModelsFailed = errors.New("all candidate models failed")
)

// Analysis is one finished report. Dashboard mode fills Report, every
// other mode fills Text.
type Analysis struct {
	Mode   Mode             `json:"mode"`
	Model  string           `json:"model"`
	Text   string           `json:"text,omitempty"`
	Report *DashboardReport `json:"report,omitempty"`
}

// Analyzer runs mode-templated analyses over a generator backend,
// falling through candidate models until one answers.
type Analyzer struct {
	gen Generator
	log *slog.Logger
}

// NewAnalyzer wraps a generator. A nil log falls back to the process
// logger.
func NewAnalyzer(gen Generator, log *slog.Logger) *Analyzer {
	if log == nil {
		log = logger.Component("insight")
	}
	return &Analyzer{gen: gen, log: log}
}

// Run produces a report for the given headlines. The focus query is
// sanitized before it reaches any prompt. Candidate models are tried
// in priority order; a per-model failure advances to the next
// candidate, and only exhaustion of the whole list is an error.
func (a *Analyzer) Run(ctx context.Context, mode Mode, headlines []headline.Headline, focus string) (*Analysis, error) {
	if len(headlines) == 0 {
		return nil, ErrNoHeadlines
	}

	models, err := a.gen.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate models: %w", err)
	}
	candidates := rankModels(models)
	if len(candidates) == 0 {
		return nil, ErrAllModelsFailed
	}

	prompt := buildPrompt(mode, headlines, headline.NormalizeQuery(focus))
	opts := GenOptions{Temperature: mode.temperature(), JSON: mode.structured()}

	for _, name := range candidates {
		text, err := a.gen.Generate(ctx, name, prompt, opts)
		if err != nil {
			a.log.Warn("model attempt failed", "model", name, "error", err)
			continue
		}

		if mode.structured() {
			report, err := ParseReport(text)
			if err != nil {
				return nil, err
			}
			return &Analysis{Mode: mode, Model: name, Report: report}, nil
		}

		return &Analysis{Mode: mode, Model: name, Text: EscapeText(text)}, nil
	}

	return nil, ErrAllModelsFailed
}

// rankModels orders candidates: the preferred names first, in their
// fixed order, then everything else the credential reaches.
func rankModels(available []string) []string {
	out := make([]string, 0, len(available))
	seen := make(map[string]bool, len(available))

	for _, p := range preferredModels {
		for _, m := range available {
			if m == p && !seen[m] {
				out = append(out, m)
				seen[m] = true
				break
			}
		}
	}
	for _, m := range available {
		if !seen[m] {
			out = append(out, m)
			seen[m] = true
		}
	}
	return out
}

var textEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"{", "&#123;",
	"}", "&#125;",
)

// EscapeText neutralizes HTML-significant characters in model output
// before it can reach a rendered view.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}
