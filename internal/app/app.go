// Package app wires the fetch, extraction, quota and insight layers
// into the operations the API exposes.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brewbaked/insights/internal/cache"
	"github.com/brewbaked/insights/internal/config"
	"github.com/brewbaked/insights/internal/fetch"
	"github.com/brewbaked/insights/internal/headline"
	"github.com/brewbaked/insights/internal/insight"
	"github.com/brewbaked/insights/internal/logger"
	"github.com/brewbaked/insights/internal/metrics"
	"github.com/brewbaked/insights/internal/quota"
	"github.com/brewbaked/insights/internal/session"
	"github.com/brewbaked/insights/internal/source"
)

// ErrNotAuthorized means the request failed the soft access gate.
var ErrNotAuthorized = errors.New("valid access key required")

// QuotaDeniedError carries the gate's wait message. It is expected
// control flow, not a system failure.
type QuotaDeniedError struct {
	Reason string
}

func (e *QuotaDeniedError) Error() string { return e.Reason }

// GeneratorFactory builds an LLM backend for a credential. Swapped
// out in tests.
type GeneratorFactory func(ctx context.Context, apiKey string) (insight.Generator, error)

// Service is the application core behind the HTTP handlers.
type Service struct {
	cfg     *config.Config
	catalog source.Catalog
	client  *fetch.Client
	cache   *cache.Cache
	filter  headline.Filter
	log     *slog.Logger

	// GeneratorFactory builds the LLM backend per analysis. Tests swap
	// in a scripted one.
	GeneratorFactory GeneratorFactory
}

// New builds the service with production wiring.
func New(cfg *config.Config, catalog source.Catalog) *Service {
	return &Service{
		cfg:     cfg,
		catalog: catalog,
		client:  fetch.NewClient(cfg.RequestTimeout),
		cache:   cache.New(),
		filter:  headline.NewFilter(cfg.MinHeadlineLen, cfg.MaxHeadlineLen, cfg.MaxHeadlines),
		log:     logger.Component("app"),
		GeneratorFactory: func(ctx context.Context, apiKey string) (insight.Generator, error) {
			return insight.NewGeminiGenerator(ctx, apiKey)
		},
	}
}

// FetchHeadlines scrapes the sources for the given market domain,
// refines by the focus query and stores the result on the session. A
// source that fails is logged and skipped; the fetch favors partial
// results over total failure.
func (s *Service) FetchHeadlines(ctx context.Context, sess *session.Session, domain, query string) ([]headline.Headline, bool, error) {
	d, err := source.ParseDomain(domain)
	if err != nil {
		return nil, false, err
	}

	var cands []headline.Candidate
	for _, src := range s.catalog.ForDomain(d) {
		c, err := s.sourceCandidates(ctx, src)
		if err != nil {
			s.log.Warn("source fetch failed", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		cands = append(cands, c...)
	}

	all := s.filter.Clean(cands)
	subset, exact := headline.Refine(all, query)
	hs := s.filter.Cap(subset)

	sess.SetHeadlines(hs, exact, time.Now())
	metrics.Global.IncrementFetches(len(hs))
	metrics.Global.SetLastRun()
	s.log.Info("fetched headlines", "domain", d, "candidates", len(cands), "headlines", len(hs), "exact", exact)

	return hs, exact, nil
}

// sourceCandidates returns the raw candidates for one source, served
// from the fetch cache when the page was scraped recently.
func (s *Service) sourceCandidates(ctx context.Context, src source.Source) ([]headline.Candidate, error) {
	key := cache.Key(src.URL, string(src.Kind))
	if v, ok := s.cache.Get(key); ok {
		if cands, ok := v.([]headline.Candidate); ok {
			return cands, nil
		}
	}

	body, err := s.client.Get(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	var cands []headline.Candidate
	switch src.Kind {
	case source.KindRSS:
		cands, err = headline.CandidatesRSS(body, src.Name)
	default:
		cands, err = headline.CandidatesHTML(body, src.Name)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, cands, s.cfg.FetchCacheTTL)
	return cands, nil
}

// Analyze runs one mode-templated report over the session's headline
// set. The session gate is consulted first and charged exactly once
// when a model is actually invoked.
func (s *Service) Analyze(ctx context.Context, sess *session.Session, modeStr, query, apiKey string, authorized bool) (*insight.Analysis, error) {
	if !authorized {
		return nil, ErrNotAuthorized
	}

	mode, err := insight.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	hs, _ := sess.Headlines()
	if len(hs) == 0 {
		return nil, insight.ErrNoHeadlines
	}

	key := apiKey
	if key == "" {
		key = s.cfg.GeminiAPIKey
	}
	if key == "" {
		return nil, insight.ErrNoCredential
	}

	if ok, reason := sess.Gate.Allow(); !ok {
		metrics.Global.IncrementQuotaDenials()
		return nil, &QuotaDeniedError{Reason: reason}
	}

	gen, err := s.GeneratorFactory(ctx, key)
	if err != nil {
		return nil, err
	}
	if c, ok := gen.(interface{ Close() }); ok {
		defer c.Close()
	}

	sess.Gate.Use()

	start := time.Now()
	res, err := insight.NewAnalyzer(gen, s.log).Run(ctx, mode, hs, query)
	metrics.Global.RecordAnalysisTime(time.Since(start))
	if err != nil {
		metrics.Global.IncrementAnalysesFailed()
		var perr *insight.ReportParseError
		if errors.As(err, &perr) {
			metrics.Global.IncrementParseFailures()
		}
		if errors.Is(err, insight.ErrAllModelsFailed) {
			metrics.Global.SetError("all candidate models failed")
		}
		s.log.Warn("analysis failed", "mode", mode, "error", err)
		return nil, err
	}

	metrics.Global.IncrementAnalyses()
	metrics.Global.SetLastRun()
	s.log.Info("analysis complete", "mode", mode, "model", res.Model)
	return res, nil
}

// CheckAllowance reports whether the session could run an analysis
// right now, with the gate's wait message and a usage snapshot.
func (s *Service) CheckAllowance(sess *session.Session) (bool, string, quota.State) {
	ok, reason := sess.Gate.Allow()
	return ok, reason, sess.Gate.Snapshot()
}

// CheckAccess applies the soft access gate. An empty configured
// password leaves the gate open.
func (s *Service) CheckAccess(key string) bool {
	if s.cfg.AccessPassword == "" {
		return true
	}
	return key == s.cfg.AccessPassword
}
