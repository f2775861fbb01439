package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewbaked/insights/internal/app"
	"github.com/brewbaked/insights/internal/config"
	"github.com/brewbaked/insights/internal/insight"
	"github.com/brewbaked/insights/internal/session"
	"github.com/brewbaked/insights/internal/source"
)

func testConfig() *config.Config {
	return &config.Config{
		FrontendOrigins: []string{"http://localhost:3000"},
		RequestTimeout:  5 * time.Second,
		FetchCacheTTL:   time.Hour,
		MinHeadlineLen:  30,
		MaxHeadlineLen:  160,
		MaxHeadlines:    25,
		DailyCallCap:    20,
		Cooldown:        time.Nanosecond,
		SessionTTL:      time.Hour,
	}
}

// scriptedGen stands in for the Gemini backend.
type scriptedGen struct {
	reply string
	err   error
}

func (g *scriptedGen) Models(ctx context.Context) ([]string, error) {
	return []string{"gemini-1.5-flash"}, nil
}

func (g *scriptedGen) Generate(ctx context.Context, model, prompt string, opts insight.GenOptions) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestEngine(t *testing.T, cfg *config.Config, cat source.Catalog) (*gin.Engine, *app.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := app.New(cfg, cat)
	sessions := session.NewManager(cfg.SessionTTL, cfg.DailyCallCap, cfg.Cooldown)
	return New(cfg, svc, sessions).Router(), svc
}

func coffeeCatalog(t *testing.T, titles ...string) source.Catalog {
	t.Helper()
	if len(titles) == 0 {
		titles = []string{"Cold brew sales overtake iced tea in convenience stores"}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, title := range titles {
			fmt.Fprintf(&b, "<h3>%s</h3>", title)
		}
		b.WriteString("</body></html>")
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(srv.Close)

	return source.Catalog{Sources: []source.Source{{
		Name:     "coffee test source",
		URL:      srv.URL,
		Category: source.CategoryCoffee,
		Kind:     source.KindHTML,
	}}}
}

func postJSON(t *testing.T, r http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPath(t *testing.T, r http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// fetchSession primes a session with one fetch and returns its token.
func fetchSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := postJSON(t, r, "/api/trends/fetch", "", fetchTrendsRequest{Category: "Coffee"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token := w.Header().Get(sessionHeader)
	require.NotEmpty(t, token)
	return token
}

func TestFetchTrendsEndpoint(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, coffeeCatalog(t,
		"Cold brew sales overtake iced tea in convenience stores",
		"Oat milk latte launches lift cafe margins across Europe",
	))

	w := postJSON(t, r, "/api/trends/fetch", "", fetchTrendsRequest{Category: "Coffee", Query: "latte"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(sessionHeader), "server issues a session token")

	var res fetchTrendsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.ExactMatch)
	assert.Equal(t, 1, res.Count)
	require.Len(t, res.Headlines, 1)
	assert.Contains(t, res.Headlines[0].Text, "latte")
}

func TestFetchTrendsEmptyStateIsExplicit(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, source.Catalog{})

	w := postJSON(t, r, "/api/trends/fetch", "", fetchTrendsRequest{Category: "Both"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Body.String(), `"headlines":[]`, "empty set marshals as a list, not null")
	var res fetchTrendsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Zero(t, res.Count)
}

func TestFetchTrendsBadDomain(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, source.Catalog{})

	w := postJSON(t, r, "/api/trends/fetch", "", fetchTrendsRequest{Category: "tea"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "bad_request", res.Code)
}

func TestFetchTrendsInvalidBody(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, source.Catalog{})

	req := httptest.NewRequest(http.MethodPost, "/api/trends/fetch", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionTokenThreadsState(t *testing.T) {
	cfg := testConfig()
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "รายงาน"}, nil
	}
	cfg.GeminiAPIKey = "server-key"

	token := fetchSession(t, r)

	// Same token finds the fetched headlines.
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, token, w.Header().Get(sessionHeader), "existing token echoed back")

	// A tokenless request is a different session with no headlines.
	w = postJSON(t, r, "/api/insights/analyze", "", analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.NotEqual(t, token, w.Header().Get(sessionHeader))
}

func TestAnalyzeEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "สรุปตลาดกาแฟ"}, nil
	}

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Executive", Query: "latte"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Executive", res.Mode)
	assert.Equal(t, "gemini-1.5-flash", res.Model)
	assert.Equal(t, "สรุปตลาดกาแฟ", res.Text)
	assert.Nil(t, res.Dashboard)
}

func TestAnalyzeDashboard(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "```json\n" + `{
			"sentiment_score": 64,
			"market_vibrancy": 58,
			"top_categories": {"Coffee": 3},
			"trending_keywords": {"matcha": 7},
			"thai_summary": "ตลาดคึกคัก"
		}` + "\n```"}, nil
	}

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Dashboard"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Empty(t, res.Text)
	require.NotNil(t, res.Dashboard)
	assert.Equal(t, 64, res.Dashboard.SentimentScore)
	assert.Equal(t, 7, res.Dashboard.TrendingKeywords["matcha"])
	assert.Equal(t, "ตลาดคึกคัก", res.Dashboard.ThaiSummary)
}

func TestAnalyzeAccessGate(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	cfg.AccessPassword = "croissant"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "ok"}, nil
	}

	token := fetchSession(t, r)

	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief", AccessKey: "baguette"})
	require.Equal(t, http.StatusForbidden, w.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "not_authorized", res.Code)

	w = postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief", AccessKey: "croissant"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAnalyzeWithoutFetch(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, _ := newTestEngine(t, cfg, source.Catalog{})

	w := postJSON(t, r, "/api/insights/analyze", "", analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusConflict, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "no_headlines", res.Code)
}

func TestAnalyzeNoCredential(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, coffeeCatalog(t))

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "no_credential", res.Code)
}

func TestAnalyzeQuotaDenied(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	cfg.DailyCallCap = 1
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "ok"}, nil
	}

	token := fetchSession(t, r)

	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "quota_denied", res.Code)
	assert.Equal(t, "quota exhausted", res.Error)
}

func TestAnalyzeBadMode(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, _ := newTestEngine(t, cfg, coffeeCatalog(t))

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "interpretive-dance"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "bad_request", res.Code)
	assert.Contains(t, res.Error, "interpretive-dance")
}

func TestAnalyzeAllModelsFailed(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{err: errors.New("503 overloaded")}, nil
	}

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "analysis_failed", res.Code)
	assert.NotContains(t, res.Error, "503", "upstream detail never reaches the user")
}

func TestAnalyzeParseFailureCarriesRaw(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "prose, not data"}, nil
	}

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Dashboard"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "report_parse_failed", res.Code)
	assert.Equal(t, "prose, not data", res.Raw)
}

func TestAnalyzeBackendSetupFailure(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "system_error", res.Code)
	assert.NotContains(t, res.Error, "dial tcp", "internal detail stays in the log")
}

func TestAllowanceEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	cfg.Cooldown = 30 * time.Second
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{reply: "ok"}, nil
	}

	token := fetchSession(t, r)

	w := getPath(t, r, "/api/insights/allowance", token)
	require.Equal(t, http.StatusOK, w.Code)
	var res allowanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Message)
	assert.Equal(t, cfg.DailyCallCap, res.Usage.Limit)

	ww := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusOK, ww.Code, ww.Body.String())

	w = getPath(t, r, "/api/insights/allowance", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Message, "cooldown remaining")
	assert.Equal(t, 1, res.Usage.CallsToday)
}

func TestAllowanceNeverChargesGate(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, source.Catalog{})

	w := getPath(t, r, "/api/insights/allowance", "")
	token := w.Header().Get(sessionHeader)

	for i := 0; i < 5; i++ {
		w = getPath(t, r, "/api/insights/allowance", token)
		require.Equal(t, http.StatusOK, w.Code)
	}

	var res allowanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Usage.CallsToday)
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, coffeeCatalog(t))

	// A successful fetch marks the pipeline healthy regardless of what
	// earlier tests did to the shared registry.
	fetchSession(t, r)

	w := getPath(t, r, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ok", res["status"])
}

func TestHealthReflectsUpstreamFailure(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "server-key"
	r, svc := newTestEngine(t, cfg, coffeeCatalog(t))
	svc.GeneratorFactory = func(ctx context.Context, apiKey string) (insight.Generator, error) {
		return &scriptedGen{err: errors.New("backend down")}, nil
	}

	token := fetchSession(t, r)
	w := postJSON(t, r, "/api/insights/analyze", token, analyzeRequest{Mode: "Brief"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = getPath(t, r, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "error", res["status"])
	assert.Equal(t, "all candidate models failed", res["last_error"])

	// The next successful fetch restores health.
	fetchSession(t, r)
	w = getPath(t, r, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, source.Catalog{})

	w := getPath(t, r, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res, "fetches_served")
	assert.Contains(t, res, "analyses_served")
	assert.Contains(t, res, "quota_denials")
}

func TestPanicBecomesSystemError(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestEngine(t, cfg, source.Catalog{})
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := getPath(t, r, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "system_error", res.Code)
	assert.NotContains(t, res.Error, "kaboom")
}
