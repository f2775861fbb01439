// Package server exposes the insight engine to the presentation layer
// as a small JSON HTTP API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/brewbaked/insights/internal/app"
	"github.com/brewbaked/insights/internal/config"
	"github.com/brewbaked/insights/internal/logger"
	"github.com/brewbaked/insights/internal/metrics"
	"github.com/brewbaked/insights/internal/session"
)

// sessionHeader carries the session token both ways: the client sends
// the token it holds, the server echoes back the one that applies.
const sessionHeader = "X-Session-Token"

const sessionKey = "session"

// Server holds the HTTP surface over the application core.
type Server struct {
	cfg      *config.Config
	svc      *app.Service
	sessions *session.Manager
	log      *slog.Logger
}

// New builds the server around an application service and its session
// store.
func New(cfg *config.Config, svc *app.Service, sessions *session.Manager) *Server {
	return &Server{
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		log:      logger.Component("server"),
	}
}

// Router assembles the gin engine: request logging, panic recovery,
// CORS for the presentation origin, the API routes and the monitoring
// endpoints.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(s.recovered))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  s.cfg.FrontendOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", sessionHeader},
		ExposeHeaders: []string{sessionHeader},
	}))

	api := r.Group("/api", s.withSession())
	api.POST("/trends/fetch", s.handleFetchTrends)
	api.POST("/insights/analyze", s.handleAnalyze)
	api.GET("/insights/allowance", s.handleAllowance)

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)

	return r
}

// recovered converts a handler panic into the generic system-error
// response. The detail stays in the operator log.
func (s *Server) recovered(c *gin.Context, err any) {
	s.log.Error("panic in handler", "path", c.Request.URL.Path, "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
		Code:  "system_error",
		Error: "system error, please try again",
	})
}

// withSession resolves the caller's session from the token header,
// minting a fresh one when the token is absent or expired. The applied
// token is echoed on every response so the client can hold on to it.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := s.sessions.Get(c.GetHeader(sessionHeader))
		c.Header(sessionHeader, sess.ID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !stats["is_healthy"].(bool) {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"sessions":   s.sessions.Count(),
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Global.GetStats())
}
