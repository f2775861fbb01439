package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brewbaked/insights/internal/app"
	"github.com/brewbaked/insights/internal/insight"
)

// handleAnalyze runs one mode-templated analysis over the session's
// fetched headlines. The access key is checked against the soft gate
// before the application core is invoked.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "invalid request body"})
		return
	}

	sess := currentSession(c)
	authorized := s.svc.CheckAccess(req.AccessKey)

	res, err := s.svc.Analyze(c.Request.Context(), sess, req.Mode, req.Query, req.APIKey, authorized)
	if err != nil {
		s.writeAnalyzeError(c, err)
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Mode:      string(res.Mode),
		Model:     res.Model,
		Text:      res.Text,
		Dashboard: res.Report,
	})
}

// writeAnalyzeError maps the analysis error taxonomy onto status codes
// and typed bodies. Anything unrecognized becomes the generic system
// error with the detail kept operator-side.
func (s *Server) writeAnalyzeError(c *gin.Context, err error) {
	var denied *app.QuotaDeniedError
	var parseErr *insight.ReportParseError

	switch {
	case errors.Is(err, app.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, errorResponse{Code: "not_authorized", Error: "valid access key required"})

	case errors.Is(err, insight.ErrUnknownMode):
		c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Error: err.Error()})

	case errors.Is(err, insight.ErrNoHeadlines):
		c.JSON(http.StatusConflict, errorResponse{Code: "no_headlines", Error: "no headlines fetched yet, fetch trends first"})

	case errors.Is(err, insight.ErrNoCredential):
		c.JSON(http.StatusBadRequest, errorResponse{Code: "no_credential", Error: "Gemini API key required, supply one in the request or configure the server"})

	case errors.As(err, &denied):
		c.JSON(http.StatusTooManyRequests, errorResponse{Code: "quota_denied", Error: denied.Reason})

	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadGateway, errorResponse{Code: "report_parse_failed", Error: "could not structure dashboard data", Raw: parseErr.Raw})

	case errors.Is(err, insight.ErrAllModelsFailed):
		c.JSON(http.StatusBadGateway, errorResponse{Code: "analysis_failed", Error: "AI processing failed, try again later"})

	default:
		s.log.Error("analyze failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "system_error", Error: "system error, please try again"})
	}
}

// handleAllowance reports whether the session could run an analysis
// right now. Read-only: checking never charges the gate.
func (s *Server) handleAllowance(c *gin.Context) {
	sess := currentSession(c)
	allowed, reason, usage := s.svc.CheckAllowance(sess)

	c.JSON(http.StatusOK, allowanceResponse{
		Allowed: allowed,
		Message: reason,
		Usage:   usage,
	})
}
