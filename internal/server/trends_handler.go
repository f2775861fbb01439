package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brewbaked/insights/internal/headline"
)

// handleFetchTrends scrapes the configured sources for the requested
// market domain and stores the refined headline set on the session.
// count 0 with an empty list is the explicit no-data state; a search
// that matched nothing instead comes back broadened with
// exact_match=false.
func (s *Server) handleFetchTrends(c *gin.Context) {
	var req fetchTrendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "invalid request body"})
		return
	}

	sess := currentSession(c)
	hs, exact, err := s.svc.FetchHeadlines(c.Request.Context(), sess, req.Category, req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Error: err.Error()})
		return
	}

	if hs == nil {
		hs = []headline.Headline{}
	}
	c.JSON(http.StatusOK, fetchTrendsResponse{
		Headlines:  hs,
		ExactMatch: exact,
		Count:      len(hs),
	})
}
