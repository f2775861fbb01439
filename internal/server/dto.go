package server

import (
	"github.com/brewbaked/insights/internal/headline"
	"github.com/brewbaked/insights/internal/insight"
	"github.com/brewbaked/insights/internal/quota"
)

type fetchTrendsRequest struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}

type fetchTrendsResponse struct {
	Headlines  []headline.Headline `json:"headlines"`
	ExactMatch bool                `json:"exact_match"`
	Count      int                 `json:"count"`
}

type analyzeRequest struct {
	Mode      string `json:"mode"`
	Query     string `json:"query"`
	APIKey    string `json:"api_key"`
	AccessKey string `json:"access_key"`
}

type analyzeResponse struct {
	Mode      string                   `json:"mode"`
	Model     string                   `json:"model"`
	Text      string                   `json:"text,omitempty"`
	Dashboard *insight.DashboardReport `json:"dashboard,omitempty"`
}

type allowanceResponse struct {
	Allowed bool        `json:"allowed"`
	Message string      `json:"message"`
	Usage   quota.State `json:"usage"`
}

// errorResponse is the typed error body. Raw carries the unparseable
// model payload on a dashboard parse failure so it can be inspected.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}
