// Package backend defines the chartfang HTTP API wire types and a client for it.
package backend

// Route paths served by the backend.
const (
	PathWeeklyChart = "/get_weekly_chart"
	PathInfo        = "/get_info"
	PathSeries      = "/api/v1/series"
	PathChart       = "/chart"
	PathHealth      = "/healthz"
	PathReady       = "/readyz"
	PathMetrics     = "/metrics"
)

// Query parameter names.
const (
	ParamUsername  = "username"
	ParamChartType = "chart_type"
	ParamFromDate  = "from_date"
	ParamToDate    = "to_date"
	ParamTimeframe = "timeframe"
	ParamTop       = "top"
	ParamTheme     = "theme"
)

// ChartEntry is one item of a weekly chart in service order.
type ChartEntry struct {
	Name      string `json:"Name"`
	PlayCount int64  `json:"PlayCount"`
}

// WeeklyChartResponse is the body of a weekly chart request. Chart carries the
// counts keyed by item, Entries the same counts in chart order.
type WeeklyChartResponse struct {
	Chart   map[string]int64 `json:"Chart"`
	Entries []ChartEntry     `json:"Entries,omitempty"`
	ToDate  int64            `json:"ToDate"`
}

// UserInfoResponse is the body of a user info request.
type UserInfoResponse struct {
	Name         string `json:"Name"`
	RealName     string `json:"RealName,omitempty"`
	URL          string `json:"URL,omitempty"`
	Country      string `json:"Country,omitempty"`
	PlayCount    int64  `json:"PlayCount"`
	RegisteredAt int64  `json:"RegisteredAt"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"Error"`
}
