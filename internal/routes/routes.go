// Package routes lists the dashboard pages and the view each one renders.
package routes

import "strings"

// Route maps a client path to a named view.
type Route struct {
	Path string `json:"path"`
	Name string `json:"name"`
	View string `json:"view"`
}

var table = []Route{
	{Path: "/", Name: "home", View: "HomeView"},
	{Path: "/loopback", Name: "loopback", View: "LoopBackView"},
	{Path: "/resistance-support", Name: "resistance-support", View: "ResistanceSupportView"},
	{Path: "/gap-analysis", Name: "gap-analysis", View: "GapAnalysisView"},
	{Path: "/trend-speed", Name: "trend-speed", View: "TrendSpeedView"},
	{Path: "/distance-ratio", Name: "distance-ratio", View: "DistanceRatioView"},
	{Path: "/linear-fit", Name: "linear-fit", View: "LinearFitView"},
	{Path: "/golden-section", Name: "golden-section", View: "GoldenSectionView"},
	{Path: "/price-channel", Name: "price-channel", View: "PriceChannelView"},
	{Path: "/correlation", Name: "correlation", View: "CorrelationView"},
	{Path: "/change-analysis", Name: "change-analysis", View: "ChangeAnalysisView"},
	{Path: "/stock-info", Name: "stock-info", View: "StockInfoView"},
	{Path: "/data-download", Name: "data-download", View: "DataDownloadView"},
	{Path: "/finance-api-test", Name: "finance-api-test", View: "FinanceApiTestView"},
	{Path: "/alpha-strategy", Name: "alpha-strategy", View: "AlphaStrategyView"},
	{Path: "/data-query", Name: "data-query", View: "DataQueryView"},
	{Path: "/price-change", Name: "price-change", View: "PriceChangeView"},
}

var (
	byPath = make(map[string]Route, len(table))
	byName = make(map[string]Route, len(table))
)

func init() {
	for _, r := range table {
		byPath[r.Path] = r
		byName[r.Name] = r
	}
}

// All returns every route in declaration order.
func All() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// Lookup returns the route for an exact path. A trailing slash is ignored
// except on the root path.
func Lookup(path string) (Route, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	r, ok := byPath[path]
	return r, ok
}

// ByName returns the route with the given name.
func ByName(name string) (Route, bool) {
	r, ok := byName[name]
	return r, ok
}
