// Package mockserver implements a stand-in for the backtest service: fixed
// summary metrics, generated trades and charts, random quotes and static
// factor and stock pool listings.
package mockserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moa/internal/domain"
	"moa/internal/factor"
	"moa/internal/util"
)

// Prefixes are the path prefixes every API route is mounted under.
var Prefixes = []string{"/api", "/api/moA"}

const (
	// DefaultDelay is how long the loopback endpoint waits before answering.
	DefaultDelay = time.Second

	msgInvalidRequest = "请求参数无效"
	msgBacktestOK     = "回测成功"
	maxBodyBytes      = 1 << 20
)

// Config holds the tunables of a Server.
type Config struct {
	Delay           time.Duration
	RateLimitPerSec float64
}

// Option configures a Server.
type Option func(*Server)

// WithRand sets the random source. Tests use a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(s *Server) { s.rng = r }
}

// WithRegistry registers the server metrics with reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// Server serves the mock backtest API.
type Server struct {
	cfg      Config
	log      *slog.Logger
	factors  *factor.Registry
	limiter  *util.RateLimiter
	registry *prometheus.Registry
	metrics  *metrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a mock Server.
func New(cfg Config, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		factors: factor.Builtin(),
		limiter: util.NewRateLimiter(cfg.RateLimitPerSec),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d6f61)),
	}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	return s
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, p := range Prefixes {
		mux.HandleFunc("POST "+p+"/loopback", s.handleLoopback)
		mux.HandleFunc("GET "+p+"/stock/{symbol}", s.handleStock)
		mux.HandleFunc("POST "+p+"/alpha/backtest", s.handleBacktest)
		mux.HandleFunc("GET "+p+"/alpha/factors", s.handleFactors)
		mux.HandleFunc("GET "+p+"/alpha/stock-pool", s.handleStockPools)
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return corsMiddleware(s.limit(s.metrics.instrument(mux)))
}

func (s *Server) handleLoopback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		http.Error(w, "request body required", http.StatusBadRequest)
		return
	}

	delay := s.cfg.Delay
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			s.log.Debug("loopback cancelled", "error", r.Context().Err())
			return
		}
	}

	res := fixedResult()
	writeJSON(w, res)
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}
	s.rngMu.Lock()
	snap := stockSnapshot(s.rng, symbol)
	s.rngMu.Unlock()
	writeJSON(w, snap)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req domain.BacktestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.log.Warn("decoding backtest request", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(domain.Envelope{Success: false, Message: msgInvalidRequest})
		return
	}

	start, end := backtestWindow(req)

	s.rngMu.Lock()
	trades := generateTrades(s.rng, req.Symbols, start, end, TradeCount)
	chart := generateChart(s.rng, start, end)
	s.rngMu.Unlock()

	res := fixedResult()
	res.TradeRecords = trades
	res.SelectedStocks = selectedStocks(req.Symbols)

	s.log.Info("mock backtest", "stock_pool", req.StockPool,
		"symbols", len(req.Symbols), "start", start.Format(util.DateLayout),
		"end", end.Format(util.DateLayout), "points", len(chart.Price))

	writeJSON(w, domain.Envelope{
		Success: true,
		Data: &domain.EnvelopeData{
			BacktestResult: &res,
			ChartData:      chart,
		},
		Message: msgBacktestOK,
	})
}

func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	kind := domain.FactorKind(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		http.Error(w, "invalid factor type", http.StatusBadRequest)
		return
	}
	writeJSON(w, domain.ListEnvelope[domain.FactorInfo]{
		Success: true,
		Data:    s.factors.List(kind),
		Message: "获取Alpha因子列表成功",
	})
}

func (s *Server) handleStockPools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, domain.ListEnvelope[domain.StockPool]{
		Success: true,
		Data:    StockPools(),
		Message: "获取股票池列表成功",
	})
}

// StockPools lists the universes the mock service offers.
func StockPools() []domain.StockPool {
	return []domain.StockPool{
		{ID: "hs300", Name: "沪深300", Description: "沪深300指数成分股", SymbolCount: 300},
		{ID: "zz500", Name: "中证500", Description: "中证500指数成分股", SymbolCount: 500},
		{ID: "szzs", Name: "上证指数", Description: "上证指数成分股", SymbolCount: 1500},
		{ID: "cyb", Name: "创业板", Description: "创业板指数成分股", SymbolCount: 1000},
	}
}

// backtestWindow resolves the request dates, falling back to 2020-01-01 and
// 2023-12-31 for missing or unparsable values.
func backtestWindow(req domain.BacktestRequest) (time.Time, time.Time) {
	start, err := util.ParseDate(req.StartDate)
	if err != nil {
		start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	end, err := util.ParseDate(req.EndDate)
	if err != nil || end.Before(start) {
		end = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	if end.Before(start) {
		end = start.AddDate(0, 0, 30)
	}
	return start, end
}

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" && !s.limiter.Allow() {
			s.metrics.limited.Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing JSON response", "error", err)
	}
}
