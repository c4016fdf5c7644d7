package mockserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/domain"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	s := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithRand(rand.New(rand.NewPCG(1, 2))))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoopbackReturnsFixedResult(t *testing.T) {
	srv := newTestServer(t, Config{})

	for _, prefix := range Prefixes {
		resp := post(t, srv.URL+prefix+"/loopback", `{"initialCash":1000000}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var res domain.BacktestResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, 0.65, res.WinRate)
		assert.Equal(t, 0.45, res.TotalProfit)
		assert.Equal(t, 0.225, res.AnnualProfit)
		assert.Equal(t, 1.8, res.SharpeRatio)
		assert.Equal(t, -0.08, res.MaxDrawdown)
		assert.Equal(t, 24, res.TradesCount)
	}
}

func TestLoopbackRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp := post(t, srv.URL+"/api/loopback", "  ")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoopbackHonoursDelay(t *testing.T) {
	srv := newTestServer(t, Config{Delay: 50 * time.Millisecond})

	start := time.Now()
	resp := post(t, srv.URL+"/api/loopback", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLoopbackDelayCancelled(t *testing.T) {
	srv := newTestServer(t, Config{Delay: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/loopback", strings.NewReader(`{}`))
	require.NoError(t, err)

	start := time.Now()
	_, err = http.DefaultClient.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStockSnapshotRanges(t *testing.T) {
	srv := newTestServer(t, Config{})

	for i := 0; i < 20; i++ {
		resp, err := http.Get(srv.URL + "/api/moA/stock/sh600519")
		require.NoError(t, err)
		var snap domain.StockSnapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		resp.Body.Close()

		assert.Equal(t, "sh600519", snap.Symbol)
		assert.Equal(t, "sh600519 Company", snap.Name)
		assert.GreaterOrEqual(t, snap.Price, 150.0)
		assert.Less(t, snap.Price, 200.0)
		assert.GreaterOrEqual(t, snap.Change, -5.0)
		assert.Less(t, snap.Change, 5.0)
		assert.GreaterOrEqual(t, snap.ChangePercent, -2.5)
		assert.Less(t, snap.ChangePercent, 2.5)
		assert.GreaterOrEqual(t, snap.Volume, int64(0))
		assert.Less(t, snap.Volume, int64(1e7))
		assert.GreaterOrEqual(t, snap.MarketCap, int64(0))
		assert.Less(t, snap.MarketCap, int64(1e11))
	}
}

func TestBacktestEnvelope(t *testing.T) {
	srv := newTestServer(t, Config{})

	body := `{"stockPool":"hs300","symbols":["sh600000","sz000001"],
		"buyAlphaFactors":["AbuFactorBuyBreak"],"sellAlphaFactors":["AbuFactorSellPreAtrN"],
		"startDate":"2021-01-01","endDate":"2021-06-30","capital":1000000,"nFolds":2}`
	resp := post(t, srv.URL+"/api/moA/alpha/backtest", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env domain.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)
	require.NotNil(t, env.Data)
	res := env.Data.BacktestResult
	require.NotNil(t, res)
	assert.Equal(t, 24, res.TradesCount)
	require.Len(t, res.TradeRecords, 24)
	assert.Len(t, res.SelectedStocks, 2)

	for i, tr := range res.TradeRecords {
		assert.Equal(t, i+1, tr.ID)
		assert.Contains(t, []string{"sh600000", "sz000001"}, tr.Symbol)
		assert.LessOrEqual(t, tr.BuyDate, tr.SellDate)
		assert.GreaterOrEqual(t, tr.BuyDate, "2021-01-01")
		assert.LessOrEqual(t, tr.SellDate, "2021-06-30")
		assert.Zero(t, tr.Quantity%100)
		assert.True(t, decimal.NewFromFloat(tr.Profit).Equal(tr.ExpectedProfit()),
			"trade %d: profit %v != %s", tr.ID, tr.Profit, tr.ExpectedProfit())
	}

	chart := env.Data.ChartData
	require.NotNil(t, chart)
	require.NotEmpty(t, chart.Price)
	assert.Len(t, chart.CumReturn, len(chart.Price))
	assert.Len(t, chart.Drawdown, len(chart.Price))
	assert.Equal(t, "2021-01-01", chart.Price[0].Date)
	assert.Equal(t, 0.0, chart.CumReturn[0].Return)
	for _, d := range chart.Drawdown {
		assert.LessOrEqual(t, d.Drawdown, 0.0)
	}
}

func TestBacktestInvalidBody(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp := post(t, srv.URL+"/api/alpha/backtest", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var env domain.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.False(t, env.Success)
	assert.Equal(t, "请求参数无效", env.Message)
}

func TestListings(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/api/moA/alpha/factors?type=sell")
	require.NoError(t, err)
	var factors domain.ListEnvelope[domain.FactorInfo]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&factors))
	resp.Body.Close()
	require.True(t, factors.Success)
	require.NotEmpty(t, factors.Data)
	for _, f := range factors.Data {
		assert.Equal(t, domain.FactorKindSell, f.Kind)
	}

	resp, err = http.Get(srv.URL + "/api/moA/alpha/factors?type=hold")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/moA/alpha/stock-pool")
	require.NoError(t, err)
	var pools domain.ListEnvelope[domain.StockPool]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pools))
	resp.Body.Close()
	require.Len(t, pools.Data, 4)
	assert.Equal(t, "hs300", pools.Data[0].ID)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Config{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/alpha/backtest", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{RateLimitPerSec: 1})

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		resp, err := http.Get(srv.URL + "/api/stock/x")
		require.NoError(t, err)
		resp.Body.Close()
		codes[resp.StatusCode]++
	}
	assert.GreaterOrEqual(t, codes[http.StatusOK], 1)
	assert.GreaterOrEqual(t, codes[http.StatusTooManyRequests], 1)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/api/moA/alpha/stock-pool")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "moa_mock_requests_total")
	assert.Contains(t, string(body), `route="GET /api/moA/alpha/stock-pool"`)
}
