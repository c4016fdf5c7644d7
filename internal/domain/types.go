// Package domain defines the core types shared across the moa dashboard:
// factors, backtest parameters and results, and the wire envelopes exchanged
// with the backtest service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Factors
// ---------------------------------------------------------------------------

// FactorKind identifies which of the three factor collections a factor
// belongs to.
type FactorKind string

const (
	FactorKindPick FactorKind = "pick"
	FactorKindBuy  FactorKind = "buy"
	FactorKindSell FactorKind = "sell"
)

// FactorKinds lists every kind in display order.
var FactorKinds = []FactorKind{FactorKindPick, FactorKindBuy, FactorKindSell}

// Valid reports whether k is one of the known factor kinds.
func (k FactorKind) Valid() bool {
	switch k {
	case FactorKindPick, FactorKindBuy, FactorKindSell:
		return true
	}
	return false
}

// EmptyFactorParams is the params string given to newly added factors.
const EmptyFactorParams = "{}"

// Factor is a named, parameterized rule used for stock selection, entry or
// exit. Params holds the JSON-encoded factor arguments and is passed through
// untouched.
type Factor struct {
	Name   string `json:"name"`
	Params string `json:"params"`
}

// FactorInfo describes a factor offered by the backtest service.
type FactorInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Kind        FactorKind `json:"type"`
}

// StockPool is a named universe the service can backtest against.
type StockPool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SymbolCount int    `json:"symbol_count"`
}

// ---------------------------------------------------------------------------
// Parameters and requests
// ---------------------------------------------------------------------------

// BacktestParams holds the user-editable run configuration.
type BacktestParams struct {
	InitialCash float64  `json:"initialCash"`
	NFolds      int      `json:"nFolds"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Symbols     []string `json:"symbols"`
}

// Clone returns a copy of p that shares no slices with it.
func (p BacktestParams) Clone() BacktestParams {
	out := p
	out.Symbols = append([]string(nil), p.Symbols...)
	return out
}

// BacktestRequest is the JSON body posted to the alpha backtest endpoint.
type BacktestRequest struct {
	StockPool        string   `json:"stockPool,omitempty"`
	Symbols          []string `json:"symbols,omitempty"`
	StockFactors     []string `json:"stockFactors,omitempty"`
	BuyAlphaFactors  []string `json:"buyAlphaFactors"`
	SellAlphaFactors []string `json:"sellAlphaFactors"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Capital          float64  `json:"capital"`
	NFolds           int      `json:"nFolds"`
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// TradeRecord is a closed long position produced by a backtest.
type TradeRecord struct {
	ID         int     `json:"id"`
	Symbol     string  `json:"symbol"`
	BuyDate    string  `json:"buy_date"`
	SellDate   string  `json:"sell_date"`
	BuyPrice   float64 `json:"buy_price"`
	SellPrice  float64 `json:"sell_price"`
	Quantity   int     `json:"quantity"`
	Profit     float64 `json:"profit"`
	HoldDays   int     `json:"hold_days"`
	ProfitRate float64 `json:"profit_rate"`
}

// ExpectedProfit returns (SellPrice-BuyPrice)*Quantity computed in decimal.
func (t TradeRecord) ExpectedProfit() decimal.Decimal {
	buy := decimal.NewFromFloat(t.BuyPrice)
	sell := decimal.NewFromFloat(t.SellPrice)
	return sell.Sub(buy).Mul(decimal.NewFromInt(int64(t.Quantity)))
}

// ExpectedProfitRate returns profit/(BuyPrice*Quantity), or zero when the
// cost basis is zero.
func (t TradeRecord) ExpectedProfitRate() decimal.Decimal {
	cost := decimal.NewFromFloat(t.BuyPrice).Mul(decimal.NewFromInt(int64(t.Quantity)))
	if cost.IsZero() {
		return decimal.Zero
	}
	return t.ExpectedProfit().Div(cost)
}

// SelectedStock is one stock chosen by the pick factors.
type SelectedStock struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// BacktestResult holds the summary metrics of one backtest run.
type BacktestResult struct {
	WinRate        float64         `json:"winRate"`
	TotalProfit    float64         `json:"totalProfit"`
	AnnualProfit   float64         `json:"annualProfit"`
	SharpeRatio    float64         `json:"sharpeRatio"`
	MaxDrawdown    float64         `json:"maxDrawdown"`
	TradesCount    int             `json:"tradesCount"`
	TradeRecords   []TradeRecord   `json:"tradeRecords,omitempty"`
	DataSource     string          `json:"dataSource,omitempty"`
	SelectedStocks []SelectedStock `json:"selectedStocks,omitempty"`
}

// Clone returns a deep copy of r. A nil receiver yields nil.
func (r *BacktestResult) Clone() *BacktestResult {
	if r == nil {
		return nil
	}
	out := *r
	out.TradeRecords = append([]TradeRecord(nil), r.TradeRecords...)
	out.SelectedStocks = append([]SelectedStock(nil), r.SelectedStocks...)
	return &out
}

// PricePoint is one daily OHLC sample in the chart payload.
type PricePoint struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ReturnPoint is one cumulative return sample, in percent.
type ReturnPoint struct {
	Date   string  `json:"date"`
	Return float64 `json:"return"`
}

// DrawdownPoint is one drawdown sample, in percent.
type DrawdownPoint struct {
	Date     string  `json:"date"`
	Drawdown float64 `json:"drawdown"`
}

// ChartData carries the series the dashboard plots for a run.
type ChartData struct {
	Price     []PricePoint    `json:"price"`
	CumReturn []ReturnPoint   `json:"cumReturn"`
	Drawdown  []DrawdownPoint `json:"drawdown"`
}

// Clone returns a deep copy of c. A nil receiver yields nil.
func (c *ChartData) Clone() *ChartData {
	if c == nil {
		return nil
	}
	return &ChartData{
		Price:     append([]PricePoint(nil), c.Price...),
		CumReturn: append([]ReturnPoint(nil), c.CumReturn...),
		Drawdown:  append([]DrawdownPoint(nil), c.Drawdown...),
	}
}

// ---------------------------------------------------------------------------
// Envelopes
// ---------------------------------------------------------------------------

// EnvelopeData is the payload of a successful backtest envelope.
type EnvelopeData struct {
	BacktestResult *BacktestResult `json:"backtestResult"`
	ChartData      *ChartData      `json:"chartData,omitempty"`
}

// Envelope is the response shape of the alpha backtest endpoint.
type Envelope struct {
	Success bool          `json:"success"`
	Data    *EnvelopeData `json:"data,omitempty"`
	Message string        `json:"message,omitempty"`
}

// ListEnvelope wraps the listing endpoints (factors, stock pools).
type ListEnvelope[T any] struct {
	Success bool   `json:"success"`
	Data    []T    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// StockSnapshot is a point-in-time quote for one instrument.
type StockSnapshot struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	MarketCap     int64   `json:"marketCap"`
}

// ---------------------------------------------------------------------------
// Run history
// ---------------------------------------------------------------------------

// RunStatus is the terminal state of one backtest execution.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunRecord captures one completed backtest execution: what was asked, what
// came back, and when.
type RunRecord struct {
	ID         string          `json:"id"`
	Status     RunStatus       `json:"status"`
	Request    BacktestRequest `json:"request"`
	Result     *BacktestResult `json:"result,omitempty"`
	ChartData  *ChartData      `json:"chartData,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}
