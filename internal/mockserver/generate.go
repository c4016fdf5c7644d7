package mockserver

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"moa/internal/domain"
	"moa/internal/util"
)

// TradeCount is the number of trades every mock backtest reports.
const TradeCount = 24

// fixedResult is the summary returned by both backtest endpoints.
func fixedResult() domain.BacktestResult {
	return domain.BacktestResult{
		WinRate:      0.65,
		TotalProfit:  0.45,
		AnnualProfit: 0.225,
		SharpeRatio:  1.8,
		MaxDrawdown:  -0.08,
		TradesCount:  TradeCount,
	}
}

var stockNames = map[string]string{
	"sh600000": "浦发银行",
	"sh600036": "招商银行",
	"sh600519": "贵州茅台",
	"sz000001": "平安银行",
	"sz000858": "五粮液",
}

var defaultSymbols = []string{"sh600000", "sh600036", "sh600519", "sz000001", "sz000858"}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// generateTrades produces n closed trades spread across [start, end]. Prices
// are rounded to cents before the profit is computed, so each record's
// Profit equals its ExpectedProfit.
func generateTrades(rng *rand.Rand, symbols []string, start, end time.Time, n int) []domain.TradeRecord {
	if len(symbols) == 0 {
		symbols = defaultSymbols
	}
	days := util.TradingDays(start, end)
	if len(days) < 2 {
		days = util.TradingDays(start, start.AddDate(0, 0, 60))
	}

	trades := make([]domain.TradeRecord, 0, n)
	for i := 0; i < n; i++ {
		bi := rng.IntN(len(days) - 1)
		hold := 1 + rng.IntN(20)
		si := bi + hold
		if si >= len(days) {
			si = len(days) - 1
		}
		buyDay, sellDay := days[bi], days[si]

		buy := decimal.NewFromFloat(10 + rng.Float64()*90).Round(2)
		move := decimal.NewFromFloat(rng.Float64()*0.2 - 0.08)
		sell := buy.Mul(decimal.NewFromInt(1).Add(move)).Round(2)
		qty := int64(100 * (1 + rng.IntN(10)))

		profit := sell.Sub(buy).Mul(decimal.NewFromInt(qty))
		rate := profit.Div(buy.Mul(decimal.NewFromInt(qty))).Mul(decimal.NewFromInt(100))

		trades = append(trades, domain.TradeRecord{
			ID:         i + 1,
			Symbol:     symbols[i%len(symbols)],
			BuyDate:    buyDay.Format(util.DateLayout),
			SellDate:   sellDay.Format(util.DateLayout),
			BuyPrice:   buy.InexactFloat64(),
			SellPrice:  sell.InexactFloat64(),
			Quantity:   int(qty),
			Profit:     round2(profit),
			HoldDays:   int(sellDay.Sub(buyDay).Hours() / 24),
			ProfitRate: round2(rate),
		})
	}
	return trades
}

// generateChart walks a price series from 100 over the trading days in
// [start, end] with daily moves in [-2%, +2%], then derives the cumulative
// return and drawdown series in percent.
func generateChart(rng *rand.Rand, start, end time.Time) *domain.ChartData {
	days := util.TradingDays(start, end)
	chart := &domain.ChartData{
		Price:     make([]domain.PricePoint, 0, len(days)),
		CumReturn: make([]domain.ReturnPoint, 0, len(days)),
		Drawdown:  make([]domain.DrawdownPoint, 0, len(days)),
	}
	if len(days) == 0 {
		return chart
	}

	first := 100.0
	price, peak := first, first
	for i, d := range days {
		if i > 0 {
			price *= 1 + (rng.Float64()*0.04 - 0.02)
		}
		if price > peak {
			peak = price
		}
		date := d.Format(util.DateLayout)
		chart.Price = append(chart.Price, domain.PricePoint{
			Date:  date,
			Open:  round2(decimal.NewFromFloat(price * (0.99 + rng.Float64()*0.02))),
			High:  round2(decimal.NewFromFloat(price * (1 + rng.Float64()*0.02))),
			Low:   round2(decimal.NewFromFloat(price * (0.98 + rng.Float64()*0.02))),
			Close: round2(decimal.NewFromFloat(price)),
		})
		chart.CumReturn = append(chart.CumReturn, domain.ReturnPoint{
			Date:   date,
			Return: round2(decimal.NewFromFloat((price/first - 1) * 100)),
		})
		chart.Drawdown = append(chart.Drawdown, domain.DrawdownPoint{
			Date:     date,
			Drawdown: round2(decimal.NewFromFloat((price - peak) / peak * 100)),
		})
	}
	return chart
}

// stockSnapshot builds a randomized quote for symbol.
func stockSnapshot(rng *rand.Rand, symbol string) domain.StockSnapshot {
	return domain.StockSnapshot{
		Symbol:        symbol,
		Name:          fmt.Sprintf("%s Company", symbol),
		Price:         150 + rng.Float64()*50,
		Change:        (rng.Float64() - 0.5) * 10,
		ChangePercent: (rng.Float64() - 0.5) * 5,
		Volume:        int64(rng.Float64() * 1e7),
		MarketCap:     int64(rng.Float64() * 1e11),
	}
}

func selectedStocks(symbols []string) []domain.SelectedStock {
	if len(symbols) == 0 {
		symbols = defaultSymbols
	}
	out := make([]domain.SelectedStock, 0, len(symbols))
	for i, sym := range symbols {
		name, ok := stockNames[sym]
		if !ok {
			name = sym
		}
		out = append(out, domain.SelectedStock{Symbol: sym, Name: name, Score: 95.5 - float64(i)*2.1})
	}
	return out
}
