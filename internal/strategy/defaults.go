package strategy

import "moa/internal/domain"

// Defaults is the configuration a Store starts from and returns to on reset.
type Defaults struct {
	Params       domain.BacktestParams
	StockPool    string
	StockFactors []domain.Factor
	BuyFactors   []domain.Factor
	SellFactors  []domain.Factor
}

// DefaultParams returns the built-in run configuration.
func DefaultParams() domain.BacktestParams {
	return domain.BacktestParams{
		InitialCash: 1000000,
		NFolds:      2,
		StartDate:   "2020-01-01",
		EndDate:     "2023-12-31",
		Symbols:     []string{"sh600000", "sh600036", "sh600519", "sz000001", "sz000858"},
	}
}

// DefaultStockPool is the universe selected when nothing else is configured.
const DefaultStockPool = "hs300"

// BuiltinDefaults returns the built-in parameters, pool and one factor per
// list.
func BuiltinDefaults() Defaults {
	return Defaults{
		Params:       DefaultParams(),
		StockPool:    DefaultStockPool,
		StockFactors: []domain.Factor{{Name: "AbuPickStockNDay", Params: `{"xd": 20}`}},
		BuyFactors:   []domain.Factor{{Name: "AbuFactorBuyBreak", Params: `{"xd": 20}`}},
		SellFactors:  []domain.Factor{{Name: "AbuFactorSellPreAtrN", Params: `{"close_atr_n": 1.5}`}},
	}
}

// Clone returns a copy of d that shares no slices with it.
func (d Defaults) Clone() Defaults {
	return Defaults{
		Params:       d.Params.Clone(),
		StockPool:    d.StockPool,
		StockFactors: cloneFactors(d.StockFactors),
		BuyFactors:   cloneFactors(d.BuyFactors),
		SellFactors:  cloneFactors(d.SellFactors),
	}
}

func cloneFactors(fs []domain.Factor) []domain.Factor {
	out := make([]domain.Factor, len(fs))
	copy(out, fs)
	return out
}

func factorNames(fs []domain.Factor) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}
