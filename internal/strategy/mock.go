package strategy

import "moa/internal/domain"

// MockDataSource tags results that were produced locally instead of by the
// backtest service.
const MockDataSource = "mock"

// MockResult returns the static result shown when a run fails under the
// fallback-mock policy.
func MockResult() *domain.BacktestResult {
	return &domain.BacktestResult{
		WinRate:      0.65,
		TotalProfit:  0.28,
		AnnualProfit: 0.14,
		DataSource:   MockDataSource,
		SelectedStocks: []domain.SelectedStock{
			{Symbol: "000001", Name: "平安银行", Score: 95.5},
			{Symbol: "000002", Name: "万科A", Score: 92.3},
			{Symbol: "600000", Name: "浦发银行", Score: 89.7},
			{Symbol: "600036", Name: "招商银行", Score: 88.9},
			{Symbol: "000858", Name: "五粮液", Score: 87.2},
		},
	}
}
