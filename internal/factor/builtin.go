package factor

import "moa/internal/domain"

// builtins mirrors the factor classes the abu back end can instantiate.
var builtins = []domain.FactorInfo{
	{ID: "pick_nday", Name: "AbuPickStockNDay", Kind: domain.FactorKindPick, Description: "N日涨跌幅选股"},
	{ID: "pick_price_min_max", Name: "AbuPickStockPriceMinMax", Kind: domain.FactorKindPick, Description: "价格区间选股"},
	{ID: "pick_gt", Name: "AbuPickStockGT", Kind: domain.FactorKindPick, Description: "拟合角度大于阈值选股"},
	{ID: "pick_ev", Name: "AbuPickStockEV", Kind: domain.FactorKindPick, Description: "估值选股"},

	{ID: "buy_break", Name: "AbuFactorBuyBreak", Kind: domain.FactorKindBuy, Description: "海龟向上突破买入"},
	{ID: "buy_mean_reversion", Name: "AbuFactorBuyMeanReversion", Kind: domain.FactorKindBuy, Description: "均值回归买入"},
	{ID: "buy_gap", Name: "AbuFactorBuyGap", Kind: domain.FactorKindBuy, Description: "向上跳空缺口买入"},
	{ID: "buy_rsi", Name: "AbuFactorBuyRsi", Kind: domain.FactorKindBuy, Description: "RSI超卖买入"},

	{ID: "sell_break", Name: "AbuFactorSellBreak", Kind: domain.FactorKindSell, Description: "海龟向下突破卖出"},
	{ID: "sell_mean_reversion", Name: "AbuFactorSellMeanReversion", Kind: domain.FactorKindSell, Description: "均值回归卖出"},
	{ID: "sell_pre_atrn", Name: "AbuFactorSellPreAtrN", Kind: domain.FactorKindSell, Description: "单日最大跌幅ATR止损"},
	{ID: "sell_rsi", Name: "AbuFactorSellRsi", Kind: domain.FactorKindSell, Description: "RSI超买卖出"},
	{ID: "sell_trailing_stop", Name: "AbuFactorSellTrailingStop", Kind: domain.FactorKindSell, Description: "移动止盈"},
}

// Builtin returns a registry populated with the factors the backtest service
// ships with.
func Builtin() *Registry {
	r := NewRegistry()
	for _, f := range builtins {
		r.Register(f)
	}
	return r
}
