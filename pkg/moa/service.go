package moa

import (
	"context"
	"net/url"

	"golang.org/x/sync/errgroup"

	"moa/internal/domain"
)

// stockFetchConcurrency bounds concurrent snapshot requests in StockInfos.
const stockFetchConcurrency = 8

// Backtest posts req to the alpha backtest endpoint and returns the response
// envelope. Service-level failures arrive as an envelope with Success=false
// and a nil error.
func (c *Client) Backtest(ctx context.Context, req domain.BacktestRequest) (*domain.Envelope, error) {
	env, err := Post[domain.Envelope](ctx, c, "/alpha/backtest", req)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// Loopback posts params to the legacy loopback endpoint, which answers with a
// bare BacktestResult.
func (c *Client) Loopback(ctx context.Context, params domain.BacktestParams) (*domain.BacktestResult, error) {
	res, err := Post[domain.BacktestResult](ctx, c, "/loopback", params)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// StockInfo returns the current snapshot for symbol.
func (c *Client) StockInfo(ctx context.Context, symbol string) (*domain.StockSnapshot, error) {
	snap, err := Get[domain.StockSnapshot](ctx, c, "/stock/"+url.PathEscape(symbol), nil)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// StockInfos fetches snapshots for several symbols concurrently. Results are
// returned in the order of symbols; the first failure cancels the rest.
func (c *Client) StockInfos(ctx context.Context, symbols []string) ([]domain.StockSnapshot, error) {
	results := make([]domain.StockSnapshot, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stockFetchConcurrency)

	for i, sym := range symbols {
		g.Go(func() error {
			snap, err := c.StockInfo(gctx, sym)
			if err != nil {
				return err
			}
			results[i] = *snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Factors lists the factors the service supports.
func (c *Client) Factors(ctx context.Context) ([]domain.FactorInfo, error) {
	env, err := Get[domain.ListEnvelope[domain.FactorInfo]](ctx, c, "/alpha/factors", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// StockPools lists the stock pools the service can backtest against.
func (c *Client) StockPools(ctx context.Context) ([]domain.StockPool, error) {
	env, err := Get[domain.ListEnvelope[domain.StockPool]](ctx, c, "/alpha/stock-pool", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
