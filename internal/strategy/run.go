package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"moa/internal/domain"
)

const (
	// MsgRunFailed is shown when the service rejects a run without a message.
	MsgRunFailed = "策略执行失败"
	// MsgMalformedResponse is shown when a success envelope carries no result.
	MsgMalformedResponse = "响应数据格式错误"
)

// errMalformedResponse marks a success envelope without data.
var errMalformedResponse = errors.New(MsgMalformedResponse)

// BuildRequest assembles the backtest request for the current configuration.
func (s *Store) BuildRequest() domain.BacktestRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestLocked()
}

func (s *Store) requestLocked() domain.BacktestRequest {
	p := s.state.Params
	return domain.BacktestRequest{
		StockPool:        s.state.StockPool,
		Symbols:          append([]string(nil), p.Symbols...),
		StockFactors:     factorNames(s.state.StockFactors),
		BuyAlphaFactors:  factorNames(s.state.BuyFactors),
		SellAlphaFactors: factorNames(s.state.SellFactors),
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		Capital:          p.InitialCash,
		NFolds:           p.NFolds,
	}
}

// Run submits the current configuration to the service and records the
// outcome in the store. It returns the state after the run finished.
//
// The store lock is not held while the service call is in flight, so the
// configuration may be edited meanwhile. Concurrent runs are not serialised:
// whichever response arrives last determines the final result, and the first
// run to finish clears IsRunning even if another is still in flight.
func (s *Store) Run(ctx context.Context) State {
	runID := uuid.NewString()

	s.mu.Lock()
	s.state.IsRunning = true
	s.state.Error = ""
	s.state.Result = nil
	s.state.ChartData = nil
	req := s.requestLocked()
	s.mu.Unlock()
	s.publish(EventRunning)

	started := s.now()
	s.log.Info("backtest started", "run_id", runID,
		"stock_pool", req.StockPool, "buy_factors", len(req.BuyAlphaFactors),
		"sell_factors", len(req.SellAlphaFactors))

	env, err := s.svc.Backtest(ctx, req)
	if err == nil && env != nil && env.Success && (env.Data == nil || env.Data.BacktestResult == nil) {
		err = errMalformedResponse
	}
	if err == nil && env == nil {
		err = errMalformedResponse
	}

	rec := domain.RunRecord{
		ID:        runID,
		Request:   req,
		StartedAt: started,
	}

	s.mu.Lock()
	switch {
	case err != nil:
		s.state.Error = fmt.Sprintf("%s: %v", MsgRunFailed, err)
		if s.policy == ErrorPolicyFallbackMock {
			s.state.Result = MockResult()
		}
		rec.Status = domain.RunStatusFailed
		rec.Error = s.state.Error
	case !env.Success:
		msg := env.Message
		if msg == "" {
			msg = MsgRunFailed
		}
		s.state.Error = msg
		rec.Status = domain.RunStatusFailed
		rec.Error = msg
	default:
		s.state.Result = env.Data.BacktestResult.Clone()
		s.state.ChartData = env.Data.ChartData.Clone()
		rec.Status = domain.RunStatusSuccess
		rec.Result = env.Data.BacktestResult.Clone()
		rec.ChartData = env.Data.ChartData.Clone()
	}
	finished := s.now()
	s.state.IsRunning = false
	s.state.LastRunID = runID
	s.state.LastRunAt = finished
	out := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(EventFinished)

	if rec.Status == domain.RunStatusFailed {
		s.log.Error("backtest failed", "run_id", runID, "error", rec.Error)
	} else {
		s.log.Info("backtest finished", "run_id", runID,
			"trades", rec.Result.TradesCount, "elapsed", finished.Sub(started))
	}

	rec.FinishedAt = finished
	s.record(context.WithoutCancel(ctx), rec)
	return out
}

func (s *Store) record(ctx context.Context, rec domain.RunRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.log.Warn("recording backtest run", "run_id", rec.ID, "error", err)
	}
}
