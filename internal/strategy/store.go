// Package strategy holds the backtest configuration a user edits (parameters,
// stock pool and the three factor lists) and the action that submits it to
// the backtest service.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moa/internal/domain"
)

var (
	// ErrIndexOutOfRange is returned by RemoveFactor for an index outside the
	// list.
	ErrIndexOutOfRange = errors.New("factor index out of range")
	// ErrUnknownKind is returned for a factor kind other than pick, buy or
	// sell.
	ErrUnknownKind = errors.New("unknown factor kind")
)

// Service submits backtest requests. *moa.Client implements it.
type Service interface {
	Backtest(ctx context.Context, req domain.BacktestRequest) (*domain.Envelope, error)
}

// Recorder persists completed runs.
type Recorder interface {
	Record(ctx context.Context, rec domain.RunRecord) error
}

// ErrorPolicy decides what a failed run leaves in the result slot.
type ErrorPolicy string

const (
	// ErrorPolicySurface leaves the result empty and reports the error.
	ErrorPolicySurface ErrorPolicy = "surface"
	// ErrorPolicyFallbackMock reports the error and shows MockResult.
	ErrorPolicyFallbackMock ErrorPolicy = "fallback-mock"
)

// ParseErrorPolicy maps a configuration value to an ErrorPolicy. An empty
// string selects ErrorPolicySurface.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", ErrorPolicySurface:
		return ErrorPolicySurface, nil
	case ErrorPolicyFallbackMock:
		return ErrorPolicyFallbackMock, nil
	}
	return "", fmt.Errorf("unknown error policy %q", s)
}

// State is a point-in-time copy of everything the store holds.
type State struct {
	Params       domain.BacktestParams  `json:"params"`
	StockPool    string                 `json:"stockPool"`
	StockFactors []domain.Factor        `json:"stockFactors"`
	BuyFactors   []domain.Factor        `json:"buyFactors"`
	SellFactors  []domain.Factor        `json:"sellFactors"`
	IsRunning    bool                   `json:"isRunning"`
	Error        string                 `json:"error,omitempty"`
	Result       *domain.BacktestResult `json:"result,omitempty"`
	ChartData    *domain.ChartData      `json:"chartData,omitempty"`
	LastRunID    string                 `json:"lastRunId,omitempty"`
	LastRunAt    time.Time              `json:"lastRunAt,omitzero"`
}

// Option configures a Store.
type Option func(*Store)

// WithDefaults replaces the built-in defaults used at construction and by
// ResetParams.
func WithDefaults(d Defaults) Option {
	return func(s *Store) { s.defaults = d.Clone() }
}

// WithErrorPolicy sets how failed runs are presented.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithRecorder saves every completed run to r.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// Store is the backtest parameter store. All methods are safe for concurrent
// use.
type Store struct {
	svc      Service
	recorder Recorder
	policy   ErrorPolicy
	defaults Defaults
	log      *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	state State

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewStore creates a Store backed by svc and initialised to the defaults.
func NewStore(svc Service, opts ...Option) *Store {
	s := &Store{
		svc:      svc,
		policy:   ErrorPolicySurface,
		defaults: BuiltinDefaults(),
		log:      slog.Default(),
		now:      time.Now,
		subs:     make(map[int]chan Event),
	}
	for _, o := range opts {
		o(s)
	}
	s.applyDefaults()
	return s
}

// applyDefaults must be called with mu held or before the store is shared.
func (s *Store) applyDefaults() {
	d := s.defaults.Clone()
	s.state.Params = d.Params
	s.state.StockPool = d.StockPool
	s.state.StockFactors = d.StockFactors
	s.state.BuyFactors = d.BuyFactors
	s.state.SellFactors = d.SellFactors
	s.state.Error = ""
	s.state.Result = nil
	s.state.ChartData = nil
}

// Snapshot returns a deep copy of the store state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := s.state
	out.Params = s.state.Params.Clone()
	out.StockFactors = cloneFactors(s.state.StockFactors)
	out.BuyFactors = cloneFactors(s.state.BuyFactors)
	out.SellFactors = cloneFactors(s.state.SellFactors)
	out.Result = s.state.Result.Clone()
	out.ChartData = s.state.ChartData.Clone()
	return out
}

// Params returns a copy of the current run parameters.
func (s *Store) Params() domain.BacktestParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Params.Clone()
}

// SetParams replaces the run parameters.
func (s *Store) SetParams(p domain.BacktestParams) {
	s.mu.Lock()
	s.state.Params = p.Clone()
	s.mu.Unlock()
	s.publish(EventParams)
}

// UpdateParams applies fn to a copy of the parameters and stores the result.
func (s *Store) UpdateParams(fn func(*domain.BacktestParams)) {
	s.mu.Lock()
	p := s.state.Params.Clone()
	fn(&p)
	s.state.Params = p
	s.mu.Unlock()
	s.publish(EventParams)
}

// SetStockPool selects the stock universe by id.
func (s *Store) SetStockPool(id string) {
	s.mu.Lock()
	s.state.StockPool = id
	s.mu.Unlock()
	s.publish(EventParams)
}

// Factors returns a copy of the list for kind.
func (s *Store) Factors(kind domain.FactorKind) ([]domain.Factor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, err := s.listLocked(kind)
	if err != nil {
		return nil, err
	}
	return cloneFactors(*list), nil
}

// AddFactor appends a factor named name with empty params to the list for
// kind. An empty name is ignored.
func (s *Store) AddFactor(kind domain.FactorKind, name string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if name == "" {
		return nil
	}
	s.mu.Lock()
	list, _ := s.listLocked(kind)
	*list = append(*list, domain.Factor{Name: name, Params: domain.EmptyFactorParams})
	s.mu.Unlock()
	s.publish(EventFactors)
	return nil
}

// RemoveFactor deletes the factor at index from the list for kind. The list
// is left unchanged when index is out of range.
func (s *Store) RemoveFactor(kind domain.FactorKind, index int) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	s.mu.Lock()
	list, _ := s.listLocked(kind)
	if index < 0 || index >= len(*list) {
		n := len(*list)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s[%d] of %d", ErrIndexOutOfRange, kind, index, n)
	}
	*list = append((*list)[:index:index], (*list)[index+1:]...)
	s.mu.Unlock()
	s.publish(EventFactors)
	return nil
}

// AddStockFactor appends a stock pick factor.
func (s *Store) AddStockFactor(name string) { _ = s.AddFactor(domain.FactorKindPick, name) }

// AddBuyFactor appends a buy factor.
func (s *Store) AddBuyFactor(name string) { _ = s.AddFactor(domain.FactorKindBuy, name) }

// AddSellFactor appends a sell factor.
func (s *Store) AddSellFactor(name string) { _ = s.AddFactor(domain.FactorKindSell, name) }

// RemoveStockFactor deletes the stock pick factor at index.
func (s *Store) RemoveStockFactor(index int) error {
	return s.RemoveFactor(domain.FactorKindPick, index)
}

// RemoveBuyFactor deletes the buy factor at index.
func (s *Store) RemoveBuyFactor(index int) error {
	return s.RemoveFactor(domain.FactorKindBuy, index)
}

// RemoveSellFactor deletes the sell factor at index.
func (s *Store) RemoveSellFactor(index int) error {
	return s.RemoveFactor(domain.FactorKindSell, index)
}

// ResetParams restores parameters, stock pool and factor lists to the
// defaults and clears error, result and chart data.
func (s *Store) ResetParams() {
	s.mu.Lock()
	s.applyDefaults()
	s.mu.Unlock()
	s.publish(EventReset)
}

func (s *Store) listLocked(kind domain.FactorKind) (*[]domain.Factor, error) {
	switch kind {
	case domain.FactorKindPick:
		return &s.state.StockFactors, nil
	case domain.FactorKindBuy:
		return &s.state.BuyFactors, nil
	case domain.FactorKindSell:
		return &s.state.SellFactors, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
