package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/domain"
)

type fakeService struct {
	mu   sync.Mutex
	reqs []domain.BacktestRequest
	env  *domain.Envelope
	err  error
	// block, when non-nil, holds Backtest until it is closed.
	block chan struct{}
}

func (f *fakeService) Backtest(ctx context.Context, req domain.BacktestRequest) (*domain.Envelope, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.env, f.err
}

func (f *fakeService) lastRequest(t *testing.T) domain.BacktestRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []domain.RunRecord
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, rec domain.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(svc Service, opts ...Option) *Store {
	return NewStore(svc, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func successEnvelope() *domain.Envelope {
	return &domain.Envelope{
		Success: true,
		Data: &domain.EnvelopeData{
			BacktestResult: &domain.BacktestResult{WinRate: 0.5, TradesCount: 24},
			ChartData: &domain.ChartData{
				Price: []domain.PricePoint{{Date: "2020-01-02", Close: 10}},
			},
		},
	}
}

func TestNewStoreDefaults(t *testing.T) {
	s := newTestStore(&fakeService{})
	st := s.Snapshot()

	assert.Equal(t, DefaultParams(), st.Params)
	assert.Equal(t, "hs300", st.StockPool)
	assert.Equal(t, []domain.Factor{{Name: "AbuPickStockNDay", Params: `{"xd": 20}`}}, st.StockFactors)
	assert.Equal(t, []domain.Factor{{Name: "AbuFactorBuyBreak", Params: `{"xd": 20}`}}, st.BuyFactors)
	assert.Equal(t, []domain.Factor{{Name: "AbuFactorSellPreAtrN", Params: `{"close_atr_n": 1.5}`}}, st.SellFactors)
	assert.False(t, st.IsRunning)
	assert.Empty(t, st.Error)
	assert.Nil(t, st.Result)
	assert.Nil(t, st.ChartData)
}

func TestAddFactor(t *testing.T) {
	s := newTestStore(&fakeService{})

	s.AddBuyFactor("AbuFactorBuyWD")
	buy, err := s.Factors(domain.FactorKindBuy)
	require.NoError(t, err)
	require.Len(t, buy, 2)
	assert.Equal(t, domain.Factor{Name: "AbuFactorBuyWD", Params: "{}"}, buy[1])

	s.AddStockFactor("AbuPickRegressAngMinMax")
	s.AddSellFactor("AbuFactorSellNDay")
	pick, _ := s.Factors(domain.FactorKindPick)
	sell, _ := s.Factors(domain.FactorKindSell)
	assert.Len(t, pick, 2)
	assert.Len(t, sell, 2)
}

func TestAddFactorEmptyNameIsNoop(t *testing.T) {
	s := newTestStore(&fakeService{})
	before := s.Snapshot()

	require.NoError(t, s.AddFactor(domain.FactorKindSell, ""))
	assert.Equal(t, before, s.Snapshot())
}

func TestAddFactorUnknownKind(t *testing.T) {
	s := newTestStore(&fakeService{})
	err := s.AddFactor(domain.FactorKind("hold"), "x")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = s.Factors(domain.FactorKind("hold"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRemoveFactor(t *testing.T) {
	s := newTestStore(&fakeService{})
	s.AddBuyFactor("A")
	s.AddBuyFactor("B")

	require.NoError(t, s.RemoveBuyFactor(1))
	buy, _ := s.Factors(domain.FactorKindBuy)
	require.Len(t, buy, 2)
	assert.Equal(t, "AbuFactorBuyBreak", buy[0].Name)
	assert.Equal(t, "B", buy[1].Name)

	require.NoError(t, s.RemoveStockFactor(0))
	pick, _ := s.Factors(domain.FactorKindPick)
	assert.Empty(t, pick)

	require.NoError(t, s.RemoveSellFactor(0))
	sell, _ := s.Factors(domain.FactorKindSell)
	assert.Empty(t, sell)
}

func TestRemoveFactorOutOfRange(t *testing.T) {
	s := newTestStore(&fakeService{})
	before, _ := s.Factors(domain.FactorKindBuy)

	for _, idx := range []int{-1, 1, 99} {
		err := s.RemoveFactor(domain.FactorKindBuy, idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", idx)
	}
	after, _ := s.Factors(domain.FactorKindBuy)
	assert.Equal(t, before, after)
}

func TestAddThenRemoveRestoresList(t *testing.T) {
	s := newTestStore(&fakeService{})
	before, _ := s.Factors(domain.FactorKindSell)

	s.AddSellFactor("AbuFactorSellNDay")
	require.NoError(t, s.RemoveSellFactor(len(before)))

	after, _ := s.Factors(domain.FactorKindSell)
	assert.Equal(t, before, after)
}

func TestSetParamsAndPool(t *testing.T) {
	s := newTestStore(&fakeService{})
	p := DefaultParams()
	p.InitialCash = 500000
	p.Symbols = []string{"sh600519"}
	s.SetParams(p)
	s.SetStockPool("zz500")

	p.Symbols[0] = "mutated"
	st := s.Snapshot()
	assert.Equal(t, 500000.0, st.Params.InitialCash)
	assert.Equal(t, []string{"sh600519"}, st.Params.Symbols)
	assert.Equal(t, "zz500", st.StockPool)

	s.UpdateParams(func(p *domain.BacktestParams) { p.NFolds = 5 })
	assert.Equal(t, 5, s.Params().NFolds)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestStore(&fakeService{})
	st := s.Snapshot()
	st.BuyFactors[0].Name = "changed"
	st.Params.Symbols[0] = "changed"

	again := s.Snapshot()
	assert.Equal(t, "AbuFactorBuyBreak", again.BuyFactors[0].Name)
	assert.Equal(t, "sh600000", again.Params.Symbols[0])
}

func TestResetParams(t *testing.T) {
	svc := &fakeService{err: errors.New("boom")}
	s := newTestStore(svc, WithErrorPolicy(ErrorPolicyFallbackMock))
	s.AddBuyFactor("X")
	s.SetStockPool("cyb")
	s.UpdateParams(func(p *domain.BacktestParams) { p.InitialCash = 1 })
	s.Run(context.Background())
	require.NotEmpty(t, s.Snapshot().Error)

	s.ResetParams()
	st := s.Snapshot()
	fresh := newTestStore(&fakeService{}).Snapshot()
	assert.Equal(t, fresh.Params, st.Params)
	assert.Equal(t, fresh.StockPool, st.StockPool)
	assert.Equal(t, fresh.StockFactors, st.StockFactors)
	assert.Equal(t, fresh.BuyFactors, st.BuyFactors)
	assert.Equal(t, fresh.SellFactors, st.SellFactors)
	assert.Empty(t, st.Error)
	assert.Nil(t, st.Result)
	assert.Nil(t, st.ChartData)
}

func TestWithDefaults(t *testing.T) {
	d := BuiltinDefaults()
	d.Params.InitialCash = 200000
	d.StockPool = "zz500"
	d.BuyFactors = nil

	s := newTestStore(&fakeService{}, WithDefaults(d))
	st := s.Snapshot()
	assert.Equal(t, 200000.0, st.Params.InitialCash)
	assert.Equal(t, "zz500", st.StockPool)
	assert.Empty(t, st.BuyFactors)

	s.AddBuyFactor("Y")
	s.ResetParams()
	assert.Empty(t, s.Snapshot().BuyFactors)
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ErrorPolicySurface, p)

	p, err = ParseErrorPolicy("fallback-mock")
	require.NoError(t, err)
	assert.Equal(t, ErrorPolicyFallbackMock, p)

	_, err = ParseErrorPolicy("retry")
	assert.Error(t, err)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	s := newTestStore(&fakeService{})
	id, ch := s.Subscribe(8)

	s.AddBuyFactor("Z")
	select {
	case e := <-ch:
		assert.Equal(t, EventFactors, e.Type)
		assert.Len(t, e.State.BuyFactors, 2)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	s.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := newTestStore(&fakeService{})
	id, _ := s.Subscribe(0)
	defer s.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.AddSellFactor("S")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutations blocked on a full subscriber")
	}
}
