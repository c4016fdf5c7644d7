package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"moa/internal/domain"
)

// TradeRow is the Parquet schema for an exported trade.
type TradeRow struct {
	RunID      string  `parquet:"run_id"`
	ID         int64   `parquet:"id"`
	Symbol     string  `parquet:"symbol"`
	BuyDate    string  `parquet:"buy_date"`
	SellDate   string  `parquet:"sell_date"`
	BuyPrice   float64 `parquet:"buy_price"`
	SellPrice  float64 `parquet:"sell_price"`
	Quantity   int64   `parquet:"quantity"`
	Profit     float64 `parquet:"profit"`
	HoldDays   int64   `parquet:"hold_days"`
	ProfitRate float64 `parquet:"profit_rate"`
}

// ExportTrades writes the trades of run runID to a Parquet file at path,
// creating parent directories as needed.
func ExportTrades(path, runID string, trades []domain.TradeRecord) error {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			RunID:      runID,
			ID:         int64(t.ID),
			Symbol:     t.Symbol,
			BuyDate:    t.BuyDate,
			SellDate:   t.SellDate,
			BuyPrice:   t.BuyPrice,
			SellPrice:  t.SellPrice,
			Quantity:   int64(t.Quantity),
			Profit:     t.Profit,
			HoldDays:   int64(t.HoldDays),
			ProfitRate: t.ProfitRate,
		}
	}
	if err := writeParquetFile(path, rows); err != nil {
		return fmt.Errorf("writing trades to %s: %w", path, err)
	}
	return nil
}

// ReadTrades reads trades previously written by ExportTrades.
func ReadTrades(path string) ([]domain.TradeRecord, error) {
	rows, err := readParquetFile[TradeRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading trades from %s: %w", path, err)
	}
	out := make([]domain.TradeRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.TradeRecord{
			ID:         int(r.ID),
			Symbol:     r.Symbol,
			BuyDate:    r.BuyDate,
			SellDate:   r.SellDate,
			BuyPrice:   r.BuyPrice,
			SellPrice:  r.SellPrice,
			Quantity:   int(r.Quantity),
			Profit:     r.Profit,
			HoldDays:   int(r.HoldDays),
			ProfitRate: r.ProfitRate,
		}
	}
	return out, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
