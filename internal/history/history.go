// Package history persists completed backtest runs and exports their trades.
package history

import (
	"context"
	"errors"

	"moa/internal/domain"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// RunStore persists and retrieves backtest run records.
type RunStore interface {
	// Record inserts a run, replacing any previous run with the same id.
	Record(ctx context.Context, rec domain.RunRecord) error

	// Get retrieves a single run by id.
	Get(ctx context.Context, id string) (*domain.RunRecord, error)

	// List returns the most recent runs first, up to limit. A non-positive
	// limit returns every run.
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Delete removes a run by id.
	Delete(ctx context.Context, id string) error
}
