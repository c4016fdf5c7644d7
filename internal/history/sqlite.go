package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moa/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	request     TEXT NOT NULL,
	result      TEXT,
	chart_data  TEXT,
	error       TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);
`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// :memory: databases exist per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the runs table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating runs schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record inserts a run, replacing any previous run with the same id.
func (s *SQLiteStore) Record(ctx context.Context, rec domain.RunRecord) error {
	req, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	result, err := marshalNullable(rec.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	chart, err := marshalNullable(rec.ChartData)
	if err != nil {
		return fmt.Errorf("encoding chart data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, status, request, result, chart_data, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Status), string(req), result, chart, rec.Error,
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a single run by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, request, result, chart_data, error, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the most recent runs first, up to limit.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, request, result, chart_data, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Delete removes a run by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.RunRecord, error) {
	var (
		rec               domain.RunRecord
		status, req       string
		result, chart     sql.NullString
		started, finished int64
	)
	if err := sc.Scan(&rec.ID, &status, &req, &result, &chart, &rec.Error, &started, &finished); err != nil {
		return nil, err
	}
	rec.Status = domain.RunStatus(status)
	rec.StartedAt = time.UnixMilli(started)
	rec.FinishedAt = time.UnixMilli(finished)

	if err := json.Unmarshal([]byte(req), &rec.Request); err != nil {
		return nil, fmt.Errorf("decoding request of run %s: %w", rec.ID, err)
	}
	if result.Valid {
		rec.Result = new(domain.BacktestResult)
		if err := json.Unmarshal([]byte(result.String), rec.Result); err != nil {
			return nil, fmt.Errorf("decoding result of run %s: %w", rec.ID, err)
		}
	}
	if chart.Valid {
		rec.ChartData = new(domain.ChartData)
		if err := json.Unmarshal([]byte(chart.String), rec.ChartData); err != nil {
			return nil, fmt.Errorf("decoding chart data of run %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// marshalNullable encodes v as JSON, or returns a SQL NULL for a nil pointer.
func marshalNullable[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
