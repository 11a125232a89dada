package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/metrics"
)

var ErrNotFound = errors.New("run not found")

// Run is one persisted backtest together with the inputs that produced it.
type Run struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Strategy  string           `json:"strategy"`
	Params    map[string]any   `json:"params,omitempty"`
	Benchmark string           `json:"benchmark,omitempty"`
	Result    *backtest.Result `json:"result"`
}

// RunSummary is the listing view of a Run without ledger or fills.
type RunSummary struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	Strategy   string           `json:"strategy"`
	Symbols    []string         `json:"symbols"`
	Trades     int              `json:"trades"`
	FinalValue float64          `json:"final_value"`
	Metrics    metrics.Result   `json:"metrics"`
	Summary    backtest.Summary `json:"summary"`
}

// SQLiteStore persists runs in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	strategy     TEXT NOT NULL,
	symbols      TEXT NOT NULL,
	summary_json TEXT NOT NULL,
	run_json     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at DESC);
`

// NewSQLiteStore opens (or creates) the database at dbPath and creates the
// schema if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts run, assigning an ID and creation time when missing.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run == nil || run.Result == nil {
		return errors.New("run has no result")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}
	if run.Strategy == "" {
		run.Strategy = run.Result.Strategy
	}

	summary, err := json.Marshal(summaryOf(run))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	full, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, strategy, symbols, summary_json, run_json) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixMilli(), run.Strategy, strings.Join(run.Result.Symbols, ","), string(summary), string(full),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads a full run including ledger and fills.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT run_json FROM runs WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select run %s: %w", id, err)
	}
	var run Run
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first, up to limit (all when <= 0).
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `SELECT summary_json FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rs RunSummary
		if err := json.Unmarshal([]byte(raw), &rs); err != nil {
			return nil, fmt.Errorf("decode run summary: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// DeleteRun removes a run. Deleting an unknown id returns ErrNotFound.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func summaryOf(run *Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		Strategy:   run.Strategy,
		Symbols:    run.Result.Symbols,
		Trades:     run.Result.Trades,
		FinalValue: run.Result.FinalValue,
		Metrics:    run.Result.Metrics,
		Summary:    run.Result.Summary,
	}
}
