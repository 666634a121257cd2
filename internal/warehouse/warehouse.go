// Package warehouse implements the read-only status queries over the
// workflow warehouse. Two tables back the queries: workflow_run_instance
// (one row per workflow run of a dataset) and task_instance (one row per
// task within a run, joined on run id).
//
// Every query filters on business date or run id and carries a row limit;
// nothing here ever scans unbounded.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/batchwatch-poc/server/internal/agent/model"
	errx "github.com/batchwatch-poc/server/internal/core/error"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

const defaultQueryLimit = 500

// Store executes warehouse queries against a SQL database.
type Store struct {
	db    *sql.DB
	limit int
}

// Open connects to the warehouse database. The DSN points at a SQLite
// database file (or ":memory:" for tests and local runs).
func Open(cfg model.WarehouseConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errx.WrapWarehouse(err)
	}
	limit := cfg.QueryLimit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}
	logx.Info().Str("dsn", cfg.DSN).Int("query_limit", limit).Msg("Warehouse opened")
	return &Store{db: db, limit: limit}, nil
}

// NewStore wraps an already-open database handle. Tests use this with an
// in-memory SQLite database.
func NewStore(db *sql.DB, limit int) *Store {
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}
	return &Store{db: db, limit: limit}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the warehouse tables when they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS workflow_run_instance (
    workflow_run_instance_key INTEGER PRIMARY KEY AUTOINCREMENT,
    dag_run_id        TEXT NOT NULL,
    output_dataset_id TEXT NOT NULL,
    status            TEXT NOT NULL,
    trigger_type      TEXT NOT NULL DEFAULT 'ProcessTrigger',
    business_date     TEXT NOT NULL,
    created_date      TEXT,
    updated_date      TEXT
);
CREATE INDEX IF NOT EXISTS idx_wri_business_date
    ON workflow_run_instance (business_date, output_dataset_id);

CREATE TABLE IF NOT EXISTS task_instance (
    task_id    TEXT NOT NULL,
    dag_id     TEXT,
    run_id     TEXT NOT NULL,
    state      TEXT NOT NULL,
    duration   REAL,
    start_date TEXT,
    end_date   TEXT,
    try_number INTEGER DEFAULT 1,
    operator   TEXT
);
CREATE INDEX IF NOT EXISTS idx_ti_run_id ON task_instance (run_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errx.WrapWarehouse(fmt.Errorf("init schema: %w", err))
	}
	return nil
}
