// Package duckdb owns the warehouse connection, the ingest ledger, and the
// schema-on-read loader that materializes staged JSON files into tables.
package duckdb

import (
	"context"

	crerr "github.com/cockroachdb/errors"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
)

const ledgerTable = "ingest_ledger"

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS ingest_ledger (
	source_uri   TEXT PRIMARY KEY,
	endpoint     TEXT,
	target_table TEXT,
	rows_loaded  INTEGER,
	loaded_at    TIMESTAMP
)`

// Store wraps one DuckDB database file (or :memory:).
type Store struct {
	db *sqlx.DB
}

// Open connects to the warehouse and ensures the ledger table exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("duckdb", path)
	if err != nil {
		return nil, crerr.Wrapf(err, "open warehouse %q", path)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, crerr.Wrapf(err, "ping warehouse %q", path)
	}
	if _, err := db.ExecContext(ctx, ledgerDDL); err != nil {
		db.Close()
		return nil, crerr.Wrap(err, "create ledger table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
