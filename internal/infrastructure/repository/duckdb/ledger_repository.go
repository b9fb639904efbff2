package duckdb

import (
	"context"
	"database/sql"

	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/domain/ledger"
	qb "github.com/courtsight/atp-ingest/internal/platform/querybuilder"
)

// LedgerRepository persists load completions. One row per source URI, written
// after the rows land; the primary key rejects duplicates.
type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) Has(ctx context.Context, sourceURI string) (bool, error) {
	query, args, err := qb.Select("source_uri").
		From(ledgerTable).
		Where(qb.Eq("source_uri", sourceURI)).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build ledger lookup")
	}

	var found string
	if err := r.store.db.GetContext(ctx, &found, query, args...); err != nil {
		if crerr.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, crerr.Wrapf(err, "query ledger for %q", sourceURI)
	}
	return true, nil
}

func (r *LedgerRepository) Record(ctx context.Context, entry ledger.Entry) error {
	query, args, err := qb.InsertModel(ledgerTable, entry, "")
	if err != nil {
		return crerr.Wrap(err, "build ledger insert")
	}
	if _, err := r.store.db.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "record ledger entry for %q", entry.SourceURI)
	}
	return nil
}

func (r *LedgerRepository) List(ctx context.Context) ([]ledger.Entry, error) {
	query, _, err := qb.Select("source_uri", "endpoint", "target_table", "rows_loaded", "loaded_at").
		From(ledgerTable).
		OrderBy("loaded_at", "source_uri").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build ledger listing")
	}

	var entries []ledger.Entry
	if err := r.store.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, crerr.Wrap(err, "list ledger entries")
	}
	return entries, nil
}
