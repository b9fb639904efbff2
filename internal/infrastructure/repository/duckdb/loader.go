package duckdb

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/domain/ledger"
	qb "github.com/courtsight/atp-ingest/internal/platform/querybuilder"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

// Loader performs schema-on-read loads of staged JSON files, gated by the
// ledger. A URI already present in the ledger is never touched again; the
// ledger row is written only after the rows land, so any failure leaves the
// URI retryable.
type Loader struct {
	store  *Store
	ledger ledger.Repository
	logger *logging.Logger
}

func NewLoader(store *Store, ledgerRepo ledger.Repository, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{store: store, ledger: ledgerRepo, logger: logger}
}

// Load ingests one staged file into targetTable. Returns the number of rows
// loaded, or 0 when the ledger already has the URI.
func (l *Loader) Load(ctx context.Context, sourceURI, endpoint, targetTable string) (int, error) {
	seen, err := l.ledger.Has(ctx, sourceURI)
	if err != nil {
		return 0, err
	}
	if seen {
		l.logger.InfoContext(ctx, "source already loaded, skipping", "uri", sourceURI, "table", targetTable)
		return 0, nil
	}

	exists, err := l.tableExists(ctx, targetTable)
	if err != nil {
		return 0, err
	}

	// read_json_auto does not accept bind parameters, so the path is inlined
	// as an escaped literal.
	source := "SELECT *, " + qb.QuoteLiteral(sourceURI) + " AS _source_file, now() AS _loaded_at" +
		" FROM read_json_auto(" + qb.QuoteLiteral(sourceURI) + ")"

	var stmt string
	if exists {
		stmt = "INSERT INTO " + qb.QuoteIdent(targetTable) + " BY NAME " + source
	} else {
		stmt = "CREATE TABLE " + qb.QuoteIdent(targetTable) + " AS " + source
	}
	if _, err := l.store.db.ExecContext(ctx, stmt); err != nil {
		return 0, crerr.Wrapf(err, "load %q into %q", sourceURI, targetTable)
	}

	rows, err := l.countLoadedRows(ctx, targetTable, sourceURI)
	if err != nil {
		return 0, err
	}

	if err := l.ledger.Record(ctx, ledger.Entry{
		SourceURI:   sourceURI,
		Endpoint:    endpoint,
		TargetTable: targetTable,
		RowsLoaded:  rows,
		LoadedAt:    time.Now().UTC(),
	}); err != nil {
		return 0, err
	}

	l.logger.InfoContext(ctx, "loaded source file",
		"uri", sourceURI,
		"table", targetTable,
		"rows", rows,
	)
	return rows, nil
}

// Entries reports everything the ledger has recorded, for run reports.
func (l *Loader) Entries(ctx context.Context) ([]ledger.Entry, error) {
	return l.ledger.List(ctx)
}

func (l *Loader) tableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := l.store.db.GetContext(ctx, &count,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = $1", table)
	if err != nil {
		return false, crerr.Wrapf(err, "check table %q", table)
	}
	return count > 0, nil
}

func (l *Loader) countLoadedRows(ctx context.Context, table, sourceURI string) (int, error) {
	var count int
	err := l.store.db.GetContext(ctx, &count,
		"SELECT count(*) FROM "+qb.QuoteIdent(table)+" WHERE _source_file = $1", sourceURI)
	if err != nil {
		return 0, crerr.Wrapf(err, "count rows from %q", sourceURI)
	}
	return count, nil
}
