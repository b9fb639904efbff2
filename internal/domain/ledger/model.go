package ledger

import "time"

// Entry records one completed file load. Entries are append-only: one row per
// source URI, written after the rows land, never updated or deleted.
type Entry struct {
	SourceURI   string    `db:"source_uri"`
	Endpoint    string    `db:"endpoint"`
	TargetTable string    `db:"target_table"`
	RowsLoaded  int       `db:"rows_loaded"`
	LoadedAt    time.Time `db:"loaded_at"`
}
