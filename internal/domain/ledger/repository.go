package ledger

import "context"

type Repository interface {
	Has(ctx context.Context, sourceURI string) (bool, error)
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
}
