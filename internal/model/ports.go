package model

import "context"

// Querier is the data-store collaborator. Source names a table (or view)
// the collaborator resolves; the result is fully materialised and ordered
// as the FilterSpec asks. One call is one blocking round trip.
type Querier interface {
	Query(ctx context.Context, source string, spec FilterSpec) (Table, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, source string, spec FilterSpec) (Table, error)

func (f QuerierFunc) Query(ctx context.Context, source string, spec FilterSpec) (Table, error) {
	return f(ctx, source, spec)
}
