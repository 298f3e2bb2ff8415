package store

import (
	"context"
	"errors"

	"umbra/internal/platform/store/ch"
)

// chClient is the part of *ch.CH the store uses
type chClient interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// chAdapter only converts the Rows type, the rest passes through
type chAdapter struct{ chClient }

var _ Clickhouse = chAdapter{}

func newCHAdapter(c chClient) Clickhouse { return chAdapter{c} }

func (a chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.chClient.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{r}, nil
}

func (a chAdapter) Ping(ctx context.Context) error {
	if a.chClient == nil {
		return errors.New("store: nil clickhouse client")
	}
	return a.chClient.Ping(ctx)
}

// chRows drops the error from Close, store.Rows has none
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
