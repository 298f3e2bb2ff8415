// Package store opens the optional audit backends: postgres for the run history and
// clickhouse for drift analytics. Either one, both or neither may be configured
package store

import (
	"context"
	"errors"
	"fmt"

	"umbra/internal/platform/logger"
)

// Store holds whichever backends Open enabled; the zero value has none
type Store struct {
	Log logger.Logger

	// PG is nil unless SERVICE_PGSQL_DBURL is set
	PG TxRunner
	// CH is nil unless SERVICE_CLICKHOUSE_DBURL is set
	CH Clickhouse
}

// Row is what a single row result needs
type Row interface {
	Scan(dest ...any) error
}

// Rows is a forward only result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what an Exec touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the sql surface the repos see, pool and tx alike
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can also open a transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse takes batched inserts, rows in table column order
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Option configures Open
type Option func(*Store) error

// WithLogger hands the backends a logger, the default discards
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// Open connects the backends enabled in cfg, in order pg then ch
// a failure closes what was already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("component", "store").Logger()

	if cfg.PG.Enabled {
		pg, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = pg
	}
	if cfg.CH.Enabled {
		ch, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.CH = ch
	}
	return s, nil
}

// Guard pings every backend that supports it and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, b := range []struct {
		name string
		seam any
	}{{"pg", s.PG}, {"ch", s.CH}} {
		p, ok := b.seam.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases clickhouse then postgres, nil backends are skipped
func (s *Store) Close(context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
