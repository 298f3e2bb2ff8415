// Package pg opens the pgx pool behind the audit history and traces its statements
package pg

import (
	"context"
	"time"

	perr "umbra/internal/platform/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the subset of pgxpool settings umbra exposes
type Config struct {
	URL      string
	MaxConns int32
	// SlowMs flags statements at or above it, negative disables
	SlowMs int
	// AppName shows up in pg_stat_activity
	AppName string
	// IdleTimeout closes pooled conns unused for this long, zero keeps pgx's default
	IdleTimeout time.Duration
}

// PG owns the pool and the tracer every adapter reports to
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

// seam for tests
var newPool = pgxpool.NewWithConfig

// Open builds the pool; pgx connects lazily, so this succeeds without a server
func Open(ctx context.Context, cfg Config, tracer QueryTracer) (*PG, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "postgres dsn")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.IdleTimeout > 0 {
		pc.MaxConnIdleTime = cfg.IdleTimeout
	}
	if cfg.AppName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}

	pool, err := newPool(ctx, pc)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "postgres pool")
	}
	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

// Close is safe on a nil PG
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
