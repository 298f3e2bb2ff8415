package store

import (
	"context"
	"time"

	perr "umbra/internal/platform/errors"
	chx "umbra/internal/platform/store/ch"
	"umbra/internal/platform/store/pg"
)

// openPG dials the pool and waits for the server before handing out the adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:         cfg.PG.URL,
		MaxConns:    cfg.PG.MaxConns,
		SlowMs:      cfg.PG.SlowQueryMs,
		AppName:     cfg.AppName,
		IdleTimeout: cfg.PG.IdleTimeout,
	}, tracer)
	if err != nil {
		return nil, err
	}

	// a database still starting up on the field laptop should not fail the boot
	attempts, timeout := cfg.PG.ConnectRetries, cfg.PG.PingTimeout
	if attempts <= 0 {
		attempts = 20
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	var lastErr error
	wait := 150 * time.Millisecond
	for i := 1; i <= attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = p.Pool.Ping(pctx)
		cancel()
		if lastErr == nil {
			return newPGAdapter(p), nil
		}
		s.Log.Debug().Int("attempt", i).Err(lastErr).Msg("postgres not ready")

		select {
		case <-ctx.Done():
			p.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait = min(2*wait, 2*time.Second)
	}
	p.Close()
	return nil, perr.Wrapf(lastErr, perr.ErrorCodeUnavailable, "postgres ping failed after %d attempts", attempts)
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.CH.ClientName, Tag: cfg.CH.ClientTag})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c), nil
}
