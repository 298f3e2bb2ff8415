package service

import (
	"context"
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/modkit/repokit"
	"umbra/internal/services/audit/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// PGSink upserts the run and its shots in one transaction per write
type PGSink struct {
	tx     repokit.TxRunner
	binder repokit.Binder[domain.ShotsRepo]
	clk    clock.Clock
}

// NewPG builds the postgres sink
func NewPG(tx repokit.TxRunner, binder repokit.Binder[domain.ShotsRepo], clk clock.Clock) *PGSink {
	return &PGSink{tx: tx, binder: binder, clk: clk}
}

// Flush implements domain.Sink
func (s *PGSink) Flush(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	return s.write(ctx, run, recs, nil)
}

// Final implements domain.Sink and stamps the run as finished
func (s *PGSink) Final(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	now := s.clk.Now()
	return s.write(ctx, run, recs, &now)
}

// Import implements domain.ImporterPort
func (s *PGSink) Import(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	return s.Final(ctx, run, recs)
}

func (s *PGSink) write(ctx context.Context, run shoot.RunInfo, recs []shoot.Record, finished *time.Time) error {
	return repokit.WithTx(ctx, s.tx, func(q repokit.Queryer) error {
		r := repokit.MustBind(s.binder, q)
		if err := r.UpsertRun(ctx, run, finished, len(recs)); err != nil {
			return err
		}
		return r.UpsertShots(ctx, run.ID, recs)
	})
}
