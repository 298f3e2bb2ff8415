package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/modkit/repokit"
	"umbra/internal/platform/store"
	"umbra/internal/services/audit/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// fakeTx runs fn with itself as the queryer and records whether fn failed
type fakeTx struct {
	store.TxRunner
	txs        int
	rolledBack int
}

func (f *fakeTx) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	f.txs++
	err := fn(f)
	if err != nil {
		f.rolledBack++
	}
	return err
}

type fakeRepo struct {
	domain.ShotsRepo
	runs     []*time.Time
	shots    []int
	shotsErr error
}

func (r *fakeRepo) UpsertRun(_ context.Context, _ shoot.RunInfo, fin *time.Time, _ int) error {
	r.runs = append(r.runs, fin)
	return nil
}

func (r *fakeRepo) UpsertShots(_ context.Context, _ string, recs []shoot.Record) error {
	r.shots = append(r.shots, len(recs))
	return r.shotsErr
}

func TestPGSink_FlushAndFinal(t *testing.T) {
	tx := &fakeTx{}
	fr := &fakeRepo{}
	end := time.Date(2026, 8, 12, 19, 0, 0, 0, time.UTC)
	clk := clock.NewManual(end)
	s := NewPG(tx, repokit.BindFunc[domain.ShotsRepo](func(repokit.Queryer) domain.ShotsRepo { return fr }), clk)

	ctx := context.Background()
	if err := s.Flush(ctx, run, recs(3)); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Import(ctx, run, recs(4)); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if tx.txs != 2 || len(fr.runs) != 2 {
		t.Fatalf("txs=%d runs=%d", tx.txs, len(fr.runs))
	}
	if fr.runs[0] != nil {
		t.Fatalf("a flush must not mark the run finished")
	}
	if fr.runs[1] == nil || !fr.runs[1].Equal(end) {
		t.Fatalf("final should stamp the clock time, got %v", fr.runs[1])
	}
	if fr.shots[0] != 3 || fr.shots[1] != 4 {
		t.Fatalf("shots = %v", fr.shots)
	}

	fr.shotsErr = errors.New("deadlock")
	if err := s.Final(ctx, run, recs(1)); err == nil || tx.rolledBack != 1 {
		t.Fatalf("failure should roll back: err=%v rolledBack=%d", err, tx.rolledBack)
	}
}
