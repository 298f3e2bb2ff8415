// Package repo provides the audit repositories
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"umbra/internal/core/plan"
	"umbra/internal/modkit/repokit"
	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/store"
	ptime "umbra/internal/platform/time"
	"umbra/internal/services/audit/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// Schema creates the postgres tables, safe to run on every boot
const Schema = `
CREATE TABLE IF NOT EXISTS audit_runs (
	run_id     text PRIMARY KEY,
	mode       text NOT NULL,
	started    timestamptz NOT NULL,
	finished   timestamptz,
	shots      integer NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS audit_shots (
	run_id       text NOT NULL REFERENCES audit_runs (run_id) ON DELETE CASCADE,
	seq          integer NOT NULL,
	phase        text NOT NULL,
	start        timestamptz NOT NULL,
	stop         timestamptz NOT NULL,
	exposure     double precision NOT NULL,
	iso          double precision NOT NULL,
	actual_start timestamptz,
	actual_stop  timestamptz,
	done         boolean NOT NULL,
	drift        double precision NOT NULL,
	status       text NOT NULL,
	error        text NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);`

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[domain.ShotsRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.ShotsRepo { return &pg{q: q} }

// EnsureSchema applies Schema
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, Schema)
	return perr.FromPostgres(err, "audit schema")
}

// UpsertRun implements domain.ShotsRepo
func (s *pg) UpsertRun(ctx context.Context, run shoot.RunInfo, finished *time.Time, shots int) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO audit_runs (run_id, mode, started, finished, shots)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE
		SET finished = COALESCE(EXCLUDED.finished, audit_runs.finished), shots = EXCLUDED.shots`,
		run.ID, run.Mode, run.Started, finished, shots)
	return perr.FromPostgresf(err, "upsert run %s", run.ID)
}

const (
	shotCols = 13
	// keeps one statement under the 65535 bind parameter limit
	maxShotsPerStmt = 2000
)

// UpsertShots implements domain.ShotsRepo
// a flush rewrites rows it already wrote, only status fields can change
func (s *pg) UpsertShots(ctx context.Context, runID string, recs []shoot.Record) error {
	for len(recs) > maxShotsPerStmt {
		if err := s.upsertShots(ctx, runID, recs[:maxShotsPerStmt]); err != nil {
			return err
		}
		recs = recs[maxShotsPerStmt:]
	}
	return s.upsertShots(ctx, runID, recs)
}

func (s *pg) upsertShots(ctx context.Context, runID string, recs []shoot.Record) error {
	if len(recs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO audit_shots
		(run_id, seq, phase, start, stop, exposure, iso, actual_start, actual_stop, done, drift, status, error) VALUES `)

	args := make([]any, 0, len(recs)*shotCols)
	for i, r := range recs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j := 0; j < shotCols; j++ {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", i*shotCols+j+1)
		}
		sb.WriteByte(')')
		args = append(args,
			runID, r.Seq, string(r.Phase), r.Start, r.Stop, r.Exposure, r.ISO,
			ptime.Ptr(r.ActualStart), ptime.Ptr(r.ActualStop), r.Done, r.Drift, string(r.Status), r.Err,
		)
	}
	sb.WriteString(` ON CONFLICT (run_id, seq) DO UPDATE SET
		actual_start = EXCLUDED.actual_start, actual_stop = EXCLUDED.actual_stop,
		done = EXCLUDED.done, drift = EXCLUDED.drift, status = EXCLUDED.status, error = EXCLUDED.error`)

	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgresf(err, "upsert %d shots", len(recs))
}

// ListShots implements domain.ShotsRepo
func (s *pg) ListShots(ctx context.Context, runID string) ([]shoot.Record, error) {
	out, err := store.Many(ctx, s.q, scanShot, `
		SELECT seq, phase, start, stop, exposure, iso, actual_start, actual_stop, done, drift, status, error
		FROM audit_shots WHERE run_id = $1 ORDER BY seq`, runID)
	return out, perr.FromPostgresf(err, "list shots %s", runID)
}

// ListRuns implements domain.ShotsRepo, newest first
func (s *pg) ListRuns(ctx context.Context, limit int) ([]domain.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := store.Many(ctx, s.q, func(r store.Row) (domain.RunRow, error) {
		var x domain.RunRow
		err := r.Scan(&x.ID, &x.Mode, &x.Started, &x.Finished, &x.Shots)
		return x, err
	}, `SELECT run_id, mode, started, finished, shots FROM audit_runs ORDER BY started DESC LIMIT $1`, limit)
	return out, perr.FromPostgres(err, "list runs")
}

func scanShot(row store.Row) (shoot.Record, error) {
	var (
		r                 shoot.Record
		phase, status     string
		actStart, actStop *time.Time
	)
	err := row.Scan(&r.Seq, &phase, &r.Start, &r.Stop, &r.Exposure, &r.ISO,
		&actStart, &actStop, &r.Done, &r.Drift, &status, &r.Err)
	if err != nil {
		return r, err
	}
	r.Phase, r.Status = plan.Phase(phase), shoot.Status(status)
	r.Start, r.Stop = r.Start.UTC(), r.Stop.UTC()
	if actStart != nil {
		r.ActualStart = actStart.UTC()
	}
	if actStop != nil {
		r.ActualStop = actStop.UTC()
	}
	return r, nil
}
