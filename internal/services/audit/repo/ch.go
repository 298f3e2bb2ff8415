package repo

import (
	"context"

	"umbra/internal/platform/store"
	ptime "umbra/internal/platform/time"
	shoot "umbra/internal/services/shooter/domain"
)

// CHTable is the default clickhouse table for final logs
const CHTable = "audit_shots"

// CHSchema is the clickhouse DDL for CHTable
const CHSchema = `
CREATE TABLE IF NOT EXISTS audit_shots (
	run_id       String,
	mode         LowCardinality(String),
	seq          UInt32,
	phase        LowCardinality(String),
	start        DateTime64(6, 'UTC'),
	stop         DateTime64(6, 'UTC'),
	exposure     Float64,
	iso          Float64,
	actual_start Nullable(DateTime64(6, 'UTC')),
	actual_stop  Nullable(DateTime64(6, 'UTC')),
	done         Bool,
	drift        Float64,
	status       LowCardinality(String),
	error        String
) ENGINE = MergeTree
ORDER BY (run_id, seq)`

// Columnar writes final logs to clickhouse
type Columnar struct {
	ch    store.Clickhouse
	table string
}

// NewCH binds the columnar repo to a clickhouse seam; empty table means CHTable
func NewCH(ch store.Clickhouse, table string) *Columnar {
	if table == "" {
		table = CHTable
	}
	return &Columnar{ch: ch, table: table}
}

// EnsureSchema creates CHTable when the default table is used
func (c *Columnar) EnsureSchema(ctx context.Context) error {
	if c.table != CHTable {
		return nil
	}
	return c.ch.Exec(ctx, CHSchema)
}

// InsertShots implements domain.ColumnarRepo
func (c *Columnar) InsertShots(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			// nil *time.Time lands as NULL
			run.ID, run.Mode, uint32(r.Seq), string(r.Phase), r.Start, r.Stop, r.Exposure, r.ISO,
			ptime.Ptr(r.ActualStart), ptime.Ptr(r.ActualStop), r.Done, r.Drift, string(r.Status), r.Err,
		})
	}
	return c.ch.Insert(ctx, c.table, rows)
}
