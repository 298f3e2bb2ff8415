// Package domain holds the audit log codec and the ports the sinks talk to
package domain

import (
	"context"
	"time"

	shoot "umbra/internal/services/shooter/domain"
)

// Sink is one destination of the audit log
type Sink = shoot.LogSink

// RunRow is a run as persisted in SQL
type RunRow struct {
	shoot.RunInfo
	Finished *time.Time
	Shots    int
}

// ShotsRepo persists runs and their records in Postgres
type ShotsRepo interface {
	UpsertRun(ctx context.Context, run shoot.RunInfo, finished *time.Time, shots int) error
	UpsertShots(ctx context.Context, runID string, recs []shoot.Record) error
	ListShots(ctx context.Context, runID string) ([]shoot.Record, error)
	ListRuns(ctx context.Context, limit int) ([]RunRow, error)
}

// ColumnarRepo appends final records to ClickHouse
type ColumnarRepo interface {
	InsertShots(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error
}

// ImporterPort loads an existing log into Postgres
type ImporterPort interface {
	Import(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error
}
