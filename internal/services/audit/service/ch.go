package service

import (
	"context"

	"umbra/internal/services/audit/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// CHSink sends the final log to clickhouse; flushes are ignored since rows are append only there
type CHSink struct {
	repo domain.ColumnarRepo
}

// NewCH builds the clickhouse sink
func NewCH(repo domain.ColumnarRepo) *CHSink { return &CHSink{repo: repo} }

// Flush implements domain.Sink
func (s *CHSink) Flush(context.Context, shoot.RunInfo, []shoot.Record) error { return nil }

// Final implements domain.Sink
func (s *CHSink) Final(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	return s.repo.InsertShots(ctx, run, recs)
}
