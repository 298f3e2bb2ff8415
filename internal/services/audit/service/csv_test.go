package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"umbra/internal/core/plan"
	perr "umbra/internal/platform/errors"
	shoot "umbra/internal/services/shooter/domain"
)

var run = shoot.RunInfo{ID: "run-1", Mode: "lazy", Started: time.Date(2026, 8, 12, 16, 30, 0, 0, time.UTC)}

func recs(n int) []shoot.Record {
	out := make([]shoot.Record, n)
	for i := range out {
		start := run.Started.Add(time.Duration(i) * time.Minute)
		out[i] = shoot.Record{
			Shot:   plan.Shot{Seq: i + 1, Phase: plan.Partial1, Start: start, Stop: start.Add(3 * time.Second), Exposure: 0.002, ISO: 100},
			Done:   true,
			Status: shoot.StatusDone,
		}
	}
	return out
}

func TestCSVSink_OverwritesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	s := NewCSV(dir)
	ctx := context.Background()

	if err := s.Flush(ctx, run, recs(2)); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Final(ctx, run, recs(5)); err != nil {
		t.Fatalf("Final: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "umbra_run-1_20260812T163000Z.csv" {
		t.Fatalf("expected one log and no temp files, got %v", entries)
	}

	got, rs, err := ReadFile(s.Path(run))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.ID != "run-1" || !got.Started.Equal(run.Started) || len(rs) != 5 {
		t.Fatalf("run=%+v records=%d", got, len(rs))
	}
}

func TestCSVSink_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewCSV(filepath.Join(blocker, "sub")).Final(context.Background(), run, recs(1))
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestReadFile_Errors(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv")); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing: %v", err)
	}
	p := filepath.Join(t.TempDir(), "garbage.csv")
	_ = os.WriteFile(p, []byte("hello\n"), 0o644)
	if _, _, err := ReadFile(p); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("garbage: %v", err)
	}
}
