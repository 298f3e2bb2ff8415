package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"umbra/internal/platform/logger"

	"github.com/rs/zerolog"
)

type logLine struct {
	Level     string  `json:"level"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Slow      bool    `json:"slow"`
	SQL       string  `json:"sql"`
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	Component string  `json:"component"`
	RunID     string  `json:"run_id"`
}

func emit(t *testing.T, ctx context.Context, ev QueryEvent) logLine {
	t.Helper()
	var buf bytes.Buffer
	Tracer(zerolog.New(&buf)).OnQuery(ctx, ev)
	var line logLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("unmarshal: %v\nraw=%s", err, buf.String())
	}
	return line
}

func TestTracer_Levels(t *testing.T) {
	t.Parallel()

	ev := QueryEvent{SQL: "SELECT  *\n\tFROM audit_shots\r\n WHERE run_id = $1", Args: []any{"run"}, ElapsedUS: 12345}

	line := emit(t, context.Background(), ev)
	if line.Level != "debug" || line.Message != "pg query" || line.Component != "pg" {
		t.Fatalf("unexpected line %+v", line)
	}
	if math.Abs(line.ElapsedMS-12.345) > 0.0005 {
		t.Fatalf("elapsed_ms = %v", line.ElapsedMS)
	}
	if line.SQL != "SELECT * FROM audit_shots WHERE run_id = $1" {
		t.Fatalf("sql = %q", line.SQL)
	}

	ev.Slow = true
	if line = emit(t, context.Background(), ev); line.Level != "warn" || !line.Slow {
		t.Fatalf("slow query should warn: %+v", line)
	}

	ev.Err = errors.New("boom")
	if line = emit(t, context.Background(), ev); line.Level != "error" || line.Error != "boom" {
		t.Fatalf("failed query should log error: %+v", line)
	}
}

func TestTracer_CarriesRunID(t *testing.T) {
	t.Parallel()

	ctx := logger.WithRun(context.Background(), "run-1", "lazy")
	if line := emit(t, ctx, QueryEvent{SQL: "SELECT 1"}); line.RunID != "run-1" {
		t.Fatalf("run_id = %q", line.RunID)
	}
}
