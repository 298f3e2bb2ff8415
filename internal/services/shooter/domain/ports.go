package domain

import (
	"context"

	"umbra/internal/core/plan"
)

// Camera is the capture device. CaptureImage blocks until the image is stored.
type Camera interface {
	SetISO(ctx context.Context, iso float64) error
	SetExposure(ctx context.Context, seconds float64) error
	CaptureImage(ctx context.Context) error
}

// Source is the ordered shot stream consumed by the loop
type Source interface {
	Next() (plan.Shot, bool)
}

// SkipNotifier is implemented by sources that drop late shots (precomputed mode)
type SkipNotifier interface {
	OnSkip(fn func(plan.Skip))
}

// LogSink persists the audit log. Flush may overwrite the previous flush; Final is the complete log.
type LogSink interface {
	Flush(ctx context.Context, run RunInfo, recs []Record) error
	Final(ctx context.Context, run RunInfo, recs []Record) error
}

// Observer receives run events. Implementations must not block.
type Observer interface {
	Observe(ev Event)
}

// RunnerPort executes a shot stream against the camera
type RunnerPort interface {
	Run(ctx context.Context, src Source) (Summary, error)
}

// StatePort exposes the live run state and the last flushed log
type StatePort interface {
	State() RunState
	Records() []Record
}
