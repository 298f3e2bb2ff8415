package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"umbra/internal/core/clock"
	perr "umbra/internal/platform/errors"
)

var t0 = time.Date(2026, 8, 12, 17, 0, 0, 0, time.UTC)

func TestCaptureTakesOverheadPlusExposure(t *testing.T) {
	clk := clock.NewManual(t0)
	cam := New(Options{Overhead: 0.5, Sleeper: clk})
	ctx := context.Background()

	if err := cam.SetISO(ctx, 400); err != nil {
		t.Fatalf("SetISO: %v", err)
	}
	if err := cam.SetExposure(ctx, 0.25); err != nil {
		t.Fatalf("SetExposure: %v", err)
	}
	if err := cam.CaptureImage(ctx); err != nil {
		t.Fatalf("CaptureImage: %v", err)
	}
	if got := clk.Now().Sub(t0); got != 650*time.Millisecond {
		t.Fatalf("capture took %v, want 650ms", got)
	}
	shots := cam.Shots()
	if len(shots) != 1 || shots[0] != (Settings{ISO: 400, Exposure: 0.25}) {
		t.Fatalf("shots = %+v", shots)
	}
}

func TestDefaultsAndClamp(t *testing.T) {
	cam := New(Options{})
	if cam.Duration(0.001) != 2901*time.Millisecond {
		t.Fatalf("default duration = %v", cam.Duration(0.001))
	}
	tiny := New(Options{Overhead: 0.05})
	if tiny.Duration(0.01) != 0 {
		t.Fatalf("negative capture time should clamp to zero, got %v", tiny.Duration(0.01))
	}
}

func TestRejectsBadSettings(t *testing.T) {
	cam := New(Options{Sleeper: clock.NewManual(t0)})
	ctx := context.Background()
	if !perr.IsCode(cam.SetISO(ctx, 0), perr.ErrorCodeInvalidArgument) {
		t.Fatalf("zero iso accepted")
	}
	if !perr.IsCode(cam.SetExposure(ctx, -1), perr.ErrorCodeInvalidArgument) {
		t.Fatalf("negative exposure accepted")
	}
	if !perr.IsCode(cam.CaptureImage(ctx), perr.ErrorCodeDevice) {
		t.Fatalf("capture without settings should be a device error")
	}
}

func TestInjectedFailure(t *testing.T) {
	boom := errors.New("mirror lockup")
	cam := New(Options{Sleeper: clock.NewManual(t0), Fail: func(n int) error {
		if n == 2 {
			return boom
		}
		return nil
	}})
	ctx := context.Background()
	_ = cam.SetISO(ctx, 100)
	_ = cam.SetExposure(ctx, 0.01)

	if err := cam.CaptureImage(ctx); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	err := cam.CaptureImage(ctx)
	if !errors.Is(err, boom) || !perr.IsCode(err, perr.ErrorCodeDevice) {
		t.Fatalf("second capture err = %v", err)
	}
	if len(cam.Shots()) != 1 {
		t.Fatalf("failed capture must not be recorded")
	}
}

func TestCanceledSleepIsReturned(t *testing.T) {
	cam := New(Options{Sleeper: clock.NewManual(t0)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = cam.SetISO(ctx, 100)
	_ = cam.SetExposure(ctx, 0.01)
	if err := cam.CaptureImage(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
