package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/core/plan"
	perr "umbra/internal/platform/errors"
	kit "umbra/internal/platform/testkit"
	dom "umbra/internal/services/shooter/domain"
)

var t0 = time.Date(2026, 8, 12, 17, 0, 0, 0, time.UTC)

func at(s float64) time.Time { return t0.Add(time.Duration(s * float64(time.Second))) }

type fakeCam struct {
	clk      *clock.Manual
	busy     time.Duration
	failSeq  map[int]bool
	shots    int
	iso, exp float64
	calls    []float64
}

func (c *fakeCam) SetISO(_ context.Context, iso float64) error { c.iso = iso; return nil }

func (c *fakeCam) SetExposure(_ context.Context, s float64) error { c.exp = s; return nil }

func (c *fakeCam) CaptureImage(ctx context.Context) error {
	c.shots++
	c.calls = append(c.calls, c.exp)
	c.clk.Advance(c.busy)
	if c.failSeq[c.shots] {
		return errors.New("camera busy")
	}
	return ctx.Err()
}

type fakeSink struct {
	mu      sync.Mutex
	flushes [][]dom.Record
	final   []dom.Record
	finals  int
	run     dom.RunInfo
	failAll bool
}

func (s *fakeSink) Flush(_ context.Context, run dom.RunInfo, recs []dom.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("disk full")
	}
	s.flushes = append(s.flushes, recs)
	s.run = run
	return nil
}

func (s *fakeSink) Final(ctx context.Context, run dom.RunInfo, recs []dom.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.final = recs
	s.finals++
	s.run = run
	return nil
}

type sliceSource struct {
	shots []plan.Shot
	i     int
}

func (s *sliceSource) Next() (plan.Shot, bool) {
	if s.i >= len(s.shots) {
		return plan.Shot{}, false
	}
	s.i++
	return s.shots[s.i-1], true
}

type eventLog struct{ kinds []dom.EventKind }

func (e *eventLog) Observe(ev dom.Event) { e.kinds = append(e.kinds, ev.Kind) }

func shots(starts ...float64) []plan.Shot {
	out := make([]plan.Shot, len(starts))
	for i, s := range starts {
		out[i] = plan.Shot{Seq: i + 1, Phase: plan.Partial1, Start: at(s), Stop: at(s + 0.6), Exposure: 0.1, ISO: 100}
	}
	return out
}

func newSvc(clk *clock.Manual, cam dom.Camera, sink dom.LogSink, policy dom.CapturePolicy, opts ...Option) *Svc {
	opts = append([]Option{WithClock(clk, clk), WithRunID(func() string { return "run-1" })}, opts...)
	return New(cam, sink, Config{Mode: "lazy", OnCaptureError: policy}, opts...)
}

func TestRunOnScheduleHasZeroDrift(t *testing.T) {
	clk := clock.NewManual(at(0))
	cam := &fakeCam{clk: clk, busy: 500 * time.Millisecond}
	sink := &fakeSink{}
	ev := &eventLog{}
	svc := newSvc(clk, cam, sink, dom.PolicyAbort, WithObserver(ev))

	sum, err := svc.Run(context.Background(), &sliceSource{shots: shots(1, 3)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Done != 2 || sum.Failed != 0 || sum.Skipped != 0 || sum.ID != "run-1" || sum.Mode != "lazy" {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sink.final) != 2 || sink.finals != 1 {
		t.Fatalf("final log = %d records, %d writes", len(sink.final), sink.finals)
	}
	for _, r := range sink.final {
		if !r.Done || r.Status != dom.StatusDone {
			t.Fatalf("record not done: %+v", r)
		}
		kit.MustNear(t, r.Drift, 0, 1e-6, "drift")
		kit.MustTimeNear(t, r.ActualStop, r.ActualStart.Add(500*time.Millisecond), time.Microsecond, "actual stop")
	}
	if cam.iso != 100 || cam.exp != 0.1 {
		t.Fatalf("camera settings iso=%v exp=%v", cam.iso, cam.exp)
	}
	want := []dom.EventKind{dom.EventRunStarted, dom.EventWaiting, dom.EventShot, dom.EventWaiting, dom.EventShot, dom.EventRunFinished}
	if len(ev.kinds) != len(want) {
		t.Fatalf("events = %v", ev.kinds)
	}
	for i := range want {
		if ev.kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", ev.kinds, want)
		}
	}
}

func TestRunLateShotReportsDrift(t *testing.T) {
	clk := clock.NewManual(at(10.3))
	sink := &fakeSink{}
	svc := newSvc(clk, &fakeCam{clk: clk}, sink, dom.PolicyAbort)

	if _, err := svc.Run(context.Background(), &sliceSource{shots: shots(10)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	kit.MustNear(t, sink.final[0].Drift, 0.3, 1e-6, "drift of a shot fired 0.3s late")
}

func TestLongWaitFlushesOncePerWait(t *testing.T) {
	clk := clock.NewManual(at(0))
	var sleeps int
	clk.OnSleep = func(d time.Duration) {
		sleeps++
		if d > 100*time.Millisecond {
			t.Errorf("sleep of %v exceeds the poll interval", d)
		}
	}
	sink := &fakeSink{}
	svc := newSvc(clk, &fakeCam{clk: clk}, sink, dom.PolicyAbort)

	// 20s wait, then a 2s wait that must not flush
	if _, err := svc.Run(context.Background(), &sliceSource{shots: shots(20, 22)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.flushes) != 1 || len(sink.flushes[0]) != 0 {
		t.Fatalf("flushes = %v", sink.flushes)
	}
	if sleeps != 220 {
		t.Fatalf("sleeps = %d, want 220 increments of 100ms", sleeps)
	}
}

func TestFlushFailureDoesNotStopTheRun(t *testing.T) {
	clk := clock.NewManual(at(0))
	sink := &fakeSink{failAll: true}
	svc := newSvc(clk, &fakeCam{clk: clk}, sink, dom.PolicyAbort)
	sum, err := svc.Run(context.Background(), &sliceSource{shots: shots(30)})
	if err != nil || sum.Done != 1 {
		t.Fatalf("sum=%+v err=%v", sum, err)
	}
}

func TestCaptureErrorAbortsRun(t *testing.T) {
	clk := clock.NewManual(at(0))
	cam := &fakeCam{clk: clk, failSeq: map[int]bool{2: true}}
	sink := &fakeSink{}
	svc := newSvc(clk, cam, sink, dom.PolicyAbort)

	sum, err := svc.Run(context.Background(), &sliceSource{shots: shots(1, 2, 3)})
	if !perr.IsCode(err, perr.ErrorCodeDevice) {
		t.Fatalf("want device error, got %v", err)
	}
	if cam.shots != 2 {
		t.Fatalf("camera fired %d times after abort", cam.shots)
	}
	if len(sink.final) != 2 || sink.final[1].Status != dom.StatusFailed || sink.final[1].Err == "" || sink.final[1].Done {
		t.Fatalf("final log = %+v", sink.final)
	}
	if sum.Done != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if st := svc.State(); st.Running || st.Err == "" {
		t.Fatalf("state after abort = %+v", st)
	}
}

func TestCaptureErrorContinuePolicy(t *testing.T) {
	clk := clock.NewManual(at(0))
	cam := &fakeCam{clk: clk, failSeq: map[int]bool{2: true}}
	sink := &fakeSink{}
	svc := newSvc(clk, cam, sink, dom.PolicyContinue)

	sum, err := svc.Run(context.Background(), &sliceSource{shots: shots(1, 2, 3)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Done != 2 || sum.Failed != 1 || len(sink.final) != 3 {
		t.Fatalf("summary = %+v, final = %d", sum, len(sink.final))
	}
	if sink.final[1].Status != dom.StatusFailed || sink.final[2].Status != dom.StatusDone {
		t.Fatalf("statuses = %s %s", sink.final[1].Status, sink.final[2].Status)
	}
}

func TestCancelDuringWaitPersistsLog(t *testing.T) {
	clk := clock.NewManual(at(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := 0
	clk.OnSleep = func(time.Duration) {
		n++
		if n == 3 {
			cancel()
		}
	}
	cam := &fakeCam{clk: clk}
	sink := &fakeSink{}
	svc := newSvc(clk, cam, sink, dom.PolicyAbort)

	_, err := svc.Run(ctx, &sliceSource{shots: shots(1)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
	if cam.shots != 0 {
		t.Fatalf("camera fired after cancellation")
	}
	if sink.finals != 1 {
		t.Fatalf("final log not written on cancel")
	}
}

func TestPrecomputedSkipsAreLogged(t *testing.T) {
	clk := clock.NewManual(at(1.5))
	sink := &fakeSink{}
	svc := newSvc(clk, &fakeCam{clk: clk}, sink, dom.PolicyAbort)

	src := plan.NewPrecomputed(shots(1, 2), clk, 0)
	sum, err := svc.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.final) != 2 || sink.final[0].Status != dom.StatusSkipped || sink.final[1].Status != dom.StatusDone {
		t.Fatalf("final log = %+v", sink.final)
	}
	if sink.final[0].Done || !sink.final[0].ActualStart.IsZero() {
		t.Fatalf("skipped shot carries execution data: %+v", sink.final[0])
	}
	if sum.Skipped != 1 || src.Skipped() != 1 {
		t.Fatalf("skipped = %d / %d", sum.Skipped, src.Skipped())
	}
}

func TestStateAndRecordsAreSnapshots(t *testing.T) {
	clk := clock.NewManual(at(0))
	svc := newSvc(clk, &fakeCam{clk: clk}, nil, dom.PolicyAbort)
	if _, err := svc.Run(context.Background(), &sliceSource{shots: shots(1, 2)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	recs := svc.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}
	recs[0].Seq = 99
	if svc.Records()[0].Seq != 1 {
		t.Fatalf("Records must return a copy")
	}
	st := svc.State()
	st.Counts[dom.StatusDone] = 42
	if svc.State().Counts[dom.StatusDone] != 2 {
		t.Fatalf("State must return a copy")
	}
	if st.ID != "run-1" || st.Phase != plan.Partial1 {
		t.Fatalf("state = %+v", st)
	}
}

func TestSecondRunIsRejectedWhileBusy(t *testing.T) {
	clk := clock.NewManual(at(0))
	svc := newSvc(clk, &fakeCam{clk: clk}, nil, dom.PolicyAbort)
	svc.runMu.Lock()
	defer svc.runMu.Unlock()
	if _, err := svc.Run(context.Background(), &sliceSource{}); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}
