package service

import (
	"context"
	"errors"
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/core/plan"
	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/logger"
	ptime "umbra/internal/platform/time"
	dom "umbra/internal/services/shooter/domain"
)

// Run consumes src until it is exhausted, the context is canceled or, under the abort
// policy, a capture fails. The final log is persisted in every case.
func (s *Svc) Run(ctx context.Context, src dom.Source) (dom.Summary, error) {
	if !s.runMu.TryLock() {
		return dom.Summary{}, perr.Newf(perr.ErrorCodeUnavailable, "shooter: a run is already in progress")
	}
	defer s.runMu.Unlock()

	run := dom.RunInfo{ID: s.newID(), Mode: s.cfg.Mode, Started: s.clk.Now()}
	ctx = logger.WithRun(ctx, run.ID, run.Mode)
	log := logger.C(ctx)

	var recs []dom.Record
	if sn, ok := src.(dom.SkipNotifier); ok {
		sn.OnSkip(func(sk plan.Skip) {
			log.Warn().Int("seq", sk.Shot.Seq).Str("phase", string(sk.Shot.Phase)).
				Dur("late", sk.Late).Msg("shooter: skipping late shot")
			r := dom.Record{Shot: sk.Shot, Status: dom.StatusSkipped}
			recs = append(recs, r)
			s.record(run, r)
		})
	}

	s.begin(run)
	log.Info().Dur("poll", s.cfg.Poll).Str("on_capture_error", string(s.cfg.OnCaptureError)).
		Msg("shooter: run started")

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		shot, ok := src.Next()
		if !ok {
			break
		}
		s.setNext(&shot)

		wait := shot.Start.Sub(s.clk.Now())
		if wait > 0 {
			s.publish(dom.Event{Kind: dom.EventWaiting, RunID: run.ID, Next: &shot, Wait: wait.Seconds()})
		}
		_, err := clock.Until(ctx, s.clk, s.sl, shot.Start, clock.WaitOptions{
			Poll:     s.cfg.Poll,
			LongWait: s.cfg.FlushAfter,
			OnLongWait: func(remaining time.Duration) {
				log.Debug().Dur("remaining", remaining).Int("next_seq", shot.Seq).Msg("shooter: long wait, flushing log")
				s.flush(ctx, run, recs)
			},
		})
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			runErr = err
			break
		}

		rec, capErr := s.capture(ctx, shot)
		recs = append(recs, rec)
		s.record(run, rec)

		ev := log.Info()
		if capErr != nil {
			ev = log.Error().Err(capErr)
		}
		ev.Int("seq", shot.Seq).Str("phase", string(shot.Phase)).Float64("iso", shot.ISO).
			Float64("exposure", shot.Exposure).Float64("drift", rec.Drift).Str("status", string(rec.Status)).
			Msg("shooter: shot")

		if capErr != nil && s.cfg.OnCaptureError == dom.PolicyAbort {
			runErr = perr.Wrapf(capErr, perr.ErrorCodeDevice, "shooter: capture of shot %d failed", shot.Seq)
			break
		}
	}

	sum, finalErr := s.finish(ctx, run, recs, runErr)
	le := log.Info()
	if runErr != nil {
		le = log.Warn().Err(runErr)
	}
	le.Int("done", sum.Done).Int("skipped", sum.Skipped).Int("failed", sum.Failed).
		Float64("drift_min", sum.Drift.Min).Float64("drift_mean", sum.Drift.Mean).Float64("drift_max", sum.Drift.Max).
		Msg("shooter: run finished")

	return sum, errors.Join(runErr, finalErr)
}

// capture fires one shot. The device call is not interrupted by cancellation.
func (s *Svc) capture(ctx context.Context, shot plan.Shot) (dom.Record, error) {
	dctx := context.WithoutCancel(ctx)
	rec := dom.Record{Shot: shot, ActualStart: s.clk.Now()}

	err := s.cam.SetISO(dctx, shot.ISO)
	if err == nil {
		err = s.cam.SetExposure(dctx, shot.Exposure)
	}
	if err == nil {
		err = s.cam.CaptureImage(dctx)
	}

	rec.ActualStop = s.clk.Now()
	rec.Drift = dom.RoundDrift(ptime.Diff(shot.Start, rec.ActualStart))
	if err != nil {
		rec.Status = dom.StatusFailed
		rec.Err = err.Error()
		return rec, err
	}
	rec.Done = true
	rec.Status = dom.StatusDone
	return rec, nil
}

// flush hands a snapshot of the log to the sink. Failures are logged, the run goes on.
func (s *Svc) flush(ctx context.Context, run dom.RunInfo, recs []dom.Record) {
	snap := make([]dom.Record, len(recs))
	copy(snap, recs)
	if s.sink != nil {
		if err := s.sink.Flush(ctx, run, snap); err != nil {
			logger.C(ctx).Warn().Err(err).Int("records", len(snap)).Msg("shooter: log flush failed")
			return
		}
	}
	s.mu.Lock()
	s.flushed = snap
	s.state.Flushed = s.clk.Now()
	s.mu.Unlock()
	s.publish(dom.Event{Kind: dom.EventFlushed, RunID: run.ID})
}

func (s *Svc) finish(ctx context.Context, run dom.RunInfo, recs []dom.Record, runErr error) (dom.Summary, error) {
	sum := dom.Summarize(run, recs)
	sum.Finished = s.clk.Now()

	var err error
	if s.sink != nil {
		// the final log is written even when the run was canceled
		if err = s.sink.Final(context.WithoutCancel(ctx), run, recs); err != nil {
			err = perr.Wrap(err, perr.CodeOf(err), "shooter: final log")
		}
	}

	s.mu.Lock()
	s.flushed = append([]dom.Record(nil), recs...)
	s.state.Running = false
	s.state.Next = nil
	s.state.Flushed = sum.Finished
	if runErr != nil {
		s.state.Err = runErr.Error()
	}
	s.mu.Unlock()

	s.publish(dom.Event{Kind: dom.EventRunFinished, RunID: run.ID, Summary: &sum})
	return sum, err
}

func (s *Svc) begin(run dom.RunInfo) {
	s.mu.Lock()
	s.state = dom.RunState{RunInfo: run, Running: true, Counts: map[dom.Status]int{}}
	s.flushed = nil
	s.mu.Unlock()
	s.publish(dom.Event{Kind: dom.EventRunStarted, RunID: run.ID})
}

func (s *Svc) setNext(shot *plan.Shot) {
	s.mu.Lock()
	s.state.Next = shot
	s.mu.Unlock()
}

func (s *Svc) record(run dom.RunInfo, r dom.Record) {
	s.mu.Lock()
	s.state.Counts[r.Status]++
	s.state.Phase = r.Phase
	if r.Status == dom.StatusDone {
		s.state.LastDrift = r.Drift
	}
	s.mu.Unlock()
	s.publish(dom.Event{Kind: dom.EventShot, RunID: run.ID, Record: &r})
}
