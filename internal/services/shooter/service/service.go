// Package service implements the shooting loop: wait for each shot, fire it, record it
package service

import (
	"sync"
	"time"

	"umbra/internal/core/clock"
	dom "umbra/internal/services/shooter/domain"

	"github.com/google/uuid"
)

// Config controls the loop
type Config struct {
	Mode           string            // lazy | precomputed, stamped on the run
	Poll           time.Duration     // longest single sleep while waiting
	FlushAfter     time.Duration     // waits longer than this flush the log first
	OnCaptureError dom.CapturePolicy // abort | continue
}

// Option customizes the service
type Option func(*Svc)

// WithClock replaces the wall clock, mostly for tests and rehearsals
func WithClock(clk clock.Clock, sl clock.Sleeper) Option {
	return func(s *Svc) {
		s.clk = clk
		s.sl = sl
	}
}

// WithObserver adds an event observer
func WithObserver(o dom.Observer) Option {
	return func(s *Svc) {
		if o != nil {
			s.obs = append(s.obs, o)
		}
	}
}

// WithRunID fixes the id generator
func WithRunID(fn func() string) Option {
	return func(s *Svc) { s.newID = fn }
}

// Svc is the execution loop. One Run at a time; the log has a single writer.
type Svc struct {
	cfg   Config
	cam   dom.Camera
	sink  dom.LogSink
	obs   []dom.Observer
	clk   clock.Clock
	sl    clock.Sleeper
	newID func() string

	runMu sync.Mutex // serializes Run

	mu      sync.RWMutex
	state   dom.RunState
	flushed []dom.Record
}

var (
	_ dom.RunnerPort = (*Svc)(nil)
	_ dom.StatePort  = (*Svc)(nil)
)

// New constructs the loop around a camera and an audit sink
func New(cam dom.Camera, sink dom.LogSink, cfg Config, opts ...Option) *Svc {
	if cfg.Poll <= 0 {
		cfg.Poll = 100 * time.Millisecond
	}
	if cfg.FlushAfter <= 0 {
		cfg.FlushAfter = 5 * time.Second
	}
	if cfg.OnCaptureError == "" {
		cfg.OnCaptureError = dom.PolicyAbort
	}
	s := &Svc{
		cfg:   cfg,
		cam:   cam,
		sink:  sink,
		clk:   clock.Wall{},
		sl:    clock.Wall{},
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	s.state.Counts = map[dom.Status]int{}
	return s
}

// State returns a copy of the live run state
func (s *Svc) State() dom.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Counts = make(map[dom.Status]int, len(s.state.Counts))
	for k, v := range s.state.Counts {
		st.Counts[k] = v
	}
	if s.state.Next != nil {
		n := *s.state.Next
		st.Next = &n
	}
	return st
}

// Records returns the last flushed audit log
func (s *Svc) Records() []dom.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dom.Record, len(s.flushed))
	copy(out, s.flushed)
	return out
}

func (s *Svc) publish(ev dom.Event) {
	if ev.At.IsZero() {
		ev.At = s.clk.Now()
	}
	for _, o := range s.obs {
		o.Observe(ev)
	}
}
