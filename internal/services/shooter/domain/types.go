// Package domain holds the execution loop types and the ports it talks to
package domain

import (
	"time"

	"umbra/internal/core/plan"
)

// Status is the outcome of one scheduled shot
type Status string

// Shot outcomes. Only StatusDone means an image was stored.
const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// CapturePolicy decides what a failed capture does to the run
type CapturePolicy string

// Capture policies
const (
	// PolicyAbort logs the failed shot, persists the log and ends the run with a device error
	PolicyAbort CapturePolicy = "abort"
	// PolicyContinue logs the failed shot and moves on to the next one
	PolicyContinue CapturePolicy = "continue"
)

// Record is a shot as executed. Drift is actual start minus scheduled start in seconds.
type Record struct {
	plan.Shot
	ActualStart time.Time `json:"actual_start"`
	ActualStop  time.Time `json:"actual_stop"`
	Done        bool      `json:"done"`
	Status      Status    `json:"status"`
	Drift       float64   `json:"drift"`
	Err         string    `json:"error,omitempty"`
}

// RunInfo identifies one execution of a schedule
type RunInfo struct {
	ID      string    `json:"run_id"`
	Mode    string    `json:"mode"`
	Started time.Time `json:"started"`
}

// EventKind tags the events published while a run progresses
type EventKind string

// Event kinds
const (
	EventRunStarted  EventKind = "run_started"
	EventWaiting     EventKind = "waiting"
	EventShot        EventKind = "shot"
	EventFlushed     EventKind = "flushed"
	EventRunFinished EventKind = "run_finished"
)

// Event is published to observers (metrics, live feed)
type Event struct {
	Kind    EventKind  `json:"kind"`
	RunID   string     `json:"run_id"`
	At      time.Time  `json:"at"`
	Record  *Record    `json:"record,omitempty"`
	Next    *plan.Shot `json:"next,omitempty"`
	Wait    float64    `json:"wait_seconds,omitempty"`
	Summary *Summary   `json:"summary,omitempty"`
}

// RunState is the live view served by the status API
type RunState struct {
	RunInfo
	Running   bool           `json:"running"`
	Phase     plan.Phase     `json:"phase,omitempty"`
	Next      *plan.Shot     `json:"next,omitempty"`
	Counts    map[Status]int `json:"counts"`
	LastDrift float64        `json:"last_drift"`
	Flushed   time.Time      `json:"flushed,omitempty"`
	Err       string         `json:"error,omitempty"`
}
