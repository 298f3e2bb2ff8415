// Package domain holds the status API payloads
package domain

import (
	"time"

	"umbra/internal/core/timeline"
	"umbra/internal/core/version"
	sched "umbra/internal/services/schedule/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// Health is served by /healthz
type Health struct {
	Status  string            `json:"status"`
	Build   version.BuildInfo `json:"build"`
	Running bool              `json:"running"`
	Now     time.Time         `json:"now"`
}

// PlanView is a table with the configuration it was computed from
type PlanView struct {
	Mode     sched.Mode        `json:"mode,omitempty"`
	Contacts timeline.Contacts `json:"contacts"`
	Overhead float64           `json:"overhead"`
	Summary  sched.Summary     `json:"summary"`
	Rows     []sched.Row       `json:"rows"`
}

// ShotsView is the last flushed audit snapshot
type ShotsView struct {
	RunID   string         `json:"run_id"`
	Flushed time.Time      `json:"flushed,omitempty"`
	Count   int            `json:"count"`
	Shots   []shoot.Record `json:"shots"`
}

// PreviewInput is a plan file posted for an ad hoc table
type PreviewInput = sched.PlanFile
