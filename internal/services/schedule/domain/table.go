package domain

import (
	"umbra/internal/core/plan"
	"umbra/internal/core/timeline"
)

// Row is one line of the printed plan table. Offsets are seconds relative to C2, C3 and
// the previous shot start, the way the shot list is rehearsed in the field.
type Row struct {
	plan.Shot `yaml:",inline"`
	FromC2   float64 `json:"from_c2" yaml:"from_c2"`
	FromC3   float64 `json:"from_c3" yaml:"from_c3"`
	FromPrev float64 `json:"from_prev" yaml:"from_prev"`
	// Speed is 1/exposure, how shutter speeds are usually written
	Speed float64 `json:"speed" yaml:"speed"`
}

// Rows decorates a table with its offsets. The first row has no previous shot.
func Rows(c timeline.Contacts, shots []plan.Shot) []Row {
	out := make([]Row, len(shots))
	for i, s := range shots {
		r := Row{
			Shot:   s,
			FromC2: s.Start.Sub(c.C2).Seconds(),
			FromC3: s.Start.Sub(c.C3).Seconds(),
		}
		if i > 0 {
			r.FromPrev = s.Start.Sub(shots[i-1].Start).Seconds()
		}
		if s.Exposure > 0 {
			r.Speed = 1 / s.Exposure
		}
		out[i] = r
	}
	return out
}
