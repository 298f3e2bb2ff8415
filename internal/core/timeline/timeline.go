// Package timeline holds the eclipse contact instants and the phase boundaries derived from them
package timeline

import (
	"time"

	perr "umbra/internal/platform/errors"
)

// Offsets of the bead and diamond ring windows around second and third contact
const (
	BeadsLead    = 30 * time.Second
	DiamondsLead = 8 * time.Second
)

// Contacts are the five fixed instants of a total eclipse
type Contacts struct {
	C1  time.Time `json:"c1" yaml:"c1" validate:"required"`
	C2  time.Time `json:"c2" yaml:"c2" validate:"required"`
	Max time.Time `json:"max" yaml:"max" validate:"required"`
	C3  time.Time `json:"c3" yaml:"c3" validate:"required"`
	C4  time.Time `json:"c4" yaml:"c4" validate:"required"`
}

// Normalize returns the contacts in UTC truncated to the microsecond
func (c Contacts) Normalize() Contacts {
	n := func(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }
	return Contacts{C1: n(c.C1), C2: n(c.C2), Max: n(c.Max), C3: n(c.C3), C4: n(c.C4)}
}

// BeadsStart is when the filter comes off for Baily's beads
func (c Contacts) BeadsStart() time.Time { return c.C2.Add(-BeadsLead) }

// DiamondsStart opens the first diamond ring window
func (c Contacts) DiamondsStart() time.Time { return c.C2.Add(-DiamondsLead) }

// DiamondsEnd closes the second diamond ring window
func (c Contacts) DiamondsEnd() time.Time { return c.C3.Add(DiamondsLead) }

// BeadsEnd closes the second beads window
func (c Contacts) BeadsEnd() time.Time { return c.C3.Add(BeadsLead) }

// Totality is the length of C2..C3
func (c Contacts) Totality() time.Duration { return c.C3.Sub(c.C2) }

// Validate checks C1 < BeadsStart and C2 <= Max <= C3 and BeadsEnd < C4
func (c Contacts) Validate() error {
	type edge struct {
		field      string
		a, b       time.Time
		strict     bool
		constraint string
	}
	edges := []edge{
		{"c1", c.C1, c.BeadsStart(), true, "c1 must be more than 30s before c2"},
		{"max", c.C2, c.Max, false, "max must not be before c2"},
		{"c3", c.Max, c.C3, false, "c3 must not be before max"},
		{"c4", c.BeadsEnd(), c.C4, true, "c4 must be more than 30s after c3"},
	}
	for _, z := range []struct {
		field string
		t     time.Time
	}{{"c1", c.C1}, {"c2", c.C2}, {"max", c.Max}, {"c3", c.C3}, {"c4", c.C4}} {
		if z.t.IsZero() {
			return perr.Validationf(z.field, "%s is required", z.field)
		}
	}
	for _, e := range edges {
		if e.b.Before(e.a) || (e.strict && !e.a.Before(e.b)) {
			return perr.Validationf(e.field, "%s", e.constraint)
		}
	}
	return nil
}

// Shift moves every contact by d
func (c Contacts) Shift(d time.Duration) Contacts {
	return Contacts{C1: c.C1.Add(d), C2: c.C2.Add(d), Max: c.Max.Add(d), C3: c.C3.Add(d), C4: c.C4.Add(d)}
}

// Rehearsal returns contacts for a dry run: C1 at now+lead, C2 partial after C1,
// the real C2..Max..C3 spacing, and C4 partial after C3. partial has to exceed
// BeadsLead for the result to validate.
func (c Contacts) Rehearsal(now time.Time, lead, partial time.Duration) Contacts {
	c1 := now.Add(lead).UTC().Truncate(time.Microsecond)
	c2 := c1.Add(partial)
	d := c2.Sub(c.C2)
	c3 := c.C3.Add(d)
	return Contacts{C1: c1, C2: c2, Max: c.Max.Add(d), C3: c3, C4: c3.Add(partial)}
}
