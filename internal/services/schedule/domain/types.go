// Package domain holds the schedule module types: modes, the plan file and its ports
package domain

import (
	"fmt"
	"time"

	"umbra/internal/core/plan"
	"umbra/internal/core/timeline"
	"umbra/internal/platform/config"
	perr "umbra/internal/platform/errors"
)

// Mode selects how the shot stream is evaluated
type Mode string

// Modes
const (
	// ModeLazy evaluates every shot against the wall clock right before it is taken
	ModeLazy Mode = "lazy"
	// ModePrecomputed materializes the table up front and skips rows that are already late
	ModePrecomputed Mode = "precomputed"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool { return m == ModeLazy || m == ModePrecomputed }

// PlanFile is the YAML (or JSON) tuning file. Every section is optional and overrides the
// defaults it names. Exposures are strings so they can be written as fractions.
type PlanFile struct {
	Mode      Mode               `yaml:"mode,omitempty" json:"mode,omitempty" validate:"omitempty,oneof=lazy precomputed"`
	Tolerance string             `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	Overhead  string             `yaml:"overhead,omitempty" json:"overhead,omitempty" validate:"omitempty,seconds"`
	Contacts  *timeline.Contacts `yaml:"contacts,omitempty" json:"contacts,omitempty" validate:"omitempty"`
	Partial   *CyclicFile        `yaml:"partial,omitempty" json:"partial,omitempty" validate:"omitempty"`
	Beads     *CyclicFile        `yaml:"beads,omitempty" json:"beads,omitempty" validate:"omitempty"`
	Diamonds  *CyclicFile        `yaml:"diamonds,omitempty" json:"diamonds,omitempty" validate:"omitempty"`
	Totality  *RampFile          `yaml:"totality,omitempty" json:"totality,omitempty" validate:"omitempty"`
}

// CyclicFile overrides a fixed sequence phase
type CyclicFile struct {
	ISO       float64  `yaml:"iso,omitempty" json:"iso,omitempty" validate:"omitempty,gt=0"`
	Exposures []string `yaml:"exposures,omitempty" json:"exposures,omitempty" validate:"omitempty,min=1,dive,seconds"`
	Delta     *float64 `yaml:"delta,omitempty" json:"delta,omitempty" validate:"omitempty,gte=0"`
}

// RampFile overrides the totality ramp
type RampFile struct {
	MinISO       float64 `yaml:"min_iso,omitempty" json:"min_iso,omitempty" validate:"omitempty,gt=0"`
	MaxExposure  string  `yaml:"max_exposure,omitempty" json:"max_exposure,omitempty" validate:"omitempty,seconds"`
	StartProduct float64 `yaml:"start_product,omitempty" json:"start_product,omitempty" validate:"omitempty,gt=0"`
	EndProduct   float64 `yaml:"end_product,omitempty" json:"end_product,omitempty" validate:"omitempty,gt=0"`
}

// Apply overlays the file on cfg. The file is expected to be validated already.
func (f PlanFile) Apply(cfg plan.Config) (plan.Config, error) {
	if f.Contacts != nil {
		cfg.Contacts = *f.Contacts
	}
	if f.Overhead != "" {
		v, err := config.ParseFloat(f.Overhead)
		if err != nil {
			return cfg, perr.Validationf("overhead", "overhead %q: %v", f.Overhead, err)
		}
		cfg.Overhead = v
	}
	var err error
	if cfg.Partial, err = f.Partial.apply("partial", cfg.Partial); err != nil {
		return cfg, err
	}
	if cfg.Beads, err = f.Beads.apply("beads", cfg.Beads); err != nil {
		return cfg, err
	}
	if cfg.Diamonds, err = f.Diamonds.apply("diamonds", cfg.Diamonds); err != nil {
		return cfg, err
	}
	if cfg.Totality, err = f.Totality.apply(cfg.Totality); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ToleranceOr parses the tolerance, def when empty
func (f PlanFile) ToleranceOr(def time.Duration) (time.Duration, error) {
	if f.Tolerance == "" {
		return def, nil
	}
	d, err := time.ParseDuration(f.Tolerance)
	if err != nil || d < 0 {
		return def, perr.Validationf("tolerance", "tolerance %q is not a duration like 100ms", f.Tolerance)
	}
	return d, nil
}

func (c *CyclicFile) apply(name string, cy plan.Cyclic) (plan.Cyclic, error) {
	if c == nil {
		return cy, nil
	}
	if c.ISO != 0 {
		cy.ISO = c.ISO
	}
	if len(c.Exposures) > 0 {
		exps := make([]float64, len(c.Exposures))
		for i, s := range c.Exposures {
			v, err := config.ParseFloat(s)
			if err != nil {
				return cy, perr.Validationf(fmt.Sprintf("%s.exposures[%d]", name, i), "%s exposure %q: %v", name, s, err)
			}
			exps[i] = v
		}
		cy.Exposures = exps
	}
	if c.Delta != nil {
		cy.Delta = *c.Delta
	}
	return cy, nil
}

func (r *RampFile) apply(rp plan.Ramp) (plan.Ramp, error) {
	if r == nil {
		return rp, nil
	}
	if r.MinISO != 0 {
		rp.MinISO = r.MinISO
	}
	if r.MaxExposure != "" {
		v, err := config.ParseFloat(r.MaxExposure)
		if err != nil {
			return rp, perr.Validationf("totality.max_exposure", "max exposure %q: %v", r.MaxExposure, err)
		}
		rp.MaxExposure = v
	}
	if r.StartProduct != 0 {
		rp.StartProduct = r.StartProduct
	}
	if r.EndProduct != 0 {
		rp.EndProduct = r.EndProduct
	}
	return rp, nil
}
