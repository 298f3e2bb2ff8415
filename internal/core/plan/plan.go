// Package plan builds the eclipse shot stream: per phase generators chained into one
// ordered sequence, evaluated either against a live clock or against nominal times
package plan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"umbra/internal/core/timeline"
	perr "umbra/internal/platform/errors"
)

// Phase labels a time bounded segment of the schedule
type Phase string

// Phases in shooting order. Totality is split at maximum eclipse.
const (
	Partial1  Phase = "partial1"
	Beads1    Phase = "beads1"
	Diamonds1 Phase = "diamonds1"
	Totality1 Phase = "totality1"
	Totality2 Phase = "totality2"
	Diamonds2 Phase = "diamonds2"
	Beads2    Phase = "beads2"
	Partial2  Phase = "partial2"
)

var phaseOrder = []Phase{Partial1, Beads1, Diamonds1, Totality1, Totality2, Diamonds2, Beads2, Partial2}

// Phases returns every phase label in shooting order
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// Valid reports whether p is a known phase label
func (p Phase) Valid() bool { return p.Index() >= 0 }

// Index is the position of p in shooting order, -1 when unknown
func (p Phase) Index() int {
	for i, q := range phaseOrder {
		if q == p {
			return i
		}
	}
	return -1
}

// Shot is one scheduled exposure. Stop = Start + Exposure + overhead.
type Shot struct {
	Seq      int       `json:"seq" yaml:"seq"`
	Phase    Phase     `json:"phase" yaml:"phase"`
	Start    time.Time `json:"start" yaml:"start"`
	Stop     time.Time `json:"stop" yaml:"stop"`
	Exposure float64   `json:"exposure" yaml:"exposure"`
	ISO      float64   `json:"iso" yaml:"iso"`
}

// Product is the exposure value ISO x seconds
func (s Shot) Product() float64 { return s.ISO * s.Exposure }

func (s Shot) String() string {
	return fmt.Sprintf("#%d %s %s iso=%g exp=%gs", s.Seq, s.Phase, s.Start.Format(time.RFC3339Nano), s.ISO, s.Exposure)
}

// Generator is a pull based, finite, non restartable shot stream.
// Next never blocks; ok is false once the stream is exhausted.
type Generator interface {
	Next() (shot Shot, ok bool)
}

// Cyclic cycles a fixed list of exposures at constant ISO.
// Delta is the minimum number of seconds between the starts of two passes over the list.
type Cyclic struct {
	ISO       float64   `json:"iso" yaml:"iso"`
	Exposures []float64 `json:"exposures" yaml:"exposures"`
	Delta     float64   `json:"delta" yaml:"delta"`
}

// Ramp moves the exposure value exponentially between two products
type Ramp struct {
	MinISO       float64 `json:"min_iso" yaml:"min_iso"`
	MaxExposure  float64 `json:"max_exposure" yaml:"max_exposure"`
	StartProduct float64 `json:"start_product" yaml:"start_product"`
	EndProduct   float64 `json:"end_product" yaml:"end_product"`
}

// Reversed swaps the product endpoints
func (r Ramp) Reversed() Ramp {
	r.StartProduct, r.EndProduct = r.EndProduct, r.StartProduct
	return r
}

// Config is the immutable input of a run: contacts, per shot overhead and per phase tuning.
// Beads and diamonds are used on both sides of totality.
type Config struct {
	Contacts timeline.Contacts `json:"contacts" yaml:"contacts"`
	Overhead float64           `json:"overhead" yaml:"overhead"`
	Partial  Cyclic            `json:"partial" yaml:"partial"`
	Beads    Cyclic            `json:"beads" yaml:"beads"`
	Diamonds Cyclic            `json:"diamonds" yaml:"diamonds"`
	Totality Ramp              `json:"totality" yaml:"totality"`
}

// Defaults returns the field tested tuning for a DSLR on a solar filter
func Defaults(c timeline.Contacts) Config {
	return Config{
		Contacts: c,
		Overhead: 3.0,
		Partial: Cyclic{
			ISO:       100,
			Exposures: []float64{1.0 / 1250, 1.0 / 3500, 1.0 / 500},
			Delta:     60,
		},
		Beads:    Cyclic{ISO: 100, Exposures: []float64{1.0 / 4000}},
		Diamonds: Cyclic{ISO: 100, Exposures: []float64{1.0 / 100}},
		Totality: Ramp{
			MinISO:       100,
			MaxExposure:  1.0,
			StartProduct: 100.0 / 4000,
			EndProduct:   1200,
		},
	}
}

// MaxShots bounds the schedule length: every shot takes at least Overhead seconds,
// so an overhead allowing more than MaxShots over C1..C4 is rejected
const MaxShots = 100_000

// Validate checks contact ordering and that every tuning constant is finite, positive
// and no longer than the C1..C4 span
func (c Config) Validate() error {
	if err := c.Contacts.Validate(); err != nil {
		if e, ok := perr.As(err); ok {
			return perr.WithField(err, "contacts."+e.Field())
		}
		return err
	}
	span := c.Contacts.C4.Sub(c.Contacts.C1).Seconds()
	if err := inSpan("overhead", "overhead", c.Overhead, span); err != nil {
		return err
	}
	if span/c.Overhead > MaxShots {
		return perr.Validationf("overhead", "overhead %gs allows more than %d shots between c1 and c4", c.Overhead, MaxShots)
	}
	for _, cy := range []struct {
		name string
		c    Cyclic
	}{{"partial", c.Partial}, {"beads", c.Beads}, {"diamonds", c.Diamonds}} {
		if err := cy.c.validate(cy.name, span); err != nil {
			return err
		}
	}
	return c.Totality.validate("totality", span)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(field, what string, v float64) error {
	if !finite(v) || v <= 0 {
		return perr.Validationf(field, "%s must be a positive number", what)
	}
	return nil
}

// inSpan is positive plus v <= span seconds
func inSpan(field, what string, v, span float64) error {
	if err := positive(field, what, v); err != nil {
		return err
	}
	if v > span {
		return perr.Validationf(field, "%s %gs is longer than c1..c4 (%gs)", what, v, span)
	}
	return nil
}

func (c Cyclic) validate(name string, span float64) error {
	if err := positive(name+".iso", name+" iso", c.ISO); err != nil {
		return err
	}
	if len(c.Exposures) == 0 {
		return perr.Validationf(name+".exposures", "%s needs at least one exposure", name)
	}
	for i, e := range c.Exposures {
		if err := inSpan(fmt.Sprintf("%s.exposures[%d]", name, i), fmt.Sprintf("%s exposure %d", name, i), e, span); err != nil {
			return err
		}
	}
	if !finite(c.Delta) || c.Delta < 0 || c.Delta > span {
		return perr.Validationf(name+".delta", "%s delta must be between 0 and %gs", name, span)
	}
	return nil
}

func (r Ramp) validate(name string, span float64) error {
	for _, f := range []struct {
		key string
		v   float64
	}{
		{"min_iso", r.MinISO},
		{"max_exposure", r.MaxExposure},
		{"start_product", r.StartProduct},
		{"end_product", r.EndProduct},
	} {
		if err := positive(name+"."+f.key, name+" "+strings.ReplaceAll(f.key, "_", " "), f.v); err != nil {
			return err
		}
	}
	return inSpan(name+".max_exposure", name+" max exposure", r.MaxExposure, span)
}
