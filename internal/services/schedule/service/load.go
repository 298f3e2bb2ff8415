package service

import (
	"bytes"
	"errors"
	"io"
	"os"

	"umbra/internal/core/plan"
	"umbra/internal/core/timeline"
	"umbra/internal/platform/config"
	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/net/http/bind"
	dom "umbra/internal/services/schedule/domain"

	"gopkg.in/yaml.v3"
)

// ReadPlanFile decodes and validates a YAML plan file. Unknown keys are rejected so a typo
// cannot silently fall back to a default.
func ReadPlanFile(path string) (dom.PlanFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dom.PlanFile{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "plan file %s", path)
		}
		return dom.PlanFile{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "plan file %s", path)
	}
	return DecodePlanFile(bytes.NewReader(b))
}

// DecodePlanFile decodes and validates a plan file from r
func DecodePlanFile(r io.Reader) (dom.PlanFile, error) {
	var f dom.PlanFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return dom.PlanFile{}, perr.Wrap(err, perr.ErrorCodeValidation, "plan file")
	}
	if err := bind.Struct(f); err != nil {
		return dom.PlanFile{}, perr.WithOp(err, "plan file")
	}
	return f, nil
}

// Load layers the configuration: defaults, then the plan file (when path is set), then the
// environment under c (already prefixed, e.g. CORE_SCHED_). The result is not validated.
func Load(c config.Conf, path string) (plan.Config, dom.PlanFile, error) {
	var f dom.PlanFile
	if path != "" {
		var err error
		if f, err = ReadPlanFile(path); err != nil {
			return plan.Config{}, f, err
		}
	}
	cfg, err := f.Apply(plan.Defaults(timeline.Contacts{}))
	if err != nil {
		return cfg, f, err
	}
	cfg = overlayEnv(c, cfg)
	cfg.Contacts = cfg.Contacts.Normalize()
	return cfg, f, nil
}

// overlayEnv reads every tunable with the current value as default
// C1 C2 MAX C3 C4 (RFC3339), OVERHEAD, <PHASE>_ISO, <PHASE>_EXPOSURES (csv, fractions ok),
// <PHASE>_DELTA for PARTIAL BEADS DIAMONDS, TOTALITY_MIN_ISO, TOTALITY_MAX_EXPOSURE,
// TOTALITY_START_PRODUCT, TOTALITY_END_PRODUCT
func overlayEnv(c config.Conf, cfg plan.Config) plan.Config {
	ct := &cfg.Contacts
	ct.C1 = c.MayTime("C1", ct.C1)
	ct.C2 = c.MayTime("C2", ct.C2)
	ct.Max = c.MayTime("MAX", ct.Max)
	ct.C3 = c.MayTime("C3", ct.C3)
	ct.C4 = c.MayTime("C4", ct.C4)

	cfg.Overhead = c.MayFloat64("OVERHEAD", cfg.Overhead)

	cyc := func(p string, cy plan.Cyclic) plan.Cyclic {
		pc := c.Prefix(p + "_")
		cy.ISO = pc.MayFloat64("ISO", cy.ISO)
		cy.Exposures = pc.MayFloat64CSV("EXPOSURES", cy.Exposures)
		cy.Delta = pc.MayFloat64("DELTA", cy.Delta)
		return cy
	}
	cfg.Partial = cyc("PARTIAL", cfg.Partial)
	cfg.Beads = cyc("BEADS", cfg.Beads)
	cfg.Diamonds = cyc("DIAMONDS", cfg.Diamonds)

	tc := c.Prefix("TOTALITY_")
	cfg.Totality.MinISO = tc.MayFloat64("MIN_ISO", cfg.Totality.MinISO)
	cfg.Totality.MaxExposure = tc.MayFloat64("MAX_EXPOSURE", cfg.Totality.MaxExposure)
	cfg.Totality.StartProduct = tc.MayFloat64("START_PRODUCT", cfg.Totality.StartProduct)
	cfg.Totality.EndProduct = tc.MayFloat64("END_PRODUCT", cfg.Totality.EndProduct)
	return cfg
}
