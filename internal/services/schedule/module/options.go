package module

import (
	"time"

	"umbra/internal/platform/config"
)

// Options for the schedule module. Tuning constants and contacts are read by service.Load.
type Options struct {
	PlanPath    string
	Mode        string
	Tolerance   time.Duration
	TestRun     bool
	TestLead    time.Duration
	TestPartial time.Duration
}

// FromConfig fills options from environment
// CORE_SCHED_PLAN is an optional YAML plan file
// CORE_SCHED_MODE is "lazy" or "precomputed"; empty defers to the plan file, then lazy
// CORE_SCHED_TOLERANCE (default 100ms) is how late a precomputed shot may still fire
// CORE_SCHED_TEST_RUN shifts the contacts to start CORE_SCHED_TEST_LEAD (5s) from now
// with CORE_SCHED_TEST_PARTIAL (60s) from C1 to C2 and from C3 to C4
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_SCHED_")
	return Options{
		PlanPath:    c.MayString("PLAN", ""),
		Mode:        c.MayEnum("MODE", "", "lazy", "precomputed"),
		Tolerance:   c.MayDuration("TOLERANCE", 0),
		TestRun:     c.MayBool("TEST_RUN", false),
		TestLead:    c.MayDuration("TEST_LEAD", 5*time.Second),
		TestPartial: c.MayDuration("TEST_PARTIAL", time.Minute),
	}
}
