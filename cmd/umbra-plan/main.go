// Command umbra-plan prints the precomputed shot table of a plan
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"umbra/internal/modkit"
	"umbra/internal/modkit/module"
	"umbra/internal/platform/config"
	"umbra/internal/platform/logger"

	sched "umbra/internal/services/schedule/domain"
	schedmod "umbra/internal/services/schedule/module"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		planPath = flag.String("plan", "", "YAML plan file (default CORE_SCHED_PLAN)")
		format   = flag.String("format", "text", "text, csv or yaml")
		check    = flag.Bool("check", false, "only validate the configuration")
		testRun  = flag.Bool("test-run", false, "print the rehearsal timeline instead")
	)
	flag.Parse()

	l := logger.Get()
	deps := modkit.Deps{Cfg: config.New(), Log: *l}

	sm, err := schedmod.New(deps, schedmod.Options{PlanPath: *planPath, TestRun: *testRun}, nil)
	if err != nil {
		l.Fatal().Err(err).Msg("plan rejected")
	}
	p := module.MustPortsOf[schedmod.Ports](sm).Planner

	cfg, shots := p.Config(), p.Table()
	if *check {
		sum := sched.Summarize(shots)
		l.Info().Int("shots", sum.Shots).Time("first", sum.First).Time("last", sum.Last).Msg("plan ok")
		return
	}

	rows := sched.Rows(cfg.Contacts, shots)
	switch *format {
	case "text":
		err = writeText(os.Stdout, rows, sched.Summarize(shots))
	case "csv":
		err = writeCSV(os.Stdout, rows)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		err = enc.Encode(rows)
		if err == nil {
			err = enc.Close()
		}
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		l.Fatal().Err(err).Msg("write table")
	}
}

func writeText(w io.Writer, rows []sched.Row, sum sched.Summary) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "seq\tphase\tstart (UTC)\tfrom C2\tfrom C3\tfrom prev\tISO\texposure\t1/exp\t")
	for _, r := range rows {
		p.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.0f\t%g\t%.1f\t\n",
			r.Seq, r.Phase, r.Start.Format("15:04:05.000"),
			r.FromC2, r.FromC3, r.FromPrev, r.ISO, r.Exposure, r.Speed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p.Fprintf(w, "\n%d shots", sum.Shots)
	if sum.Shots > 0 {
		p.Fprintf(w, " over %s", sum.Last.Sub(sum.First).Round(time.Second))
	}
	fmt.Fprintln(w)
	return nil
}

func writeCSV(w io.Writer, rows []sched.Row) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"seq", "phase", "start", "from_c2", "from_c3", "from_prev", "iso", "exposure", "speed"})
	for _, r := range rows {
		_ = cw.Write([]string{
			strconv.Itoa(r.Seq),
			string(r.Phase),
			r.Start.UTC().Format(time.RFC3339Nano),
			ff(r.FromC2),
			ff(r.FromC3),
			ff(r.FromPrev),
			ff(r.ISO),
			ff(r.Exposure),
			ff(r.Speed),
		})
	}
	cw.Flush()
	return cw.Error()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
