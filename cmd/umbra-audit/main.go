// Command umbra-audit summarizes an audit log and optionally loads it into Postgres
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"umbra/internal/core/clock"
	"umbra/internal/modkit"
	"umbra/internal/modkit/module"
	"umbra/internal/platform/config"
	"umbra/internal/platform/logger"
	"umbra/internal/platform/store"

	auditmod "umbra/internal/services/audit/module"
	"umbra/internal/services/audit/service"
	shoot "umbra/internal/services/shooter/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	var (
		doImport = flag.Bool("import", false, "load the log into Postgres (SERVICE_PGSQL_DBURL)")
		runID    = flag.String("run-id", "", "run id when the file name does not carry one")
		mode     = flag.String("mode", "imported", "mode stamped on imported runs")
	)
	flag.Parse()

	l := logger.Get()
	if flag.NArg() != 1 {
		l.Fatal().Msg("usage: umbra-audit [-import] umbra_<run>_<start>.csv")
	}

	run, recs, err := service.ReadFile(flag.Arg(0))
	if err != nil {
		l.Fatal().Err(err).Msg("read audit log")
	}
	if *runID != "" {
		run.ID = *runID
	}
	if run.Started.IsZero() && len(recs) > 0 {
		run.Started = recs[0].Start
	}
	run.Mode = *mode

	if err := report(os.Stdout, shoot.Summarize(run, recs)); err != nil {
		l.Fatal().Err(err).Msg("write report")
	}

	if *doImport {
		if run.ID == "" {
			l.Fatal().Msg("-import needs a run id, pass -run-id")
		}
		if err := importLog(context.Background(), l, run, recs); err != nil {
			l.Fatal().Err(err).Msg("import failed")
		}
		l.Info().Str("run_id", run.ID).Int("shots", len(recs)).Msg("imported")
	}
}

func report(w io.Writer, sum shoot.Summary) error {
	p := message.NewPrinter(language.English)

	if sum.ID != "" {
		p.Fprintf(w, "run %s started %s\n", sum.ID, sum.Started.UTC().Format("2006-01-02 15:04:05Z"))
	}
	p.Fprintf(w, "%d done, %d skipped, %d failed\n\n", sum.Done, sum.Skipped, sum.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "phase\tdone\tskipped\tfailed\tdrift min\tmean\tmax\t")
	for _, ps := range sum.Phases {
		p.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t\n",
			ps.Phase, ps.Done, ps.Skipped, ps.Failed, ms(p, ps.Drift.Min), ms(p, ps.Drift.Mean), ms(p, ps.Drift.Max))
	}
	p.Fprintf(tw, "all\t%d\t%d\t%d\t%s\t%s\t%s\t\n",
		sum.Done, sum.Skipped, sum.Failed, ms(p, sum.Drift.Min), ms(p, sum.Drift.Mean), ms(p, sum.Drift.Max))
	return tw.Flush()
}

// ms prints drift seconds as milliseconds
func ms(p *message.Printer, sec float64) string { return p.Sprintf("%.3fms", sec*1000) }

func importLog(ctx context.Context, l *logger.Logger, run shoot.RunInfo, recs []shoot.Record) error {
	root := config.New()
	cfg := store.FromEnv(root, "audit")
	if !cfg.PG.Enabled {
		return fmt.Errorf("SERVICE_PGSQL_DBURL is not set")
	}
	cfg.CH.Enabled = false

	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// the importer is the postgres sink of the audit module; the csv dir is never written
	am, err := auditmod.New(ctx, modkit.Deps{Cfg: root, PG: st.PG, Log: *l}, clock.Wall{}, auditmod.Options{Dir: os.TempDir()})
	if err != nil {
		return err
	}
	imp := module.MustPortsOf[auditmod.Ports](am).Importer
	if imp == nil {
		return fmt.Errorf("postgres audit sink disabled (CORE_AUDIT_PG)")
	}
	return imp.Import(ctx, run, recs)
}
