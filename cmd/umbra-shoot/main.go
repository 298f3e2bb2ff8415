// Command umbra-shoot runs the exposure schedule of one eclipse against a camera
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"umbra/internal/adapters/camera/indi"
	"umbra/internal/adapters/camera/sim"
	"umbra/internal/adapters/observability"
	"umbra/internal/core/clock"
	"umbra/internal/modkit"
	"umbra/internal/modkit/module"
	"umbra/internal/modkit/repokit"
	"umbra/internal/platform/config"
	"umbra/internal/platform/logger"
	phttp "umbra/internal/platform/net/http"
	"umbra/internal/platform/store"

	auditmod "umbra/internal/services/audit/module"
	schedmod "umbra/internal/services/schedule/module"
	shoot "umbra/internal/services/shooter/domain"
	shootmod "umbra/internal/services/shooter/module"
	"umbra/internal/services/shooter/service"
	"umbra/internal/services/status"
	statusmod "umbra/internal/services/status/module"
)

func main() {
	var (
		mode       = flag.String("mode", "", "lazy or precomputed (default CORE_SCHED_MODE, then the plan file, then lazy)")
		camera     = flag.String("camera", "", "sim or indi (default CORE_SHOOT_CAMERA, then sim)")
		testRun    = flag.Bool("test-run", false, "rehearsal: shift the contacts to start a few seconds from now")
		planPath   = flag.String("plan", "", "YAML plan file (default CORE_SCHED_PLAN)")
		withStatus = flag.Bool("status", false, "serve the status API on CORE_STATUS_ADDR")
	)
	flag.Parse()

	l := logger.Get()
	if err := run(flags{
		mode:     *mode,
		camera:   *camera,
		testRun:  *testRun,
		planPath: *planPath,
		status:   *withStatus,
	}); err != nil {
		l.Fatal().Err(err).Msg("umbra-shoot failed")
	}
}

type flags struct {
	mode, camera, planPath string
	testRun, status        bool
}

func run(f flags) error {
	root := config.New()
	l := logger.Get()

	// SIGINT/SIGTERM stop the loop between captures, the log is still finalized
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// postgres and clickhouse are optional, each joins when its DBURL is set
	st, err := store.Open(ctx, store.FromEnv(root, "shoot"), store.WithLogger(*l))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	// Build dependency modules first: the plan is rejected before any device is touched
	sm, err := schedmod.New(deps, schedmod.Options{PlanPath: f.planPath, Mode: f.mode, TestRun: f.testRun}, nil)
	if err != nil {
		return err
	}
	am, err := auditmod.New(ctx, deps, clock.Wall{}, auditmod.Options{})
	if err != nil {
		return err
	}
	module.Register(sm.Name(), sm.Ports())
	module.Register(am.Name(), am.Ports())

	sched := module.MustPortsOf[schedmod.Ports](sm)
	audit := module.MustPortsOf[auditmod.Ports](am)

	cam, closeCam, err := openCamera(ctx, root, f.camera)
	if err != nil {
		return err
	}
	defer closeCam()

	prom := observability.NewProm()
	opts := []service.Option{service.WithObserver(prom)}

	if f.status {
		stm := statusmod.New(deps, "umbra-shoot")
		opts = append(opts, service.WithObserver(module.MustPortsOf[statusmod.Ports](stm).Feed))

		// http server (reads CORE_STATUS_ADDR)
		srv := phttp.NewServer(root.Prefix("CORE_STATUS_"))
		status.Mount(srv.Router(), status.Options{Module: stm, Metrics: prom.Handler()})
		go func() {
			if err := srv.Run(ctx); err != nil {
				l.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	shm := shootmod.New(deps, cam, audit.Sink, shootmod.Options{Mode: string(sched.Planner.Mode())}, opts...)
	module.Register(shm.Name(), shm.Ports())

	cfg := sched.Planner.Config()
	l.Info().
		Str("mode", string(sched.Planner.Mode())).
		Time("c1", cfg.Contacts.C1).
		Time("c2", cfg.Contacts.C2).
		Time("c3", cfg.Contacts.C3).
		Time("c4", cfg.Contacts.C4).
		Bool("test_run", f.testRun).
		Msg("umbra-shoot: armed")

	// Kick the runner
	sum, err := module.MustPortsOf[shootmod.Ports](shm).Runner.Run(ctx, sched.Planner.Source())
	logSummary(l, sum, audit.CSV.Path(sum.RunInfo))
	return err
}

// openCamera builds the capture device
// CORE_SHOOT_CAMERA (sim|indi), CORE_SHOOT_SIM_OVERHEAD (seconds, default 3.0)
// CORE_INDI_HOST (localhost), CORE_INDI_PORT (7624), CORE_INDI_DEVICE, CORE_INDI_SETUP, CORE_INDI_TIMEOUT
func openCamera(ctx context.Context, root config.Conf, kind string) (shoot.Camera, func(), error) {
	sc := root.Prefix("CORE_SHOOT_")
	if kind == "" {
		kind = sc.MayEnum("CAMERA", "sim", "sim", "indi")
	}

	switch kind {
	case "sim":
		return sim.New(sim.Options{Overhead: sc.MayFloat64("SIM_OVERHEAD", sim.DefaultOverhead)}), func() {}, nil
	case "indi":
		ic := root.Prefix("CORE_INDI_")
		addr := net.JoinHostPort(ic.MayString("HOST", "localhost"), strconv.Itoa(ic.MayInt("PORT", 7624)))
		cl, err := indi.Dial(ctx, addr)
		if err != nil {
			return nil, nil, err
		}
		cam, err := indi.Connect(ctx, cl, indi.Options{
			Device:  ic.MustString("DEVICE"),
			Setup:   ic.MayDuration("SETUP", 30*time.Second),
			Timeout: ic.MayDuration("TIMEOUT", 30*time.Second),
		})
		if err != nil {
			_ = cl.Close()
			return nil, nil, err
		}
		return cam, func() { _ = cl.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown camera %q, want sim or indi", kind)
	}
}

func logSummary(l *logger.Logger, sum shoot.Summary, csvPath string) {
	if sum.ID == "" {
		return
	}
	ev := l.Info().
		Str("run_id", sum.ID).
		Str("log", csvPath).
		Int("done", sum.Done).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Float64("drift_min", sum.Drift.Min).
		Float64("drift_mean", sum.Drift.Mean).
		Float64("drift_max", sum.Drift.Max)
	ev.Msg("umbra-shoot: run finished")
}
