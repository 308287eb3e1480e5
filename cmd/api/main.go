package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetopt/internal/api"
	"fleetopt/internal/config"
	"fleetopt/internal/engine"
	"fleetopt/internal/metrics"
	"fleetopt/internal/qubo"
	"fleetopt/internal/solver"
	"fleetopt/internal/traffic"
	"fleetopt/internal/webhooks"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := newLogger(cfg.LogLevel)
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := newEngine(ctx, cfg, logger)
	st, err := api.NewStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()
	broker := api.NewEventBroker(ctx, cfg)
	defer broker.Close()

	srv := api.NewServer(cfg, eng, st, broker)
	srv.AccessLog = os.Stdout
	if len(cfg.Webhooks.URLs) > 0 {
		worker := webhooks.NewWorker(cfg.Webhooks.URLs, cfg.Webhooks.Secret, cfg.Webhooks.MaxAttempts)
		srv.Notifier = worker
		go worker.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("API listening on %s broker=%s solvers=%v", httpSrv.Addr, broker.Name(), eng.Solvers())
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}

// newEngine builds the pipeline. Remote backends are always registered; an
// empty annealer URL just makes their probe fail.
func newEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) *engine.Engine {
	remote := solver.NewRemoteClient(cfg.Annealer.URL, cfg.Annealer.Token, cfg.Annealer.RatePerSec)
	backends := []solver.Backend{
		solver.HybridSolver{Client: remote},
		solver.QPUSolver{Client: remote},
		solver.AnnealSolver{Sweeps: cfg.Solver.AnnealSweeps},
		solver.ExactSolver{MaxVars: cfg.Solver.MaxExactVars},
	}
	mode, _ := solver.ParseName(cfg.Solver.Mode)
	var disabled []solver.Name
	for _, d := range cfg.Solver.Disabled {
		n, _ := solver.ParseName(d)
		disabled = append(disabled, n)
	}
	chain := solver.NewChain(ctx, backends,
		solver.WithMode(mode),
		solver.WithDisabled(disabled...),
		solver.WithLogger(logger.With(slog.String("component", "solver"))),
	)

	enc := qubo.NewEncoder(cfg.Encoder.Lambda)
	if cfg.Encoder.ServiceMinutes > 0 {
		enc.ServiceMinutes = cfg.Encoder.ServiceMinutes
	}
	if cfg.Encoder.MaxVars > 0 {
		enc.MaxVars = cfg.Encoder.MaxVars
	}
	sim := traffic.NewSimulator(cfg.SimulatorOptions()...)
	return engine.New(sim, enc, chain,
		engine.WithLogger(logger.With(slog.String("component", "engine"))),
		engine.WithSolveOptions(cfg.SolverOptions()),
		engine.WithLimits(cfg.EngineLimits()),
	)
}
