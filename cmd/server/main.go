package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"roadsim/internal/config"
	"roadsim/internal/logging"
	"roadsim/internal/navigation"
	"roadsim/internal/observability"
	"roadsim/internal/server"
	"roadsim/internal/sim"
	"roadsim/internal/spatial"
	"roadsim/internal/store"
)

// lane-weighted costs are at least distance/15
const heuristicScale = 15.0

func main() {
	_ = godotenv.Load()
	configFile := flag.String("config", "config.yml", "path to the YAML config")
	flag.Parse()

	if err := config.Load(*configFile); err != nil {
		logging.NewFromEnv().Error(context.Background(), "failed to load config", logging.Err(err))
		os.Exit(1)
	}
	cfg := config.Global
	log := cfg.Logger().With(logging.String("cmd", "server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	artifact, err := store.LoadBundle(cfg.Storage.Artifact)
	if err != nil {
		return err
	}
	g := artifact.Graph
	log.Info(ctx, "graph loaded", logging.Int("nodes", g.NodeCount()), logging.Int("edges", g.EdgeCount()))

	idx, err := spatial.FromGraph(g, g.LargestComponent())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return err
	}

	srv := server.NewServer(g, idx, log)
	srv.Heuristic = navigation.HaversineHeuristic(heuristicScale)
	srv.Gatherer = reg
	log.Info(ctx, "cores available", logging.Int("cpus", runtime.NumCPU()))
	srv.WakeWorkers(ctx, runtime.NumCPU())
	go srv.Hub.Run(ctx)

	opts := sim.OptionsFromConfig(cfg)
	opts.Metrics = metrics
	opts.Log = log
	opts.RecordEvery = 1
	world, err := sim.NewWorld(g, artifact.Paths, opts)
	if err != nil {
		return err
	}
	go replay(ctx, world, srv.Hub, cfg.Server.TickInterval, log)

	httpServer := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           srv.Routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "server running", logging.String("addr", cfg.Server.Port))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// replay streams every tick to the hub, pausing interval between ticks.
func replay(ctx context.Context, world *sim.World, hub *server.Hub, interval time.Duration, log logging.Logger) {
	paced := sim.RecorderFunc(func(ctx context.Context, frame sim.Frame) error {
		if err := hub.Record(ctx, frame); err != nil {
			return err
		}
		select {
		case <-time.After(interval):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if _, err := world.Run(ctx, paced); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "replay stopped", logging.Err(err))
	}
}
