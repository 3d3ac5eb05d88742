package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"roadsim/internal/config"
	"roadsim/internal/db"
	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/observability"
	"roadsim/internal/sim"
	"roadsim/internal/store"
)

var configFile = flag.String("config", "config.yml", "path to the YAML config")

func main() {
	_ = godotenv.Load()
	flag.Parse()

	// load constants from the config file
	if err := config.Load(*configFile); err != nil {
		logging.NewFromEnv().Error(context.Background(), "failed to load config", logging.Err(err))
		os.Exit(1)
	}
	cfg := config.Global
	log := cfg.Logger().With(logging.String("cmd", "simulation"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	}, log)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	artifact, err := store.Load(cfg.Storage.Artifact)
	if err != nil {
		return err
	}

	sink, err := db.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, log)
	if err != nil {
		return err
	}
	defer sink.Close()

	g, err := artifactGraph(ctx, artifact, sink)
	if err != nil {
		return err
	}

	metrics, err := observability.NewSimCollector(nil)
	if err != nil {
		return err
	}
	opts := sim.OptionsFromConfig(cfg)
	opts.Metrics = metrics
	opts.Log = log

	world, err := sim.NewWorld(g, artifact.Paths, opts)
	if err != nil {
		return err
	}

	runID, err := sink.CreateRun(ctx, db.RunSimulation)
	if err != nil {
		return err
	}
	log.Info(ctx, "simulation started", logging.String("run_id", runID), logging.Int("agents", len(world.Agents)))

	recorder := sim.RecorderFunc(func(ctx context.Context, frame sim.Frame) error {
		return sink.InsertAgentPositions(ctx, runID, frame.Tick, frame.Positions)
	})
	_, err = world.Run(ctx, recorder)
	return err
}

// artifactGraph returns the graph bundled with a, or rebuilds it from src for
// paths-only artifacts.
func artifactGraph(ctx context.Context, a *store.Artifact, src db.Source) (*graph.Graph, error) {
	if a.Graph != nil {
		return a.Graph, nil
	}
	return db.LoadGraph(ctx, src)
}
