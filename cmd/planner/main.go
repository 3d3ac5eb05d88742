package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"roadsim/internal/config"
	"roadsim/internal/db"
	"roadsim/internal/logging"
	"roadsim/internal/observability"
	"roadsim/internal/planner"
	"roadsim/internal/sim"
	"roadsim/internal/spatial"
	"roadsim/internal/store"
)

func main() {
	_ = godotenv.Load()

	configFile := flag.String("config", "config.yml", "path to the YAML config")
	recordsFile := flag.String("records", "", "read nodes, edges and pairs from this JSON file instead of the database")
	flag.Parse()

	if err := config.Load(*configFile); err != nil {
		logging.NewFromEnv().Error(context.Background(), "failed to load config", logging.Err(err))
		os.Exit(1)
	}
	cfg := config.Global
	log := cfg.Logger().With(logging.String("cmd", "planner"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *recordsFile, log); err != nil {
		log.Error(ctx, "planning failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, recordsFile string, log logging.Logger) error {
	defer config.TimeTrack(log, time.Now(), "planner")

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	}, log)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	sink, err := db.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, log)
	if err != nil {
		return err
	}
	defer sink.Close()

	var source db.Source = sink
	if recordsFile != "" {
		source = db.JSONSource{Path: recordsFile}
	}

	g, err := db.LoadGraph(ctx, source)
	if err != nil {
		return err
	}
	log.Info(ctx, "graph stats", logging.Int("nodes", g.NodeCount()), logging.Int("edges", g.EdgeCount()))

	component := g.LargestComponent()
	log.Info(ctx, "largest component", logging.Int("nodes", len(component)))

	idx, err := spatial.FromGraph(g, component)
	if err != nil {
		return err
	}

	pairs, err := source.LoadPairs(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "pairs stats", logging.Int("pairs", len(pairs)))

	plans, err := planner.Snap(idx, pairs)
	if err != nil {
		return err
	}
	log.Info(ctx, "plans stats", logging.Int("plans", len(plans)))

	metrics, err := observability.NewPlannerCollector(nil)
	if err != nil {
		return err
	}
	p := planner.New(g, cfg.Planner.Workers)
	p.Log = log
	p.Metrics = metrics

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	go planner.ReportProgress(progressCtx, p, int64(len(plans)), cfg.Planner.ProgressInterval, log)

	if cfg.Planner.Mode == "distance" {
		batch, err := p.PlanDistances(ctx, plans)
		if err != nil {
			return err
		}
		reached := 0
		for _, dist := range batch.Distances {
			reached += len(dist)
		}
		log.Info(ctx, "distance stats",
			logging.Int("maps", len(batch.Distances)),
			logging.Int("reached_nodes", reached),
			logging.Int("unrouted", batch.Unrouted))
		return nil
	}

	batch, err := p.PlanPaths(ctx, plans)
	if err != nil {
		return err
	}
	log.Info(ctx, "path stats", logging.Int("paths", len(batch.Paths)), logging.Int("unrouted", batch.Unrouted))

	if err := store.Save(cfg.Storage.Artifact, &store.Artifact{Graph: g, Paths: batch.Paths}); err != nil {
		return err
	}
	log.Info(ctx, "artifact saved", logging.String("path", cfg.Storage.Artifact))

	if cfg.Simulation.PathSampleCount == 0 {
		return nil
	}
	runID, err := sink.CreateRun(ctx, db.RunPlanner)
	if err != nil {
		return err
	}
	sample := sim.SamplePaths(batch.Paths, cfg.Simulation.PathSampleCount, cfg.Simulation.Seed)
	geoms := db.PathGeometries(g, sample)
	if err := sink.InsertPaths(ctx, runID, geoms); err != nil {
		return err
	}
	log.Info(ctx, "path geometries exported", logging.String("run_id", runID), logging.Int("paths", len(geoms)))
	return nil
}
