package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"roadsim/internal/config"
	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/observability"
	"roadsim/internal/types"
)

var (
	ErrInvalidOptions = errors.New("invalid simulation options")
	ErrRouteNode      = errors.New("route references a node outside the graph")
)

type Options struct {
	Seed          int64
	Velocity      float64 // meters per tick
	MaxStepCount  int
	MaxAgentCount int
	Workers       int
	RecordEvery   int // 0 records the final tick only

	Metrics *observability.SimCollector
	Log     logging.Logger
}

func OptionsFromConfig(c config.Config) Options {
	return Options{
		Seed:          c.Simulation.Seed,
		Velocity:      c.Simulation.Velocity,
		MaxStepCount:  c.Simulation.MaxStepCount,
		MaxAgentCount: c.Simulation.MaxAgentCount,
		Workers:       c.Simulation.Workers,
		RecordEvery:   c.Simulation.RecordEvery,
	}
}

// Frame is what a Recorder receives for a recorded tick. Positions hold the
// agents that moved during the tick, in agent order.
type Frame struct {
	Tick      int
	Positions []types.AgentPosition
	Stats     types.TickStats
}

type Recorder interface {
	Record(ctx context.Context, frame Frame) error
}

type RecorderFunc func(ctx context.Context, frame Frame) error

func (f RecorderFunc) Record(ctx context.Context, frame Frame) error { return f(ctx, frame) }

type World struct {
	Graph  *graph.Graph
	Agents []*Agent
	Tick   int // next tick to run

	opts Options
	log  logging.Logger
}

// NewWorld samples up to MaxAgentCount routable paths and staggers the
// agents' start ticks uniformly over [0, MaxStepCount). The same seed and paths
// always produce the same agents.
func NewWorld(g *graph.Graph, paths [][]int, opts Options) (*World, error) {
	if opts.Velocity <= 0 {
		return nil, fmt.Errorf("velocity %v: %w", opts.Velocity, ErrInvalidOptions)
	}
	if opts.MaxStepCount < 1 {
		return nil, fmt.Errorf("max step count %d: %w", opts.MaxStepCount, ErrInvalidOptions)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}

	routable := Routable(paths)
	for i, route := range routable {
		for _, n := range route {
			if !g.HasNode(n) {
				return nil, fmt.Errorf("route %d node %d: %w", i, n, ErrRouteNode)
			}
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	sample := Sample(routable, opts.MaxAgentCount, rng)

	agents := make([]*Agent, len(sample))
	for i, route := range sample {
		agents[i] = NewAgent(i, route, g, rng.Intn(opts.MaxStepCount))
	}

	log.Info(context.Background(), "world created",
		logging.Int("paths", len(paths)),
		logging.Int("routable", len(routable)),
		logging.Int("agents", len(agents)))

	return &World{Graph: g, Agents: agents, opts: opts, log: log}, nil
}

// Step runs one tick across all agents and returns its frame.
func (world *World) Step() Frame {
	start := time.Now()
	tick := world.Tick
	positions, stats := moveAgentsParallel(world.Agents, tick, world.Graph, world.opts.Velocity, world.opts.Workers)
	world.Tick++

	world.opts.Metrics.ObserveTick(stats.Active, stats.Arrived, time.Since(start).Seconds())
	return Frame{Tick: tick, Positions: positions, Stats: stats}
}

// Run executes exactly MaxStepCount ticks, whether or not agents are still
// moving, handing recorded ticks to rec. rec may be nil.
func (world *World) Run(ctx context.Context, rec Recorder) (types.TickStats, error) {
	ctx, span := observability.StartSpan(ctx, "sim.Run",
		attribute.Int("agents", len(world.Agents)),
		attribute.Int("ticks", world.opts.MaxStepCount))
	defer span.End()
	defer config.TimeTrack(world.log, time.Now(), "simulation")

	var last types.TickStats
	for world.Tick < world.opts.MaxStepCount {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		frame := world.Step()
		last = frame.Stats

		if rec != nil && world.shouldRecord(frame.Tick) {
			if err := rec.Record(ctx, frame); err != nil {
				return last, fmt.Errorf("record tick %d: %w", frame.Tick, err)
			}
		}
	}

	world.log.Info(ctx, "simulation finished",
		logging.Int("ticks", world.opts.MaxStepCount),
		logging.Int("active", last.Active),
		logging.Int("arrived", last.Arrived),
		logging.Int("waiting", last.Waiting))
	return last, nil
}

func (world *World) shouldRecord(tick int) bool {
	if tick == world.opts.MaxStepCount-1 {
		return true
	}
	every := world.opts.RecordEvery
	return every > 0 && tick%every == 0
}
