package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/navigation"
	"roadsim/internal/observability"
)

const DefaultWorkers = 8

// Batch is the outcome of PlanPaths. Paths[i] answers plans[i]; an empty
// route means the plan had no connecting path.
type Batch struct {
	Paths    [][]int
	Unrouted int
}

// DistanceBatch is the outcome of PlanDistances.
type DistanceBatch struct {
	Distances []map[int]float64
	Unrouted  int
}

// Planner fans plan batches out over a fixed number of workers that share the
// graph read-only.
type Planner struct {
	Graph     *graph.Graph
	Workers   int
	Heuristic navigation.Heuristic
	Metrics   *observability.PlannerCollector
	Log       logging.Logger

	processed atomic.Int64
}

func New(g *graph.Graph, workers int) *Planner {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Planner{
		Graph:     g,
		Workers:   workers,
		Heuristic: navigation.ZeroHeuristic,
		Log:       logging.Noop(),
	}
}

// Progress returns the number of plans processed so far across all batches.
func (p *Planner) Progress() int64 { return p.processed.Load() }

// PlanPaths computes a lane-weighted shortest path for every plan. Results
// keep the input order.
func (p *Planner) PlanPaths(ctx context.Context, plans []Plan) (*Batch, error) {
	h := p.Heuristic
	paths, unrouted, err := run(ctx, p, "planner.PlanPaths", plans, func(plan Plan) ([]int, bool, error) {
		res, err := navigation.FindPath(p.Graph, plan.Source, plan.Target, graph.ByWeight, h)
		if err != nil {
			return nil, false, err
		}
		return res.Route, res.Found, nil
	})
	if err != nil {
		return nil, err
	}
	return &Batch{Paths: paths, Unrouted: unrouted}, nil
}

// PlanDistances computes a raw-distance map from every plan's source, stopping
// each search once its target is settled.
func (p *Planner) PlanDistances(ctx context.Context, plans []Plan) (*DistanceBatch, error) {
	dists, unrouted, err := run(ctx, p, "planner.PlanDistances", plans, func(plan Plan) (map[int]float64, bool, error) {
		target := plan.Target
		dist, err := navigation.DistanceMap(p.Graph, plan.Source, &target, graph.ByDistance)
		if err != nil {
			return nil, false, err
		}
		_, reached := dist[target]
		return dist, reached, nil
	})
	if err != nil {
		return nil, err
	}
	return &DistanceBatch{Distances: dists, Unrouted: unrouted}, nil
}

type chunkResult[T any] struct {
	items    []T
	unrouted int
	err      error
}

// run partitions plans into one span per worker, solves each span on its own
// goroutine into a private buffer and reassembles the buffers by span index.
func run[T any](ctx context.Context, p *Planner, name string, plans []Plan, solve func(Plan) (T, bool, error)) ([]T, int, error) {
	log := p.Log
	if log == nil {
		log = logging.Noop()
	}
	ctx, span := observability.StartSpan(ctx, name,
		attribute.Int("plans", len(plans)),
		attribute.Int("workers", p.Workers))
	defer span.End()

	if err := validate(p.Graph, plans); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	start := time.Now()
	spans := Chunks(len(plans), p.Workers)
	results := make([]chunkResult[T], len(spans))

	var wg sync.WaitGroup
	wg.Add(len(spans))

	for i, s := range spans {
		go func(idx int, s Span) {
			defer wg.Done()
			local := make([]T, 0, s.Len())
			unrouted := 0

			for j := s.Start; j < s.End; j++ {
				if err := ctx.Err(); err != nil {
					results[idx].err = err
					return
				}
				planStart := time.Now()
				item, found, err := solve(plans[j])
				if err != nil {
					results[idx].err = fmt.Errorf("plan %d: %w", j, err)
					return
				}
				if !found {
					unrouted++
				}
				local = append(local, item)
				p.Metrics.ObservePlan(found, time.Since(planStart).Seconds())
				p.processed.Add(1)
			}
			results[idx] = chunkResult[T]{items: local, unrouted: unrouted}
		}(i, s)
	}

	wg.Wait()

	out := make([]T, 0, len(plans))
	unrouted := 0
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		out = append(out, r.items...)
		unrouted += r.unrouted
	}
	if err := errors.Join(errs...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	elapsed := time.Since(start)
	p.Metrics.ObserveBatch(elapsed.Seconds())
	span.SetAttributes(attribute.Int("unrouted", unrouted))
	log.Info(ctx, "batch planned",
		logging.String("mode", name),
		logging.Int("plans", len(plans)),
		logging.Int("unrouted", unrouted),
		logging.Int("workers", p.Workers),
		logging.String("took", elapsed.String()))

	return out, unrouted, nil
}
