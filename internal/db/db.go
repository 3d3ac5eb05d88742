// Package db moves records between the road database and the core: it reads
// nodes, edges and origin/destination pairs, and writes simulation output.
package db

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/planner"
	"roadsim/internal/types"
)

// Run kinds recorded in sim_run.
const (
	RunPlanner    = "planner"
	RunSimulation = "simulation"
)

// Source delivers the upstream records.
type Source interface {
	LoadNodes(ctx context.Context) ([]graph.NodeRecord, error)
	LoadEdges(ctx context.Context) ([]graph.EdgeRecord, error)
	LoadPairs(ctx context.Context) ([]planner.ODPair, error)
}

// Sink persists run output.
type Sink interface {
	CreateRun(ctx context.Context, kind string) (string, error)
	InsertAgentPositions(ctx context.Context, runID string, tick int, positions []types.AgentPosition) error
	InsertPaths(ctx context.Context, runID string, paths []orb.LineString) error
}

type Store interface {
	Source
	Sink
	Close() error
}

// Open connects to the configured driver and makes sure the result tables
// exist.
func Open(ctx context.Context, driver, dsn string, log logging.Logger) (Store, error) {
	switch driver {
	case "sqlite":
		s, err := OpenSQLite(dsn, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := OpenPostgres(ctx, dsn, log)
		if err != nil {
			return nil, err
		}
		if err := p.EnsureSink(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// LoadGraph reads nodes and edges from src and builds the graph.
func LoadGraph(ctx context.Context, src Source) (*graph.Graph, error) {
	nodes, err := src.LoadNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := src.LoadEdges(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Build(nodes, edges)
}

// PathGeometries maps routes to line strings, skipping routes with fewer than
// two nodes since they have no extent.
func PathGeometries(g *graph.Graph, paths [][]int) []orb.LineString {
	out := make([]orb.LineString, 0, len(paths))
	for _, p := range paths {
		if len(p) < 2 {
			continue
		}
		out = append(out, g.LineString(p))
	}
	return out
}
