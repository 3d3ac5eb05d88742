package planner

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"roadsim/internal/graph"
	"roadsim/internal/spatial"
)

var ErrInvalidPlan = errors.New("plan references a node outside the graph")

// Plan is a routing request reduced to graph node indices.
type Plan struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// ODPair is an origin/destination coordinate pair as it arrives from upstream.
type ODPair struct {
	ID          int
	Origin      orb.Point
	Destination orb.Point
}

// Snap maps every pair onto its nearest indexed nodes.
func Snap(idx *spatial.Index, pairs []ODPair) ([]Plan, error) {
	plans := make([]Plan, 0, len(pairs))
	for _, pair := range pairs {
		src, err := idx.Nearest(pair.Origin)
		if err != nil {
			return nil, fmt.Errorf("snap origin of pair %d: %w", pair.ID, err)
		}
		dst, err := idx.Nearest(pair.Destination)
		if err != nil {
			return nil, fmt.Errorf("snap destination of pair %d: %w", pair.ID, err)
		}
		plans = append(plans, Plan{Source: src, Target: dst})
	}
	return plans, nil
}

func validate(g *graph.Graph, plans []Plan) error {
	for i, plan := range plans {
		if !g.HasNode(plan.Source) || !g.HasNode(plan.Target) {
			return fmt.Errorf("plan %d (%d -> %d): %w", i, plan.Source, plan.Target, ErrInvalidPlan)
		}
	}
	return nil
}
