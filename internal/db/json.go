package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"

	"roadsim/internal/graph"
	"roadsim/internal/planner"
)

// JSONSource reads records from a fixture file shaped as
// {"nodes": [...], "edges": [...], "pairs": [...]}.
type JSONSource struct {
	Path string
}

type pairRecord struct {
	Id        int     `json:"id"`
	OriginLon float64 `json:"origin_lon"`
	OriginLat float64 `json:"origin_lat"`
	DestLon   float64 `json:"dest_lon"`
	DestLat   float64 `json:"dest_lat"`
}

func (s JSONSource) LoadNodes(context.Context) ([]graph.NodeRecord, error) {
	nodes, _, err := graph.LoadRecords(s.Path)
	return nodes, err
}

func (s JSONSource) LoadEdges(context.Context) ([]graph.EdgeRecord, error) {
	_, edges, err := graph.LoadRecords(s.Path)
	return edges, err
}

func (s JSONSource) LoadPairs(context.Context) ([]planner.ODPair, error) {
	fileData, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var c struct {
		Pairs []pairRecord `json:"pairs"`
	}
	if err := json.Unmarshal(fileData, &c); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	pairs := make([]planner.ODPair, len(c.Pairs))
	for i, p := range c.Pairs {
		pairs[i] = planner.ODPair{
			ID:          p.Id,
			Origin:      orb.Point{p.OriginLon, p.OriginLat},
			Destination: orb.Point{p.DestLon, p.DestLat},
		}
	}
	return pairs, nil
}
