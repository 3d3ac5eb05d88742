package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

var (
	ErrNodeOutOfRange = errors.New("node index out of range")
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrCountMismatch  = errors.New("graph size does not match input records")
)

// Graph is an undirected road graph. Nodes live in a dense arena addressed by
// index; the graph is read-only once built and safe to share across goroutines.
type Graph struct {
	Nodes []Node
	Edges []*Edge

	adjList [][]*Edge
}

func NewGraph(nodeCount int) *Graph {
	return &Graph{
		Nodes:   make([]Node, nodeCount),
		Edges:   make([]*Edge, 0),
		adjList: make([][]*Edge, nodeCount),
	}
}

// Build assembles a graph from ETL records. Node ids must be exactly 1..N and
// every edge must reference one of them.
func Build(nodes []NodeRecord, edges []EdgeRecord) (*Graph, error) {
	g := NewGraph(len(nodes))
	placed := make([]bool, len(nodes))

	for _, n := range nodes {
		i := n.Id - 1
		if i < 0 || i >= len(nodes) {
			return nil, fmt.Errorf("node id %d with %d nodes: %w", n.Id, len(nodes), ErrNodeOutOfRange)
		}
		if placed[i] {
			return nil, fmt.Errorf("node id %d: %w", n.Id, ErrDuplicateNode)
		}
		placed[i] = true
		g.Nodes[i] = Node{Id: n.Id, Point: orb.Point{n.Lon, n.Lat}}
	}

	for _, rec := range edges {
		e := &Edge{
			Id:       rec.Id,
			From:     rec.N1 - 1,
			To:       rec.N2 - 1,
			Distance: rec.Distance,
			Weight:   DeriveWeight(rec.Distance, rec.Width),
		}
		if rec.Width != nil {
			w := *rec.Width
			e.Width = &w
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", rec.Id, err)
		}
	}

	if g.NodeCount() != len(nodes) || g.EdgeCount() != len(edges) {
		return nil, fmt.Errorf("built %d nodes/%d edges from %d/%d records: %w",
			g.NodeCount(), g.EdgeCount(), len(nodes), len(edges), ErrCountMismatch)
	}
	return g, nil
}

// Assemble rebuilds a graph from already-indexed nodes and edges, as stored in
// a route artifact.
func Assemble(nodes []Node, edges []*Edge) (*Graph, error) {
	g := NewGraph(len(nodes))
	copy(g.Nodes, nodes)
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", e.Id, err)
		}
	}
	return g, nil
}

func (g *Graph) AddEdge(e *Edge) error {
	if !g.HasNode(e.From) {
		return fmt.Errorf("source node %d: %w", e.From, ErrNodeOutOfRange)
	}
	if !g.HasNode(e.To) {
		return fmt.Errorf("destination node %d: %w", e.To, ErrNodeOutOfRange)
	}
	g.Edges = append(g.Edges, e)
	g.adjList[e.From] = append(g.adjList[e.From], e)
	if e.To != e.From {
		g.adjList[e.To] = append(g.adjList[e.To], e)
	}
	return nil
}

func (g *Graph) NodeCount() int { return len(g.Nodes) }

func (g *Graph) EdgeCount() int { return len(g.Edges) }

func (g *Graph) HasNode(i int) bool { return i >= 0 && i < len(g.Nodes) }

// GetNeighbors returns the edges incident to node i.
func (g *Graph) GetNeighbors(i int) []*Edge {
	return g.adjList[i]
}

// Coordinate returns the [lon, lat] of node i.
func (g *Graph) Coordinate(i int) orb.Point {
	return g.Nodes[i].Point
}

// LineString maps a route of node indices to its coordinates.
func (g *Graph) LineString(route []int) orb.LineString {
	ls := make(orb.LineString, 0, len(route))
	for _, i := range route {
		ls = append(ls, g.Nodes[i].Point)
	}
	return ls
}

func (g *Graph) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "=== Graph Summary ===\n")
	fmt.Fprintf(&sb, "Nodes: %d | Edges: %d\n", g.NodeCount(), g.EdgeCount())

	isolated := 0
	for i := range g.Nodes {
		if len(g.adjList[i]) == 0 {
			isolated++
		}
	}
	fmt.Fprintf(&sb, "Isolated nodes: %d\n", isolated)
	return sb.String()
}
