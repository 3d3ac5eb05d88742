package graph

import "math"

const (
	laneWidth       = 3.0
	minRoadWidth    = 3.0
	maxRoadWidth    = 18.0
	defaultDivisor  = 15.0
	lanesPerCapUnit = 2
)

// EdgeRecord is an edge as delivered by the upstream ETL. N1 and N2 are node
// ids, Width is nil when the survey has no width for the road.
type EdgeRecord struct {
	Id       int      `json:"id"`
	N1       int      `json:"n1"`
	N2       int      `json:"n2"`
	Distance float64  `json:"distance"` // meters
	Width    *float64 `json:"width,omitempty"`
}

// Edge is an undirected road segment between two node indices.
type Edge struct {
	Id       int
	From     int
	To       int
	Distance float64  // meters
	Width    *float64 // meters
	Weight   float64  // travel cost derived from Distance and Width
}

// Opposite returns the endpoint of e that is not u.
func (e *Edge) Opposite(u int) int {
	if e.From == u {
		return e.To
	}
	return e.From
}

// LaneCount is the number of 3m lanes a road of the given width holds, with the
// width clamped to [3, 18].
func LaneCount(width float64) int {
	w := math.Min(math.Max(width, minRoadWidth), maxRoadWidth)
	return int(math.Ceil(w / laneWidth))
}

// CapacityFactor is ceil(lanes/2), never below 1.
func CapacityFactor(lanes int) int {
	return max(1, (lanes+lanesPerCapUnit-1)/lanesPerCapUnit)
}

// DeriveWeight discounts distance by the road's capacity factor. Roads without
// a surveyed width use a flat divisor of 15.
func DeriveWeight(distance float64, width *float64) float64 {
	if width == nil {
		return distance / defaultDivisor
	}
	return distance / float64(CapacityFactor(LaneCount(*width)))
}

// WeightFunc returns the traversal cost of an edge.
type WeightFunc func(e *Edge) float64

// ByDistance costs an edge by its raw surveyed length.
func ByDistance(e *Edge) float64 { return e.Distance }

// ByWeight costs an edge by its capacity-discounted weight.
func ByWeight(e *Edge) float64 { return e.Weight }
