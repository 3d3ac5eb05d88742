package navigation

import (
	"errors"
)

var ErrUnknownNode = errors.New("node is not part of the graph")

type PathResult struct {
	Route    []int   // node indices, source first; empty when no path exists
	Cost     float64 // summed weight along Route
	Distance float64 // summed surveyed meters along Route
	Found    bool
}
