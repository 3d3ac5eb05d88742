package sim

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

type AgentState int

const (
	Waiting AgentState = iota
	Moving
	Arrived
)

func (s AgentState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Moving:
		return "moving"
	case Arrived:
		return "arrived"
	default:
		return "unknown"
	}
}

// Locator resolves a node index to its [lon, lat]. *graph.Graph satisfies it.
type Locator interface {
	Coordinate(i int) orb.Point
}

type Agent struct {
	Id       int
	Position orb.Point
	Route    []int
	Cursor   int // index in Route of the node the agent is heading to
	Shift    int // first tick the agent moves on
	State    AgentState
	Active   bool    // moved during the last tick
	Traveled float64 // meters
}

// NewAgent places an agent on the first node of route. The cursor starts at 1
// since that node is already reached.
func NewAgent(id int, route []int, loc Locator, shift int) *Agent {
	a := &Agent{
		Id:     id,
		Route:  route,
		Cursor: 1,
		Shift:  shift,
		State:  Waiting,
	}
	if len(route) > 0 {
		a.Position = loc.Coordinate(route[0])
	}
	return a
}

// Step advances the agent through tick. A moving agent snaps onto its next
// node when that node is within velocity meters, otherwise it travels exactly
// velocity meters along the great-circle bearing towards it.
func (a *Agent) Step(tick int, loc Locator, velocity float64) {
	a.Active = false

	if a.State == Arrived {
		return
	}
	if tick < a.Shift {
		a.State = Waiting
		return
	}
	if a.Cursor >= len(a.Route) {
		a.State = Arrived
		return
	}
	a.State = Moving

	next := loc.Coordinate(a.Route[a.Cursor])
	dist := geo.DistanceHaversine(a.Position, next)

	if dist <= velocity {
		a.Position = next
		a.Cursor++
		a.Traveled += dist
	} else {
		bearing := geo.Bearing(a.Position, next)
		a.Position = geo.PointAtBearingAndDistance(a.Position, bearing, velocity)
		a.Traveled += velocity
	}
	a.Active = true

	if a.Cursor >= len(a.Route) {
		a.State = Arrived
	}
}
