package types

import "github.com/paulmach/orb/geojson"

// position of a moving agent at the end of a tick
type AgentPosition struct {
	AgentID int     `json:"agent_id"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
}

type TickStats struct {
	Waiting int `json:"waiting"`
	Active  int `json:"active"`
	Arrived int `json:"arrived"`
}

// format of a tick broadcast to websocket clients
type TickUpdate struct {
	Tick      int             `json:"tick"`
	Stats     TickStats       `json:"stats"`
	Positions []AgentPosition `json:"positions"`
}

// format of recieving a navigation request answer
type NavigationResponse struct {
	From       int               `json:"from_node"`
	To         int               `json:"to_node"`
	RouteNodes []int             `json:"route"`
	Cost       float64           `json:"cost"`
	Distance   float64           `json:"distance"`
	Found      bool              `json:"found"`
	Geometry   *geojson.Geometry `json:"geometry,omitempty"`
}

type NearestResponse struct {
	Node int     `json:"node"`
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
}
