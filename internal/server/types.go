package server

import (
	"roadsim/internal/navigation"
)

type PathRequest struct {
	StartNodeId int
	EndNodeId   int

	// channel to notify when the response is ready
	ResponseChannel chan PathResult
}

type PathResult struct {
	Path *navigation.PathResult
	Err  error
}

// GraphData is the graph as sent to map clients.
type GraphData struct {
	Nodes []NodeData `json:"nodes"`
	Edges []EdgeData `json:"edges"`
}

type NodeData struct {
	Index int     `json:"index"`
	ID    int     `json:"id"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
}

type EdgeData struct {
	ID       int      `json:"id"`
	From     int      `json:"from"`
	To       int      `json:"to"`
	Distance float64  `json:"distance"`
	Width    *float64 `json:"width,omitempty"`
	Weight   float64  `json:"weight"`
}

// Update is a message pushed to websocket clients.
type Update struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
