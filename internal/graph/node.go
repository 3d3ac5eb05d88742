package graph

import "github.com/paulmach/orb"

// NodeRecord is a node as delivered by the upstream ETL. IDs are 1-based.
type NodeRecord struct {
	Id  int     `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Node is a graph vertex addressed by its dense 0-based index (Id - 1).
type Node struct {
	Id    int
	Point orb.Point // [lon, lat]
}
