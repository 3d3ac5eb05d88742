package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

type container struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// LoadRecords reads node and edge records from a JSON fixture file.
func LoadRecords(fileName string) ([]NodeRecord, []EdgeRecord, error) {
	fileData, err := os.ReadFile(fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	var c container
	if err := json.Unmarshal(fileData, &c); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return c.Nodes, c.Edges, nil
}

func LoadGraph(fileName string) (*Graph, error) {
	nodes, edges, err := LoadRecords(fileName)
	if err != nil {
		return nil, err
	}
	return Build(nodes, edges)
}
