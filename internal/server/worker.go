package server

import (
	"context"

	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/navigation"
)

const jobQueueSize = 100

// WakeWorkers starts numWorkers route workers reading from the job queue.
// They exit once ctx is done.
func (s *Server) WakeWorkers(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go s.worker(ctx)
	}
	s.Log.Info(ctx, "job queue started", logging.Int("workers", numWorkers))
}

func (s *Server) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.jobs:
			path, err := navigation.FindPath(s.Graph, req.StartNodeId, req.EndNodeId, graph.ByWeight, s.Heuristic)
			req.ResponseChannel <- PathResult{Path: path, Err: err}
		}
	}
}

// submit queues a route request and waits for its answer.
func (s *Server) submit(ctx context.Context, from, to int) (*navigation.PathResult, error) {
	req := PathRequest{
		StartNodeId:     from,
		EndNodeId:       to,
		ResponseChannel: make(chan PathResult, 1),
	}

	select {
	case s.jobs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-req.ResponseChannel:
		return result.Path, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
