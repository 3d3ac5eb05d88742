package sim

import (
	"sync"

	"roadsim/internal/types"
)

type chunkOutput struct {
	positions []types.AgentPosition
	stats     types.TickStats
}

// moveAgentsParallel steps every agent through tick on fixed contiguous chunks.
// Each worker writes only its own agents and its own buffer, and the call
// returns once every chunk is done, so tick t+1 never overlaps tick t.
func moveAgentsParallel(agents []*Agent, tick int, loc Locator, velocity float64, numWorkers int) ([]types.AgentPosition, types.TickStats) {
	agentCount := len(agents)
	if agentCount == 0 {
		return []types.AgentPosition{}, types.TickStats{}
	}
	if agentCount < numWorkers {
		numWorkers = 1
	}

	chunkSize := (agentCount + numWorkers - 1) / numWorkers
	outputs := make([]chunkOutput, numWorkers)

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		start := min(i*chunkSize, agentCount)
		end := min(start+chunkSize, agentCount)

		go func(idx, startIdx, endIdx int) {
			defer wg.Done()
			out := chunkOutput{positions: make([]types.AgentPosition, 0, endIdx-startIdx)}

			for j := startIdx; j < endIdx; j++ {
				agent := agents[j]
				agent.Step(tick, loc, velocity)

				if agent.Active {
					out.stats.Active++
					out.positions = append(out.positions, types.AgentPosition{
						AgentID: agent.Id,
						Lon:     agent.Position.Lon(),
						Lat:     agent.Position.Lat(),
					})
				}
				switch agent.State {
				case Waiting:
					out.stats.Waiting++
				case Arrived:
					out.stats.Arrived++
				}
			}
			outputs[idx] = out
		}(i, start, end)
	}

	wg.Wait()

	var stats types.TickStats
	positions := make([]types.AgentPosition, 0, agentCount)
	for _, out := range outputs {
		positions = append(positions, out.positions...)
		stats.Active += out.stats.Active
		stats.Waiting += out.stats.Waiting
		stats.Arrived += out.stats.Arrived
	}
	return positions, stats
}
