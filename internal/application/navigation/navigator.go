package navigation

import (
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

var _ agent.Navigator = (*PathManager)(nil)

func (pm *PathManager) Graph() *graph.Graph {
	return pm.g
}

// RegisterNextWaypoint reserves run for b. The bot holds its current node
// from now while it rotates, departs at blockUntil and keeps the last node
// of the run until it registers again.
func (pm *PathManager) RegisterNextWaypoint(b *agent.Bot, now, blockUntil, rotation float64, run []graph.NodeID) (bool, []int) {
	intervals := reservation.CreateRunIntervals(pm.g, b.Kinematics(), now, blockUntil, 0, run, 0, true)
	if intervals == nil {
		pm.logger.Log("WARNING", "unreservable run", map[string]interface{}{
			"bot_id": b.ID(),
			"run":    pm.symbols(run),
		})
		return false, nil
	}
	ok, blockers := pm.table.Register(b.ID(), intervals)
	if !ok {
		pm.logger.Log("DEBUG", "reservation refused", map[string]interface{}{
			"bot_id":   b.ID(),
			"run":      pm.symbols(run),
			"blockers": blockers,
			"time":     now,
		})
	}
	return ok, blockers
}

// Relocate moves b's whole chain onto node, which b holds indefinitely
func (pm *PathManager) Relocate(b *agent.Bot, node graph.NodeID, now float64) bool {
	if !pm.g.Valid(node) {
		return false
	}
	ok, blockers := pm.table.Register(b.ID(), []reservation.Interval{{Node: node, Start: now, End: shared.Forever}})
	if !ok {
		pm.logger.Log("DEBUG", "relocation refused", map[string]interface{}{
			"bot_id":   b.ID(),
			"node":     pm.g.Symbol(node),
			"blockers": blockers,
		})
	}
	return ok
}

func (pm *PathManager) InQueueZone(node graph.NodeID) bool {
	_, ok := pm.zone[node]
	return ok
}

// LeaveQueues frees every queue slot held by bot
func (pm *PathManager) LeaveQueues(bot int) {
	for _, q := range pm.queues {
		q.Leave(bot)
	}
}

func (pm *PathManager) symbols(nodes []graph.NodeID) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = pm.g.Symbol(n)
	}
	return out
}
