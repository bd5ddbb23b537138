package navigation

import (
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// ForceAbort stops the given bots at their nearest stoppable node. Each
// stopped bot is force-reserved onto its shortened drive; whoever holds
// those nodes is stopped in turn. Every bot is stopped at most once, so the
// cascade always terminates.
func (pm *PathManager) ForceAbort(bots []int, now float64) {
	pm.cascade(bots, now, make(map[int]bool))
}

// AbortDrive stops b and cascades to the bots in its way
func (pm *PathManager) AbortDrive(b *agent.Bot, now float64) {
	if _, ok := pm.bots[b.ID()]; !ok {
		return
	}
	pm.cascade([]int{b.ID()}, now, make(map[int]bool))
}

func (pm *PathManager) cascade(ids []int, now float64, visited map[int]bool) {
	pending := append([]int(nil), ids...)
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		b, ok := pm.bots[id]
		if !ok {
			continue
		}
		for _, blocker := range pm.stop(b, now) {
			if visited[blocker] {
				// both already stopped as tightly as physics allows
				pm.logger.Log("WARNING", "residual reservation conflict after abort", map[string]interface{}{
					"bot_id":  id,
					"blocker": blocker,
					"time":    now,
				})
				continue
			}
			pending = append(pending, blocker)
		}
	}
}

// stop brakes b onto its nearest stoppable node and commits the matching
// chain without testing it. It returns the owners the new chain overlaps.
func (pm *PathManager) stop(b *agent.Bot, now float64) []int {
	run, offset, speed := b.StopAtNearestNode(pm.g, now)
	intervals := reservation.CreateRunIntervals(pm.g, b.Kinematics(), now, now, speed, run, offset, true)
	if intervals == nil {
		intervals = []reservation.Interval{{Node: b.CurrentNode(), Start: now, End: shared.Forever}}
	}
	intervals = reservation.WithOwner(intervals, b.ID())

	pm.table.ClearOwner(b.ID())
	_, blockers := pm.table.IntersectionFree(intervals)
	pm.table.Replace(b.ID(), intervals)

	b.MarkAborted()
	pm.stats.DriveAborts++
	pm.logger.Log("INFO", "drive aborted", map[string]interface{}{
		"bot_id":   b.ID(),
		"stop":     pm.g.Symbol(run[len(run)-1]),
		"speed":    speed,
		"blockers": blockers,
		"time":     now,
	})
	return blockers
}
