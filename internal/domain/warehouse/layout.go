package warehouse

import (
	"fmt"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// StationLayout places a station with its queue below the grid. The queue
// enters at grid column Column, runs QueueLength slots to the right and ends
// at the terminal, which exits back into the grid.
type StationLayout struct {
	ID           string
	Kind         StationKind
	Tier         int
	Column       int
	QueueLength  int
	HandlingTime float64
}

// ElevatorLayout places an elevator with one queue per tier above the grid
type ElevatorLayout struct {
	ID          string
	Column      int
	Tiers       []int
	QueueLength int
	TravelTime  float64
}

// Layout is a parametric grid warehouse. Even rows and the outer rows are
// aisles, odd inner rows hold storage slots, and the first RestSlots inner
// rows of column 0 are resting locations.
type Layout struct {
	Tiers   int
	Columns int
	Rows    int
	Spacing float64

	Stations  []StationLayout
	Elevators []ElevatorLayout
	RestSlots int

	Pods        int
	PodCapacity int
	SKUs        int
	UnitsPerSKU int
}

func (l Layout) Validate() error {
	switch {
	case l.Tiers < 1:
		return shared.NewValidationError("tiers", "must be at least 1")
	case l.Columns < 3 || l.Rows < 3:
		return shared.NewValidationError("grid", "needs at least 3 columns and 3 rows")
	case l.Spacing <= 0:
		return shared.NewValidationError("spacing", "must be positive")
	case l.RestSlots > l.Rows-2:
		return shared.NewValidationError("rest_slots", "more rest slots than inner rows")
	}
	for _, s := range l.Stations {
		if s.QueueLength < 1 || s.Column < 0 || s.Column+s.QueueLength > l.Columns-1 {
			return shared.NewValidationError("stations", fmt.Sprintf("station %s does not fit the grid", s.ID))
		}
		if s.Tier < 0 || s.Tier >= l.Tiers {
			return shared.NewValidationError("stations", fmt.Sprintf("station %s is on unknown tier %d", s.ID, s.Tier))
		}
	}
	for _, e := range l.Elevators {
		if e.QueueLength < 1 || e.Column < 0 || e.Column+e.QueueLength > l.Columns-1 {
			return shared.NewValidationError("elevators", fmt.Sprintf("elevator %s does not fit the grid", e.ID))
		}
		if len(e.Tiers) < 2 {
			return shared.NewValidationError("elevators", fmt.Sprintf("elevator %s serves fewer than two tiers", e.ID))
		}
	}
	return nil
}

// GridSymbol names the grid waypoint at column c, row r on tier
func GridSymbol(tier, c, r int) string {
	return fmt.Sprintf("T%d-%d-%d", tier, c, r)
}

// Build creates the graph and warehouse described by l
func Build(l Layout) (*Warehouse, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	g := graph.New()
	b := &builder{l: l, g: g}

	for tier := 0; tier < l.Tiers; tier++ {
		if err := b.grid(tier); err != nil {
			return nil, err
		}
	}

	var queues []QueueSpec
	var stations []*Station
	for _, s := range l.Stations {
		slots, err := b.queue("ST-"+s.ID, s.ID, s.Tier, s.Column, s.QueueLength, -1, 0, graph.RoleStation)
		if err != nil {
			return nil, err
		}
		queues = append(queues, QueueSpec{Owner: s.ID, Slots: slots})
		stations = append(stations, NewStation(s.ID, s.Kind, slots[len(slots)-1], s.HandlingTime))
	}

	var elevators []*Elevator
	for _, e := range l.Elevators {
		el := NewElevator(e.ID, e.TravelTime)
		for _, tier := range e.Tiers {
			prefix := fmt.Sprintf("EL-%s-T%d", e.ID, tier)
			slots, err := b.queue(prefix, e.ID, tier, e.Column, e.QueueLength, l.Rows, l.Rows-1, graph.RoleElevator)
			if err != nil {
				return nil, err
			}
			queues = append(queues, QueueSpec{Owner: e.ID, Slots: slots, Elevator: true})
			el.Stops[tier] = slots[len(slots)-1]
		}
		for i := 1; i < len(e.Tiers); i++ {
			if err := g.ConnectBoth(el.Stops[e.Tiers[i-1]], el.Stops[e.Tiers[i]]); err != nil {
				return nil, err
			}
		}
		elevators = append(elevators, el)
	}

	w := New(g)
	for _, s := range stations {
		if err := w.AddStation(s); err != nil {
			return nil, err
		}
	}
	for _, e := range elevators {
		if err := w.AddElevator(e); err != nil {
			return nil, err
		}
	}
	for _, q := range queues {
		w.AddQueue(q)
	}
	if err := b.pods(w); err != nil {
		return nil, err
	}
	return w, nil
}

// StartNodes picks n distinct aisle waypoints for bots, spreading them out
// when the grid allows it.
func StartNodes(w *Warehouse, n int) ([]graph.NodeID, error) {
	aisles := w.Graph.ByRole(graph.RoleNone)
	for _, stride := range []int{2, 1} {
		var picked []graph.NodeID
		for i := 0; i < len(aisles) && len(picked) < n; i += stride {
			picked = append(picked, aisles[i])
		}
		if len(picked) == n {
			return picked, nil
		}
	}
	return nil, shared.NewValidationError("bots", fmt.Sprintf("%d bots do not fit %d aisle waypoints", n, len(aisles)))
}

type builder struct {
	l Layout
	g *graph.Graph
}

func (b *builder) role(c, r int) graph.Role {
	inner := r > 0 && r < b.l.Rows-1
	switch {
	case c == 0 && inner && r <= b.l.RestSlots:
		return graph.RoleRest
	case c > 0 && c < b.l.Columns-1 && inner && r%2 == 1:
		return graph.RoleStorage
	}
	return graph.RoleNone
}

func (b *builder) grid(tier int) error {
	s := b.l.Spacing
	for r := 0; r < b.l.Rows; r++ {
		for c := 0; c < b.l.Columns; c++ {
			if _, err := b.g.AddWaypoint(GridSymbol(tier, c, r), float64(c)*s, float64(r)*s, tier, b.role(c, r), ""); err != nil {
				return err
			}
		}
	}
	for r := 0; r < b.l.Rows; r++ {
		for c := 0; c < b.l.Columns; c++ {
			here := b.at(tier, c, r)
			if c+1 < b.l.Columns {
				if err := b.g.ConnectBoth(here, b.at(tier, c+1, r)); err != nil {
					return err
				}
			}
			if r+1 < b.l.Rows {
				if err := b.g.ConnectBoth(here, b.at(tier, c, r+1)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// queue lays a one-way chain on row `row` (outside the grid) entering from
// grid row `gridRow` at column and leaving at column+length.
func (b *builder) queue(prefix, owner string, tier, column, length, row, gridRow int, terminalRole graph.Role) ([]graph.NodeID, error) {
	s := b.l.Spacing
	y := float64(row) * s
	slots := make([]graph.NodeID, 0, length+1)
	for i := 0; i < length; i++ {
		id, err := b.g.AddWaypoint(fmt.Sprintf("%s-Q%d", prefix, i), float64(column+i)*s, y, tier, graph.RoleQueue, owner)
		if err != nil {
			return nil, err
		}
		slots = append(slots, id)
	}
	terminal, err := b.g.AddWaypoint(prefix, float64(column+length)*s, y, tier, terminalRole, owner)
	if err != nil {
		return nil, err
	}
	slots = append(slots, terminal)

	if err := b.g.Connect(b.at(tier, column, gridRow), slots[0]); err != nil {
		return nil, err
	}
	for i := 1; i < len(slots); i++ {
		if err := b.g.Connect(slots[i-1], slots[i]); err != nil {
			return nil, err
		}
	}
	if err := b.g.Connect(terminal, b.at(tier, column+length, gridRow)); err != nil {
		return nil, err
	}
	return slots, nil
}

func (b *builder) pods(w *Warehouse) error {
	storage := b.g.ByRole(graph.RoleStorage)
	if b.l.Pods > len(storage) {
		return shared.NewValidationError("pods", fmt.Sprintf("%d pods do not fit %d storage slots", b.l.Pods, len(storage)))
	}
	for i := 0; i < b.l.Pods; i++ {
		pod := NewPod(fmt.Sprintf("pod-%03d", i), storage[i], b.l.PodCapacity)
		if b.l.SKUs > 0 {
			pod.Items[fmt.Sprintf("sku-%02d", i%b.l.SKUs)] += b.l.UnitsPerSKU
			pod.Items[fmt.Sprintf("sku-%02d", (i+1)%b.l.SKUs)] += b.l.UnitsPerSKU
		}
		if err := w.AddPod(pod); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) at(tier, c, r int) graph.NodeID {
	id, _ := b.g.ID(GridSymbol(tier, c, r))
	return id
}
