package simulation

import (
	"math/rand"
	"sort"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// DispatchSettings tunes the demo dispatcher
type DispatchSettings struct {
	// OrderInterval is the simulated time between two generated orders
	OrderInterval float64
	// ReplenishEvery makes every n-th order a store order; zero disables
	// replenishment
	ReplenishEvery int
	// Batch is how many requests one station visit serves at most
	Batch int
	// RestChance is the probability an idle bot without work goes resting
	RestChance   float64
	RestDuration float64
}

func DefaultDispatchSettings() DispatchSettings {
	return DispatchSettings{
		OrderInterval:  5,
		ReplenishEvery: 4,
		Batch:          3,
		RestChance:     0.2,
		RestDuration:   15,
	}
}

// Dispatcher is a seeded, non-optimising assignment policy used to drive
// the engine: it generates orders and hands them to idle bots. Given the
// same seed and scenario it makes the same decisions.
type Dispatcher struct {
	w        *warehouse.Warehouse
	rng      *rand.Rand
	settings DispatchSettings
	logger   common.Logger

	nextOrder float64
	orders    int
}

func NewDispatcher(w *warehouse.Warehouse, seed int64, settings DispatchSettings, logger common.Logger) *Dispatcher {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	if settings.Batch < 1 {
		settings.Batch = 1
	}
	return &Dispatcher{
		w:        w,
		rng:      rand.New(rand.NewSource(seed)),
		settings: settings,
		logger:   logger,
	}
}

// Orders is the number of requests generated so far
func (d *Dispatcher) Orders() int {
	return d.orders
}

// Dispatch generates the orders due by the controller's time and assigns
// work to idle bots in id order
func (d *Dispatcher) Dispatch(c *Controller) {
	now := c.Now()
	if d.settings.OrderInterval > 0 {
		for d.nextOrder <= now {
			d.generateOrder()
			d.nextOrder += d.settings.OrderInterval
		}
	}

	bots := c.Bots()
	busy := busyPods(bots)
	for _, b := range bots {
		if !b.IsIdle() {
			continue
		}
		t := d.pick(b, busy)
		if t == nil {
			continue
		}
		if err := c.AssignTask(b.ID(), t); err != nil {
			d.giveBack(t)
			d.logger.Log("WARNING", "dispatch failed", map[string]interface{}{
				"bot_id": b.ID(),
				"task":   t.String(),
				"error":  err.Error(),
			})
			continue
		}
		switch tk := t.(type) {
		case *task.Extract:
			busy[tk.Pod] = true
		case *task.Insert:
			busy[tk.Pod] = true
		}
	}
}

func (d *Dispatcher) generateOrder() {
	ids := d.w.PodIDs()
	if len(ids) == 0 {
		return
	}
	pod := d.w.Pods[ids[d.rng.Intn(len(ids))]]
	skus := pod.SKUs()
	d.orders++
	if d.settings.ReplenishEvery > 0 && d.orders%d.settings.ReplenishEvery == 0 && d.hasStation(warehouse.StationInput) {
		sku := "sku-new"
		if len(skus) > 0 {
			sku = skus[d.rng.Intn(len(skus))]
		}
		d.w.NewRequest(warehouse.RequestStore, sku, 1+d.rng.Intn(2))
		return
	}
	if len(skus) == 0 {
		return
	}
	sku := skus[d.rng.Intn(len(skus))]
	qty := 1 + d.rng.Intn(2)
	if pod.Items[sku] < qty {
		qty = pod.Items[sku]
	}
	d.w.NewRequest(warehouse.RequestPick, sku, qty)
}

// pick chooses the next task for an idle bot, nil when there is nothing
// worth doing
func (d *Dispatcher) pick(b *agent.Bot, busy map[string]bool) task.Task {
	if b.Pod() != "" {
		return &task.ParkPod{Pod: b.Pod(), Storage: graph.NoNode}
	}
	g := d.w.Graph
	for _, st := range d.stations() {
		if !g.SameTier(b.CurrentNode(), st.Terminal) {
			continue
		}
		kind := warehouse.RequestPick
		if st.Kind == warehouse.StationInput {
			kind = warehouse.RequestStore
		}
		for _, podID := range d.w.PodIDs() {
			pod := d.w.Pods[podID]
			if busy[podID] || pod.IsCarried() || !g.SameTier(b.CurrentNode(), pod.Node) {
				continue
			}
			reqs := d.w.TakeRequests(kind, pod, d.settings.Batch)
			if len(reqs) == 0 {
				continue
			}
			if st.Kind == warehouse.StationInput {
				return &task.Insert{Pod: podID, Station: st.ID, Requests: reqs, Storage: graph.NoNode}
			}
			return &task.Extract{Pod: podID, Station: st.ID, Requests: reqs, Storage: graph.NoNode}
		}
	}
	if len(g.ByRole(graph.RoleRest)) == 0 || b.LastRestLocation() == b.CurrentNode() {
		return nil
	}
	if d.rng.Float64() < d.settings.RestChance {
		return &task.Rest{Location: graph.NoNode, Duration: d.settings.RestDuration}
	}
	return nil
}

func (d *Dispatcher) giveBack(t task.Task) {
	var reqs []*warehouse.Request
	switch tk := t.(type) {
	case *task.Extract:
		reqs = tk.Requests
	case *task.Insert:
		reqs = tk.Requests
	}
	for _, r := range reqs {
		d.w.ReturnRequest(r)
	}
}

func (d *Dispatcher) stations() []*warehouse.Station {
	out := make([]*warehouse.Station, 0, len(d.w.Stations))
	for _, s := range d.w.Stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Dispatcher) hasStation(kind warehouse.StationKind) bool {
	for _, s := range d.w.Stations {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// busyPods lists the pods some bot is already fetching or carrying
func busyPods(bots []*agent.Bot) map[string]bool {
	busy := make(map[string]bool)
	for _, b := range bots {
		if b.Pod() != "" {
			busy[b.Pod()] = true
		}
		switch tk := b.Task().(type) {
		case *task.Extract:
			busy[tk.Pod] = true
		case *task.Insert:
			busy[tk.Pod] = true
		}
	}
	return busy
}
