package navigation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/queueing"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// Settings tunes the path manager
type Settings struct {
	// MinClockInterval is the minimum simulation time between two
	// re-optimisation sweeps
	MinClockInterval float64
	// ReorganizeInterval is how often stale reservations are purged
	ReorganizeInterval float64
	// CruiseBatch caps how many queue slots a bot advances at once
	CruiseBatch int
	// Dimensionless plans every bot on its own, ignoring the others
	Dimensionless bool
}

func DefaultSettings() Settings {
	return Settings{
		MinClockInterval:   0.5,
		ReorganizeInterval: 10,
		CruiseBatch:        3,
	}
}

// PathManager owns the reservation table and the queue managers, runs
// re-optimisation sweeps and serves the bots' navigation requests.
type PathManager struct {
	w        *warehouse.Warehouse
	g        *graph.Graph
	table    *reservation.Table
	finder   *guardedFinder
	settings Settings
	stats    *shared.SimulationStats
	logger   common.Logger
	tracer   trace.Tracer

	bots  map[int]*agent.Bot
	order []int

	queues     []*queueing.Manager
	byTerminal map[graph.NodeID]*queueing.Manager
	zone       map[graph.NodeID]*queueing.Manager

	lastSweep      float64
	lastReorganize float64

	searches map[graph.NodeID]*graph.ReverseSearch
}

// Option configures a PathManager
type Option func(*PathManager)

func WithLogger(logger common.Logger) Option {
	return func(pm *PathManager) { pm.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(pm *PathManager) { pm.tracer = tracer }
}

func WithStats(stats *shared.SimulationStats) Option {
	return func(pm *PathManager) { pm.stats = stats }
}

// WithFallback sets the finder used while the primary one is failing
func WithFallback(fallback routing.PathFinder, breaker BreakerSettings) Option {
	return func(pm *PathManager) {
		pm.finder.fallback = fallback
		pm.finder.breaker = newBreaker(breaker, pm)
	}
}

// NewPathManager builds the queue managers of w and an empty reservation
// table. Bots are added with AddBot.
func NewPathManager(w *warehouse.Warehouse, finder routing.PathFinder, tolerance float64, settings Settings, opts ...Option) *PathManager {
	pm := &PathManager{
		w:              w,
		g:              w.Graph,
		table:          reservation.NewTable(tolerance),
		finder:         &guardedFinder{primary: finder},
		settings:       settings,
		stats:          shared.NewSimulationStats(),
		logger:         common.NoOpLogger(),
		tracer:         otel.Tracer("robofleet/navigation"),
		bots:           make(map[int]*agent.Bot),
		byTerminal:     make(map[graph.NodeID]*queueing.Manager),
		zone:           make(map[graph.NodeID]*queueing.Manager),
		lastSweep:      math.Inf(-1),
		lastReorganize: 0,
		searches:       make(map[graph.NodeID]*graph.ReverseSearch),
	}
	pm.finder.failures = func() { pm.stats.PathFinderFailures++ }
	for _, opt := range opts {
		opt(pm)
	}
	for _, spec := range w.Queues {
		var gate func() bool
		if spec.Elevator {
			if e, ok := w.Elevators[spec.Owner]; ok {
				gate = e.Open
			}
		}
		q := queueing.NewManager(spec.Owner, spec.Slots, gate, settings.CruiseBatch)
		pm.queues = append(pm.queues, q)
		pm.byTerminal[q.Terminal()] = q
		for _, slot := range spec.Slots {
			pm.zone[slot] = q
		}
	}
	return pm
}

// AddBot registers b and reserves its start node indefinitely
func (pm *PathManager) AddBot(b *agent.Bot, now float64) error {
	if _, exists := pm.bots[b.ID()]; exists {
		return shared.NewValidationError("bot", fmt.Sprintf("bot %d already registered", b.ID()))
	}
	hold := []reservation.Interval{{Node: b.CurrentNode(), Start: now, End: shared.Forever}}
	if ok, blockers := pm.table.Register(b.ID(), hold); !ok {
		return shared.NewReservationConflictError(b.ID(), blockers)
	}
	pm.bots[b.ID()] = b
	pm.order = append(pm.order, b.ID())
	sort.Ints(pm.order)
	return nil
}

// Bot returns the bot with id
func (pm *PathManager) Bot(id int) (*agent.Bot, bool) {
	b, ok := pm.bots[id]
	return b, ok
}

// Bots returns the bots in ascending id order
func (pm *PathManager) Bots() []*agent.Bot {
	out := make([]*agent.Bot, len(pm.order))
	for i, id := range pm.order {
		out[i] = pm.bots[id]
	}
	return out
}

// Table exposes the reservation table read-only
func (pm *PathManager) Table() reservation.View {
	return pm.table
}

// Validate checks the reservation exclusivity invariant
func (pm *PathManager) Validate() error {
	return pm.table.Validate()
}

func (pm *PathManager) Queues() []*queueing.Manager {
	return pm.queues
}

// FinderState reports the path finder circuit breaker state
func (pm *PathManager) FinderState() string {
	return pm.finder.State()
}

// Update runs one path-management round: queue managers first, then table
// housekeeping and, when due and needed, a re-optimisation sweep.
func (pm *PathManager) Update(ctx context.Context, last, now float64) error {
	members := make([]queueing.Member, 0, len(pm.order))
	for _, b := range pm.Bots() {
		members = append(members, b)
	}
	for _, q := range pm.queues {
		q.Update(now, members)
	}

	if now-pm.lastReorganize >= pm.settings.ReorganizeInterval {
		purged := pm.table.Reorganize(now)
		pm.lastReorganize = now
		if purged > 0 {
			pm.logger.Log("DEBUG", "reservations purged", map[string]interface{}{"count": purged, "time": now})
		}
	}

	if now-pm.lastSweep < pm.settings.MinClockInterval {
		return nil
	}
	flagged := pm.flagged(now)
	if len(flagged) == 0 {
		return nil
	}
	pm.lastSweep = now
	return pm.sweep(ctx, now, flagged)
}

// queued reports whether b is handled by a queue manager right now
func (pm *PathManager) queued(b *agent.Bot) bool {
	q, ok := pm.byTerminal[b.DestinationNode()]
	return ok && q.Manages(b.ID())
}

// planningGoal maps a queue terminal onto the queue's entry: path finders
// only bring bots to the tail of a queue.
func (pm *PathManager) planningGoal(b *agent.Bot) graph.NodeID {
	dest := b.DestinationNode()
	if q, ok := pm.byTerminal[dest]; ok && !b.BypassesQueue() {
		return q.Entry()
	}
	return dest
}

func (pm *PathManager) flagged(now float64) map[int]bool {
	out := make(map[int]bool)
	for _, b := range pm.Bots() {
		if !b.NeedsReoptimization() || b.Fixed() || pm.queued(b) {
			continue
		}
		goal := pm.planningGoal(b)
		start, _ := b.PlanningStart(now)
		if goal == graph.NoNode || goal == start {
			continue
		}
		out[b.ID()] = true
	}
	return out
}

func (pm *PathManager) snapshot(b *agent.Bot, now float64, flagged bool) routing.AgentSnapshot {
	start, startTime := b.PlanningStart(now)
	return routing.AgentSnapshot{
		ID:          b.ID(),
		Start:       start,
		StartTime:   startTime,
		Destination: pm.planningGoal(b),
		Orientation: b.Orientation(),
		Kinematics:  b.Kinematics(),
		Chain:       pm.table.Chain(b.ID()),
		Fixed:       !flagged,
		Resting:     b.IsResting(),
	}
}

func (pm *PathManager) sweep(ctx context.Context, now float64, flagged map[int]bool) error {
	ctx, span := pm.tracer.Start(ctx, "navigation.reoptimize", trace.WithAttributes(
		attribute.Float64("sim.time", now),
		attribute.Int("bots.flagged", len(flagged)),
	))
	defer span.End()

	var requests []routing.Request
	if pm.settings.Dimensionless {
		for _, id := range pm.order {
			if flagged[id] {
				requests = append(requests, routing.Request{
					Now:    now,
					Graph:  pm.g,
					Agents: []routing.AgentSnapshot{pm.snapshot(pm.bots[id], now, true)},
				})
			}
		}
	} else {
		req := routing.Request{Now: now, Graph: pm.g, Reservations: pm.table}
		for _, b := range pm.Bots() {
			req.Agents = append(req.Agents, pm.snapshot(b, now, flagged[b.ID()]))
		}
		requests = append(requests, req)
	}

	assigned := 0
	for _, req := range requests {
		paths, err := pm.finder.FindPaths(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			pm.logger.Log("ERROR", "path finding failed", map[string]interface{}{"error": err.Error(), "time": now})
			return fmt.Errorf("re-optimisation at %.2f: %w", now, err)
		}
		for id, p := range paths {
			b, ok := pm.bots[id]
			if !ok || !flagged[id] || p.IsEmpty() {
				continue
			}
			b.AssignPath(p)
			assigned++
		}
	}
	// a bot left without a path is flagged again by its Move once the retry
	// delay has passed
	for id := range flagged {
		pm.bots[id].ClearReoptimization()
	}

	pm.stats.ReoptimizationSweeps++
	pm.stats.PathsAssigned += assigned
	span.SetAttributes(attribute.Int("paths.assigned", assigned))
	return nil
}
