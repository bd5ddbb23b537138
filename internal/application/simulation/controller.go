package simulation

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/trace"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/navigation"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// TaskListener is told how every task ends
type TaskListener = agent.TaskListener

// Settings tunes the simulation kernel
type Settings struct {
	// MinStep and MaxStep clamp the time advanced by one Step
	MinStep float64
	MaxStep float64
	// Tolerance is the reservation table slack in seconds
	Tolerance  float64
	Navigation navigation.Settings
	Agent      agent.Settings
}

func DefaultSettings() Settings {
	return Settings{
		MinStep:    0.05,
		MaxStep:    1,
		Tolerance:  kinematics.DefaultTolerance,
		Navigation: navigation.DefaultSettings(),
		Agent:      agent.DefaultSettings(),
	}
}

// Controller owns one simulated warehouse and steps it through time. It is
// single-threaded: every method must be called from the goroutine that
// steps the simulation.
type Controller struct {
	w        *warehouse.Warehouse
	paths    *navigation.PathManager
	env      *agent.Env
	stats    *shared.SimulationStats
	settings Settings
	logger   common.Logger

	listeners *listeners
	navOpts   []navigation.Option

	now    float64
	halted error
}

// Option configures a Controller
type Option func(*Controller)

func WithLogger(logger common.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithListener adds a task listener; listeners are called in the order
// they were added
func WithListener(l TaskListener) Option {
	return func(c *Controller) { c.listeners.add(l) }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) { c.navOpts = append(c.navOpts, navigation.WithTracer(tracer)) }
}

// WithFallbackFinder guards the path finder with a circuit breaker that
// switches to fallback while the primary one fails
func WithFallbackFinder(fallback routing.PathFinder, breaker navigation.BreakerSettings) Option {
	return func(c *Controller) { c.navOpts = append(c.navOpts, navigation.WithFallback(fallback, breaker)) }
}

// NewController wires a path manager planning with finder around w
func NewController(w *warehouse.Warehouse, finder routing.PathFinder, settings Settings, opts ...Option) *Controller {
	c := &Controller{
		w:         w,
		stats:     shared.NewSimulationStats(),
		settings:  settings,
		logger:    common.NoOpLogger(),
		listeners: &listeners{},
	}
	for _, opt := range opts {
		opt(c)
	}
	navOpts := append([]navigation.Option{
		navigation.WithStats(c.stats),
		navigation.WithLogger(c.logger),
	}, c.navOpts...)
	c.paths = navigation.NewPathManager(w, finder, settings.Tolerance, settings.Navigation, navOpts...)
	c.env = &agent.Env{
		Nav:       c.paths,
		Warehouse: w,
		Listener:  c.listeners,
		Stats:     c.stats,
		Settings:  settings.Agent,
	}
	return c
}

// AddBot places a new bot on node and reserves the node for it
func (c *Controller) AddBot(id int, node graph.NodeID, limits kinematics.Limits, orientation float64) (*agent.Bot, error) {
	kin, err := kinematics.NewModel(limits, c.settings.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("bot %d: %w", id, err)
	}
	b, err := agent.NewBot(id, c.w.Graph, node, kin, orientation)
	if err != nil {
		return nil, err
	}
	if err := c.paths.AddBot(b, c.now); err != nil {
		return nil, fmt.Errorf("bot %d: %w", id, err)
	}
	return b, nil
}

func (c *Controller) Now() float64                    { return c.now }
func (c *Controller) Warehouse() *warehouse.Warehouse { return c.w }
func (c *Controller) Paths() *navigation.PathManager  { return c.paths }
func (c *Controller) Bots() []*agent.Bot              { return c.paths.Bots() }
func (c *Controller) Stats() shared.SimulationStats   { return c.stats.Snapshot() }
func (c *Controller) Halted() error                   { return c.halted }

// Step advances the simulation to its next event, clamped to
// [MinStep, MaxStep]. An invariant violation raised by any bot halts the
// controller and is returned; later calls return the same error.
func (c *Controller) Step(ctx context.Context) (err error) {
	if c.halted != nil {
		return c.halted
	}
	next := c.nextEvent()
	dt := c.settings.MaxStep
	if !math.IsInf(next, 1) {
		dt = math.Min(math.Max(next-c.now, c.settings.MinStep), c.settings.MaxStep)
	}
	return c.AdvanceTo(ctx, c.now+dt)
}

// AdvanceTo moves simulation time to t in one step
func (c *Controller) AdvanceTo(ctx context.Context, t float64) (err error) {
	if c.halted != nil {
		return c.halted
	}
	if t < c.now {
		return shared.NewValidationError("time", fmt.Sprintf("cannot step back from %.3f to %.3f", c.now, t))
	}
	defer func() {
		if r := recover(); r != nil {
			v, ok := shared.AsInvariantViolation(r)
			if !ok {
				panic(r)
			}
			c.logger.Log("ERROR", "invariant violation", map[string]interface{}{
				"bot_id": v.BotID,
				"reason": v.Reason,
				"time":   t,
			})
			c.halted = v
			err = v
		}
	}()

	last := c.now
	c.now = t
	bots := c.paths.Bots()
	for _, b := range bots {
		b.Advance(c.w.Graph, t, c.stats)
	}
	c.w.Process(t)
	if err := c.paths.Update(ctx, last, t); err != nil {
		return err
	}
	for _, b := range bots {
		b.Update(last, t, c.env)
	}
	c.stats.SimulatedTime = t
	c.stats.Steps++
	return nil
}

// Run steps until simulation time reaches until or ctx is done
func (c *Controller) Run(ctx context.Context, until float64) error {
	for c.now < until {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) nextEvent() float64 {
	next := c.w.NextEvent()
	for _, b := range c.paths.Bots() {
		next = math.Min(next, b.NextEvent(c.now))
	}
	return next
}

func (c *Controller) bot(id int) (*agent.Bot, error) {
	b, ok := c.paths.Bot(id)
	if !ok {
		return nil, fmt.Errorf("bot %d: %w", id, shared.ErrUnknownBot)
	}
	return b, nil
}

// AssignTask hands t to an idle bot; it starts acting on the next step
func (c *Controller) AssignTask(botID int, t task.Task) error {
	b, err := c.bot(botID)
	if err != nil {
		return err
	}
	if err := b.AssignTask(t, c.now, c.env); err != nil {
		return err
	}
	c.logger.Log("INFO", "task assigned", map[string]interface{}{
		"bot_id": botID,
		"task":   t.String(),
		"time":   c.now,
	})
	return nil
}

// CancelTask cancels the bot's running task
func (c *Controller) CancelTask(botID int) error {
	b, err := c.bot(botID)
	if err != nil {
		return err
	}
	b.CancelTask(c.now, c.env)
	return nil
}

func (c *Controller) IsResting(botID int) (bool, error) {
	b, err := c.bot(botID)
	if err != nil {
		return false, err
	}
	return b.IsResting(), nil
}

// Position returns the bot's coordinates and tier
func (c *Controller) Position(botID int) (x, y float64, tier int, err error) {
	b, err := c.bot(botID)
	if err != nil {
		return 0, 0, 0, err
	}
	x, y = b.Position()
	return x, y, b.Tier(), nil
}

// PathOf returns a copy of the bot's remaining path
func (c *Controller) PathOf(botID int) (*routing.Path, error) {
	b, err := c.bot(botID)
	if err != nil {
		return nil, err
	}
	return b.Path(), nil
}

// PredictArrival estimates when the bot could reach goal along a fresh
// shortest route
func (c *Controller) PredictArrival(botID int, goal graph.NodeID) (float64, error) {
	b, err := c.bot(botID)
	if err != nil {
		return 0, err
	}
	if !c.w.Graph.Valid(goal) {
		return 0, fmt.Errorf("goal %d: %w", goal, shared.ErrUnknownWaypoint)
	}
	return c.paths.PredictArrivalTime(b, goal, c.now, true), nil
}
