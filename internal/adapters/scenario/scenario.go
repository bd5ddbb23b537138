// Package scenario reads warehouse scenarios from YAML files.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// File is the YAML document
type File struct {
	Name   string     `yaml:"name"`
	Seed   *int64     `yaml:"seed"`
	Layout LayoutSpec `yaml:"layout"`
	Bots   BotsSpec   `yaml:"bots"`
}

type LayoutSpec struct {
	Tiers       int            `yaml:"tiers"`
	Columns     int            `yaml:"columns"`
	Rows        int            `yaml:"rows"`
	Spacing     float64        `yaml:"spacing"`
	RestSlots   int            `yaml:"rest_slots"`
	Stations    []StationSpec  `yaml:"stations"`
	Elevators   []ElevatorSpec `yaml:"elevators"`
	Pods        int            `yaml:"pods"`
	PodCapacity int            `yaml:"pod_capacity"`
	SKUs        int            `yaml:"skus"`
	UnitsPerSKU int            `yaml:"units_per_sku"`
}

type StationSpec struct {
	ID           string  `yaml:"id"`
	Kind         string  `yaml:"kind"`
	Tier         int     `yaml:"tier"`
	Column       int     `yaml:"column"`
	QueueLength  int     `yaml:"queue_length"`
	HandlingTime float64 `yaml:"handling_time"`
}

type ElevatorSpec struct {
	ID          string  `yaml:"id"`
	Column      int     `yaml:"column"`
	Tiers       []int   `yaml:"tiers"`
	QueueLength int     `yaml:"queue_length"`
	TravelTime  float64 `yaml:"travel_time"`
}

// BotsSpec either places Count bots on spread-out aisle waypoints or lists
// explicit placements
type BotsSpec struct {
	Count      int             `yaml:"count"`
	Kinematics *KinematicsSpec `yaml:"kinematics"`
	Placements []PlacementSpec `yaml:"placements"`
}

type KinematicsSpec struct {
	MaxAcceleration float64 `yaml:"max_acceleration"`
	MaxDeceleration float64 `yaml:"max_deceleration"`
	MaxVelocity     float64 `yaml:"max_velocity"`
	TurnSpeed       float64 `yaml:"turn_speed"`
}

type PlacementSpec struct {
	ID          int             `yaml:"id"`
	Start       string          `yaml:"start"`
	Orientation float64         `yaml:"orientation"`
	Kinematics  *KinematicsSpec `yaml:"kinematics"`
}

// Load reads and builds the scenario at path. Bots without kinematics get
// limits; a scenario without a seed gets seed.
func Load(path string, limits kinematics.Limits, seed int64) (simulation.Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return simulation.Setup{}, fmt.Errorf("failed to read scenario: %w", err)
	}
	setup, err := Parse(data, limits, seed)
	if err != nil {
		return simulation.Setup{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return setup, nil
}

// Parse builds a scenario from YAML. Unknown keys are rejected.
func Parse(data []byte, limits kinematics.Limits, seed int64) (simulation.Setup, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return simulation.Setup{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return f.Build(limits, seed)
}

// Build creates the warehouse and bot placements
func (f *File) Build(limits kinematics.Limits, seed int64) (simulation.Setup, error) {
	layout, err := f.Layout.toLayout()
	if err != nil {
		return simulation.Setup{}, err
	}
	w, err := warehouse.Build(layout)
	if err != nil {
		return simulation.Setup{}, err
	}

	setup := simulation.Setup{Name: f.Name, Warehouse: w, Seed: seed}
	if setup.Name == "" {
		setup.Name = "unnamed"
	}
	if f.Seed != nil {
		setup.Seed = *f.Seed
	}

	fleet := limits
	if f.Bots.Kinematics != nil {
		fleet = f.Bots.Kinematics.toLimits()
	}
	if err := fleet.Validate(); err != nil {
		return simulation.Setup{}, err
	}

	if len(f.Bots.Placements) > 0 {
		seen := make(map[int]bool)
		for _, p := range f.Bots.Placements {
			if seen[p.ID] {
				return simulation.Setup{}, shared.NewValidationError("bots", fmt.Sprintf("duplicate bot id %d", p.ID))
			}
			seen[p.ID] = true
			node, ok := w.Graph.ID(p.Start)
			if !ok {
				return simulation.Setup{}, fmt.Errorf("bot %d start %s: %w", p.ID, p.Start, shared.ErrUnknownWaypoint)
			}
			botLimits := fleet
			if p.Kinematics != nil {
				botLimits = p.Kinematics.toLimits()
				if err := botLimits.Validate(); err != nil {
					return simulation.Setup{}, err
				}
			}
			setup.Bots = append(setup.Bots, simulation.BotSpec{ID: p.ID, Start: node, Orientation: p.Orientation, Limits: botLimits})
		}
		return setup, nil
	}

	if f.Bots.Count < 1 {
		return simulation.Setup{}, shared.NewValidationError("bots", "needs a count or placements")
	}
	starts, err := warehouse.StartNodes(w, f.Bots.Count)
	if err != nil {
		return simulation.Setup{}, err
	}
	for i, n := range starts {
		setup.Bots = append(setup.Bots, simulation.BotSpec{ID: i + 1, Start: n, Limits: fleet})
	}
	return setup, nil
}

func (l LayoutSpec) toLayout() (warehouse.Layout, error) {
	layout := warehouse.Layout{
		Tiers:       l.Tiers,
		Columns:     l.Columns,
		Rows:        l.Rows,
		Spacing:     l.Spacing,
		RestSlots:   l.RestSlots,
		Pods:        l.Pods,
		PodCapacity: l.PodCapacity,
		SKUs:        l.SKUs,
		UnitsPerSKU: l.UnitsPerSKU,
	}
	if layout.Tiers == 0 {
		layout.Tiers = 1
	}
	if layout.Spacing == 0 {
		layout.Spacing = 1
	}
	for _, s := range l.Stations {
		kind, err := parseStationKind(s.Kind)
		if err != nil {
			return warehouse.Layout{}, err
		}
		layout.Stations = append(layout.Stations, warehouse.StationLayout{
			ID:           s.ID,
			Kind:         kind,
			Tier:         s.Tier,
			Column:       s.Column,
			QueueLength:  s.QueueLength,
			HandlingTime: s.HandlingTime,
		})
	}
	for _, e := range l.Elevators {
		layout.Elevators = append(layout.Elevators, warehouse.ElevatorLayout{
			ID:          e.ID,
			Column:      e.Column,
			Tiers:       e.Tiers,
			QueueLength: e.QueueLength,
			TravelTime:  e.TravelTime,
		})
	}
	return layout, nil
}

func parseStationKind(s string) (warehouse.StationKind, error) {
	switch s {
	case "", "output", "pick":
		return warehouse.StationOutput, nil
	case "input", "replenish":
		return warehouse.StationInput, nil
	}
	return 0, shared.NewValidationError("stations", fmt.Sprintf("unknown station kind %q", s))
}

func (k KinematicsSpec) toLimits() kinematics.Limits {
	return kinematics.Limits{
		MaxAcceleration: k.MaxAcceleration,
		MaxDeceleration: k.MaxDeceleration,
		MaxVelocity:     k.MaxVelocity,
		TurnSpeed:       k.TurnSpeed,
	}
}
