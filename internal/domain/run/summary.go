package run

import (
	"time"

	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// Summary is a run as read back from storage
type Summary struct {
	ID               string
	Scenario         string
	Seed             int64
	Bots             int
	Status           shared.LifecycleStatus
	Error            string
	SimulatedSeconds float64
	Stats            shared.SimulationStats
	CreatedAt        time.Time
	StartedAt        *time.Time
	StoppedAt        *time.Time
}
