package config

import "time"

// SimulationConfig holds the simulation kernel settings
type SimulationConfig struct {
	// Simulated seconds per run
	Duration float64 `mapstructure:"duration" validate:"gt=0"`

	// Seed for the demo dispatcher
	Seed int64 `mapstructure:"seed"`

	// Step bounds in simulated seconds
	MinStep float64 `mapstructure:"min_step" validate:"gt=0"`
	MaxStep float64 `mapstructure:"max_step" validate:"gt=0,gtefield=MinStep"`

	// Reservation table slack in seconds
	Tolerance float64 `mapstructure:"tolerance" validate:"gte=0"`

	// Path finder: prioritized (space-time A*) or shortest (static routes)
	PathFinder string `mapstructure:"path_finder" validate:"required,oneof=prioritized shortest"`

	// Dimensionless path finding ignores other bots' reservations
	Dimensionless bool `mapstructure:"dimensionless"`

	// Multiple of wall-clock speed when pacing; 0 runs unpaced
	RealtimeFactor float64 `mapstructure:"realtime_factor" validate:"gte=0"`

	Navigation NavigationConfig `mapstructure:"navigation"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Kinematics KinematicsConfig `mapstructure:"kinematics"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Search     SearchConfig     `mapstructure:"search"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
}

// NavigationConfig tunes the path manager
type NavigationConfig struct {
	MinClockInterval   float64 `mapstructure:"min_clock_interval" validate:"gte=0"`
	ReorganizeInterval float64 `mapstructure:"reorganize_interval" validate:"gte=0"`
	// Queue members advanced per cruise
	CruiseBatch int `mapstructure:"cruise_batch" validate:"min=1"`
}

// AgentConfig tunes bot behaviour
type AgentConfig struct {
	RetryDelay         float64 `mapstructure:"retry_delay" validate:"gt=0"`
	AbortAfterFailures int     `mapstructure:"abort_after_failures" validate:"min=0"`
	PodTransferTime    float64 `mapstructure:"pod_transfer_time" validate:"gte=0"`
	PrepareTimeout     float64 `mapstructure:"prepare_timeout" validate:"gte=0"`
}

// KinematicsConfig is the default bot limits for scenarios that omit them
type KinematicsConfig struct {
	MaxAcceleration float64 `mapstructure:"max_acceleration" validate:"gt=0"`
	MaxDeceleration float64 `mapstructure:"max_deceleration" validate:"gt=0"`
	MaxVelocity     float64 `mapstructure:"max_velocity" validate:"gt=0"`
	TurnSpeed       float64 `mapstructure:"turn_speed" validate:"gt=0"`
}

// BreakerConfig guards the path finder; when it trips the shortest-route
// finder takes over
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"min=1"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Interval         time.Duration `mapstructure:"interval"`
}

// SearchConfig tunes the space-time search of the prioritized finder
type SearchConfig struct {
	MaxTime       float64 `mapstructure:"max_time" validate:"gt=0"`
	WaitStep      float64 `mapstructure:"wait_step" validate:"gt=0"`
	MaxExpansions int     `mapstructure:"max_expansions" validate:"min=1"`
}

// DispatchConfig tunes the demo order generator
type DispatchConfig struct {
	OrderInterval  float64 `mapstructure:"order_interval" validate:"gte=0"`
	ReplenishEvery int     `mapstructure:"replenish_every" validate:"min=0"`
	Batch          int     `mapstructure:"batch" validate:"min=1"`
	RestChance     float64 `mapstructure:"rest_chance" validate:"gte=0,lte=1"`
	RestDuration   float64 `mapstructure:"rest_duration" validate:"gte=0"`
}
