package config

import (
	"os"
	"path/filepath"
	"time"
)

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	setSimulationDefaults(&cfg.Simulation)

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "robofleet.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "robofleet"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "robofleet"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 10
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 2
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "localhost"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// gRPC defaults
	if cfg.GRPC.Address == "" {
		cfg.GRPC.Address = "localhost:50061"
	}
	if cfg.GRPC.ShutdownTimeout == 0 {
		cfg.GRPC.ShutdownTimeout = 10 * time.Second
	}
	if cfg.GRPC.PIDFile == "" {
		cfg.GRPC.PIDFile = filepath.Join(os.TempDir(), "robofleet.pid")
	}
}

func setSimulationDefaults(s *SimulationConfig) {
	if s.Duration == 0 {
		s.Duration = 600
	}
	if s.MinStep == 0 {
		s.MinStep = 0.05
	}
	if s.MaxStep == 0 {
		s.MaxStep = 1
	}
	if s.Tolerance == 0 {
		s.Tolerance = 1e-6
	}
	if s.PathFinder == "" {
		s.PathFinder = "prioritized"
	}

	if s.Navigation.MinClockInterval == 0 {
		s.Navigation.MinClockInterval = 0.5
	}
	if s.Navigation.ReorganizeInterval == 0 {
		s.Navigation.ReorganizeInterval = 10
	}
	if s.Navigation.CruiseBatch == 0 {
		s.Navigation.CruiseBatch = 3
	}

	if s.Agent.RetryDelay == 0 {
		s.Agent.RetryDelay = 0.5
	}
	if s.Agent.AbortAfterFailures == 0 {
		s.Agent.AbortAfterFailures = 6
	}
	if s.Agent.PodTransferTime == 0 {
		s.Agent.PodTransferTime = 1
	}
	if s.Agent.PrepareTimeout == 0 {
		s.Agent.PrepareTimeout = 10
	}

	// a small warehouse robot: 1 m/s², 1.5 m/s, a quarter turn per second
	if s.Kinematics.MaxAcceleration == 0 {
		s.Kinematics.MaxAcceleration = 1
	}
	if s.Kinematics.MaxDeceleration == 0 {
		s.Kinematics.MaxDeceleration = 1
	}
	if s.Kinematics.MaxVelocity == 0 {
		s.Kinematics.MaxVelocity = 1.5
	}
	if s.Kinematics.TurnSpeed == 0 {
		s.Kinematics.TurnSpeed = 1.5707963267948966
	}

	if s.Breaker.FailureThreshold == 0 {
		s.Breaker.FailureThreshold = 3
	}
	if s.Breaker.Timeout == 0 {
		s.Breaker.Timeout = 5 * time.Second
	}
	if s.Breaker.Interval == 0 {
		s.Breaker.Interval = time.Minute
	}

	if s.Search.MaxTime == 0 {
		s.Search.MaxTime = 300
	}
	if s.Search.WaitStep == 0 {
		s.Search.WaitStep = 0.5
	}
	if s.Search.MaxExpansions == 0 {
		s.Search.MaxExpansions = 20000
	}

	if s.Dispatch.OrderInterval == 0 {
		s.Dispatch.OrderInterval = 5
	}
	if s.Dispatch.ReplenishEvery == 0 {
		s.Dispatch.ReplenishEvery = 4
	}
	if s.Dispatch.Batch == 0 {
		s.Dispatch.Batch = 3
	}
	if s.Dispatch.RestChance == 0 {
		s.Dispatch.RestChance = 0.2
	}
	if s.Dispatch.RestDuration == 0 {
		s.Dispatch.RestDuration = 15
	}
}
