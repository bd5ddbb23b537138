package config

import "time"

// GRPCConfig holds the health server configuration of `robofleet serve`
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Listen address (host:port)
	Address string `mapstructure:"address" validate:"required"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`

	// PID file guarding against a second server on the same host
	PIDFile string `mapstructure:"pid_file" validate:"required"`
}
