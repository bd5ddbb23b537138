package config

// MetricsConfig controls the Prometheus endpoint serving the robofleet_*
// simulation gauges and command counters
type MetricsConfig struct {
	// Enabled starts the endpoint with `robofleet serve`
	Enabled bool `mapstructure:"enabled"`

	// Port defaults to 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1024,max=65535"`

	// Host defaults to localhost
	Host string `mapstructure:"host"`

	// Path defaults to /metrics
	Path string `mapstructure:"path"`
}
