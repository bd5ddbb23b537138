package metrics_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/adapters/metrics"
	"github.com/andrescamacho/robofleet/internal/infrastructure/config"
)

func TestServer_ExposesRegistry(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(func() { metrics.Registry = nil })
	require.NoError(t, metrics.NewSimulationMetricsCollector().Register())

	srv, err := metrics.Listen(config.MetricsConfig{Enabled: true, Host: "127.0.0.1", Port: 0, Path: "/metrics"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, time.Second) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "robofleet_simulation_simulated_seconds")

	cancel()
	assert.NoError(t, <-served)
}
