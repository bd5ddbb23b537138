package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/andrescamacho/robofleet/internal/application/common"
)

// ServiceName is the health service name reporting the simulation state
const ServiceName = "robofleet.simulation"

// Server exposes the standard gRPC health service. The simulation service
// reports SERVING while a run is active.
type Server struct {
	listener        net.Listener
	grpcServer      *grpc.Server
	health          *health.Server
	logger          common.Logger
	shutdownTimeout time.Duration
}

// Listen opens a TCP listener on address (host:port)
func Listen(address string) (net.Listener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return listener, nil
}

func NewServer(listener net.Listener, logger common.Logger, shutdownTimeout time.Duration) *Server {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	s := &Server{
		listener:        listener,
		grpcServer:      grpc.NewServer(),
		health:          health.NewServer(),
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing flips the simulation service status
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks until ctx is done or serving fails, then stops gracefully.
// A graceful stop that outlasts the shutdown timeout is forced.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Log("INFO", "gRPC health server listening", map[string]interface{}{
		"address": s.listener.Addr().String(),
	})

	errChan := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(s.shutdownTimeout):
		s.logger.Log("WARNING", "graceful shutdown timed out, forcing stop", nil)
		s.grpcServer.Stop()
	}
	return nil
}
