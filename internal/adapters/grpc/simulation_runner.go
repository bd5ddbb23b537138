package grpc

import (
	"context"
	"sync"
)

// Executor runs a simulation for duration simulated seconds;
// *simulation.Session is one
type Executor interface {
	Execute(ctx context.Context, duration float64) error
}

// SimulationRunner executes a simulation in a background goroutine and keeps
// the health status in step with it
type SimulationRunner struct {
	exec     Executor
	duration float64
	server   *Server

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}

	mu      sync.Mutex
	started bool
	err     error
}

func NewSimulationRunner(parent context.Context, exec Executor, duration float64, server *Server) *SimulationRunner {
	ctx, cancel := context.WithCancel(parent)
	return &SimulationRunner{
		exec:       exec,
		duration:   duration,
		server:     server,
		ctx:        ctx,
		cancelFunc: cancel,
		done:       make(chan struct{}),
	}
}

// Start launches the run; a runner runs once
func (r *SimulationRunner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.server.SetServing(true)

	go func() {
		defer close(r.done)
		err := r.exec.Execute(r.ctx, r.duration)
		r.server.SetServing(false)
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}()
}

// Stop cancels the run
func (r *SimulationRunner) Stop() {
	r.cancelFunc()
}

// Done is closed when the run has ended
func (r *SimulationRunner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run has ended and returns its error
func (r *SimulationRunner) Wait() error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return nil
	}
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
