package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

// BreakerSettings configures the circuit breaker around the primary path
// finder
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // failure count reset interval (0 = never)
	Timeout          time.Duration // open → half-open delay
	FailureThreshold uint32        // consecutive failures that trip the breaker
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "path-finder",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
	}
}

func newBreaker(s BreakerSettings, pm *PathManager) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			pm.logger.Log("WARNING", "path finder circuit breaker state changed", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
}

// guardedFinder runs the primary finder through a circuit breaker and
// answers with the fallback finder while the primary is failing
type guardedFinder struct {
	primary  routing.PathFinder
	fallback routing.PathFinder
	breaker  *gobreaker.CircuitBreaker
	failures func()
}

func (f *guardedFinder) FindPaths(ctx context.Context, req routing.Request) (map[int]*routing.Path, error) {
	if f.breaker == nil {
		paths, err := f.primary.FindPaths(ctx, req)
		if err != nil && f.failures != nil {
			f.failures()
		}
		return paths, err
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.primary.FindPaths(ctx, req)
	})
	if err == nil {
		return result.(map[int]*routing.Path), nil
	}
	if f.failures != nil {
		f.failures()
	}
	if f.fallback == nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("path finder unavailable: %w", err)
		}
		return nil, err
	}
	return f.fallback.FindPaths(ctx, req)
}

// State reports the breaker state, "closed" when no breaker is configured
func (f *guardedFinder) State() string {
	if f.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return f.breaker.State().String()
}
