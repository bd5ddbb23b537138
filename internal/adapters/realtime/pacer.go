// Package realtime paces a simulation against the wall clock.
package realtime

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// tokens are simulated milliseconds
const (
	tokensPerSecond = 1000
	burst           = tokensPerSecond
)

// Pacer holds a simulation to factor simulated seconds per wall second
type Pacer struct {
	limiter *rate.Limiter
	last    float64
	owed    float64
}

// NewPacer builds a pacer; factor 1 is real time
func NewPacer(factor float64) (*Pacer, error) {
	if factor <= 0 {
		return nil, shared.NewValidationError("realtime_factor", "must be positive")
	}
	l := rate.NewLimiter(rate.Limit(factor*tokensPerSecond), burst)
	// start empty so the first simulated second is paced too
	l.AllowN(time.Now(), burst)
	return &Pacer{limiter: l}, nil
}

// Pace blocks until the wall clock has caught up with simTime
func (p *Pacer) Pace(ctx context.Context, simTime float64) error {
	if simTime <= p.last {
		return nil
	}
	p.owed += (simTime - p.last) * tokensPerSecond
	p.last = simTime
	for p.owed >= 1 {
		n := int(p.owed)
		if n > burst {
			n = burst
		}
		if err := p.limiter.WaitN(ctx, n); err != nil {
			return fmt.Errorf("pacing interrupted: %w", err)
		}
		p.owed -= float64(n)
	}
	return nil
}
