package shared

import (
	"math"
	"time"
)

// Forever is the open end of a reservation or a block that never expires.
var Forever = math.Inf(1)

// Clock supplies wall-clock time to the parts of the system that record
// real timestamps (run bookkeeping, persisted events). Simulation time is a
// plain float64 of seconds and never goes through a Clock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock reads the system clock in UTC
type RealClock struct{}

func (r *RealClock) Now() time.Time {
	return time.Now().UTC()
}

func (r *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// MockClock is a manually driven clock for tests
type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time {
	return m.CurrentTime
}

// Sleep advances the clock instead of blocking
func (m *MockClock) Sleep(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

func (m *MockClock) Advance(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// NewMockClock starts at startTime, or at the current time when startTime is zero
func NewMockClock(startTime time.Time) *MockClock {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	return &MockClock{CurrentTime: startTime}
}

func NewRealClock() Clock {
	return &RealClock{}
}

// SimDuration converts simulated seconds to a time.Duration.
func SimDuration(seconds float64) time.Duration {
	if math.IsInf(seconds, 1) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}
