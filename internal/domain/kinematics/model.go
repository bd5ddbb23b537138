package kinematics

import (
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// DefaultTolerance is the numerical slack used when comparing distances,
// times and angles.
const DefaultTolerance = 1e-6

// Limits are the physical limits of one robot
type Limits struct {
	MaxAcceleration float64 // m/s²
	MaxDeceleration float64 // m/s²
	MaxVelocity     float64 // m/s
	TurnSpeed       float64 // rad/s
}

func (l Limits) Validate() error {
	switch {
	case l.MaxAcceleration <= 0:
		return shared.NewValidationError("max_acceleration", "must be positive")
	case l.MaxDeceleration <= 0:
		return shared.NewValidationError("max_deceleration", "must be positive")
	case l.MaxVelocity <= 0:
		return shared.NewValidationError("max_velocity", "must be positive")
	case l.TurnSpeed <= 0:
		return shared.NewValidationError("turn_speed", "must be positive")
	}
	return nil
}

// Model derives motion from Limits. It holds no mutable state, so a single
// Model can be shared by every robot with the same limits.
type Model struct {
	limits    Limits
	tolerance float64
}

// NewModel validates limits and returns a model. A non-positive tolerance
// selects DefaultTolerance.
func NewModel(limits Limits, tolerance float64) (*Model, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Model{limits: limits, tolerance: tolerance}, nil
}

func (m *Model) Limits() Limits {
	return m.limits
}

func (m *Model) Tolerance() float64 {
	return m.tolerance
}

// Plan returns the profile that covers distance d starting at speed v0 and
// ending at standstill.
//
// The profile accelerates to a peak speed, cruises and decelerates. When v0
// is already too high to stop within d at the nominal deceleration, the
// profile is a single deceleration phase with the deceleration needed to stop
// exactly at d. Initial speeds above MaxVelocity are clamped.
func (m *Model) Plan(v0, d float64) Profile {
	if v0 < 0 {
		v0 = 0
	}
	if v0 > m.limits.MaxVelocity {
		v0 = m.limits.MaxVelocity
	}
	if d <= m.tolerance {
		return Profile{}
	}

	a := m.limits.MaxAcceleration
	b := m.limits.MaxDeceleration

	if v0*v0 >= 2*b*d {
		return Profile{
			startSpeed: v0,
			peakSpeed:  v0,
			decel:      v0 * v0 / (2 * d),
			decelTime:  2 * d / v0,
			decelDist:  d,
		}
	}

	vp := math.Sqrt((d + v0*v0/(2*a)) / (1/(2*a) + 1/(2*b)))
	if vp > m.limits.MaxVelocity {
		vp = m.limits.MaxVelocity
	}

	accelDist := (vp*vp - v0*v0) / (2 * a)
	decelDist := vp * vp / (2 * b)
	cruiseDist := math.Max(0, d-accelDist-decelDist)

	return Profile{
		startSpeed: v0,
		peakSpeed:  vp,
		accel:      a,
		decel:      b,
		accelTime:  (vp - v0) / a,
		cruiseTime: cruiseDist / vp,
		decelTime:  vp / b,
		accelDist:  accelDist,
		cruiseDist: cruiseDist,
		decelDist:  decelDist,
	}
}

// TravelTime is the duration of Plan(v0, d)
func (m *Model) TravelTime(v0, d float64) float64 {
	return m.Plan(v0, d).Duration()
}

// BrakingDistance is the distance needed to stop from speed v
func (m *Model) BrakingDistance(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v * v / (2 * m.limits.MaxDeceleration)
}

// TurnTime is the time to rotate from one orientation to another along the
// shorter direction.
func (m *Model) TurnTime(from, to float64) float64 {
	diff := math.Abs(NormalizeAngle(to - from))
	if diff <= m.tolerance {
		return 0
	}
	return diff / m.limits.TurnSpeed
}

// OrientationAt is the orientation reached after rotating for elapsed
// seconds from one orientation towards another.
func (m *Model) OrientationAt(from, to, elapsed float64) float64 {
	diff := NormalizeAngle(to - from)
	step := m.limits.TurnSpeed * math.Max(elapsed, 0)
	if step >= math.Abs(diff) {
		return WrapOrientation(to)
	}
	if diff < 0 {
		step = -step
	}
	return WrapOrientation(from + step)
}

// NormalizeAngle maps an angle into [-π, π)
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// WrapOrientation maps an angle into [0, 2π)
func WrapOrientation(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Heading is the orientation of the vector (dx, dy)
func Heading(dx, dy float64) float64 {
	return WrapOrientation(math.Atan2(dy, dx))
}

// SameHeading reports whether two orientations differ by at most tol
func SameHeading(a, b, tol float64) bool {
	return math.Abs(NormalizeAngle(a-b)) <= tol
}
