package kinematics

import "math"

// Profile is a planned straight-line traversal: acceleration, cruise and
// deceleration to standstill. The zero Profile has zero duration.
type Profile struct {
	startSpeed float64
	peakSpeed  float64
	accel      float64
	decel      float64

	accelTime  float64
	cruiseTime float64
	decelTime  float64

	accelDist  float64
	cruiseDist float64
	decelDist  float64
}

func (p Profile) Duration() float64 {
	return p.accelTime + p.cruiseTime + p.decelTime
}

func (p Profile) Distance() float64 {
	return p.accelDist + p.cruiseDist + p.decelDist
}

func (p Profile) StartSpeed() float64 {
	return p.startSpeed
}

func (p Profile) PeakSpeed() float64 {
	return p.peakSpeed
}

// DecelerationStart is the time at which the braking phase begins
func (p Profile) DecelerationStart() float64 {
	return p.accelTime + p.cruiseTime
}

// DistanceAt is the distance covered t seconds after the start
func (p Profile) DistanceAt(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= p.Duration() {
		return p.Distance()
	}
	if t < p.accelTime {
		return p.startSpeed*t + 0.5*p.accel*t*t
	}
	t -= p.accelTime
	if t < p.cruiseTime {
		return p.accelDist + p.peakSpeed*t
	}
	t -= p.cruiseTime
	return p.accelDist + p.cruiseDist + p.peakSpeed*t - 0.5*p.decel*t*t
}

// SpeedAt is the speed t seconds after the start
func (p Profile) SpeedAt(t float64) float64 {
	if t < 0 {
		return p.startSpeed
	}
	if t >= p.Duration() {
		return 0
	}
	if t < p.accelTime {
		return p.startSpeed + p.accel*t
	}
	t -= p.accelTime
	if t < p.cruiseTime {
		return p.peakSpeed
	}
	t -= p.cruiseTime
	return math.Max(0, p.peakSpeed-p.decel*t)
}

// TimeAt is the time at which distance s is reached; the inverse of DistanceAt
func (p Profile) TimeAt(s float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= p.Distance() {
		return p.Duration()
	}
	if s < p.accelDist {
		v0 := p.startSpeed
		return (-v0 + math.Sqrt(v0*v0+2*p.accel*s)) / p.accel
	}
	s -= p.accelDist
	if s < p.cruiseDist {
		return p.accelTime + s/p.peakSpeed
	}
	s -= p.cruiseDist
	disc := p.peakSpeed*p.peakSpeed - 2*p.decel*s
	if disc < 0 {
		disc = 0
	}
	return p.accelTime + p.cruiseTime + (p.peakSpeed-math.Sqrt(disc))/p.decel
}
