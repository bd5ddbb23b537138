package shared

// SimulationStats holds the fleet-wide counters of one simulation run. It is
// created by the controller at run start and handed by pointer to every
// component that counts something; there are no package-level counters.
type SimulationStats struct {
	TasksAssigned  int
	TasksCompleted int
	TasksAborted   int
	TasksCancelled int

	ReservationsGranted  int
	ReservationConflicts int
	DriveAborts          int

	ReoptimizationSweeps int
	PathsAssigned        int
	PathFinderFailures   int

	PodPickups       int
	PodSetdowns      int
	RequestsFinished int
	RequestsAborted  int
	ElevatorTrips    int
	Rendezvous       int

	DistanceTraveled float64
	SimulatedTime    float64
	Steps            int
}

func NewSimulationStats() *SimulationStats {
	return &SimulationStats{}
}

// Snapshot returns a copy safe to hand to reporting code
func (s *SimulationStats) Snapshot() SimulationStats {
	if s == nil {
		return SimulationStats{}
	}
	return *s
}

func (s *SimulationStats) Reset() {
	*s = SimulationStats{}
}
