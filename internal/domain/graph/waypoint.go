package graph

import (
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// NodeID is the dense integer alias of a waypoint
type NodeID int

// NoNode marks an unset current, next or destination waypoint
const NoNode NodeID = -1

// Role describes what a waypoint is used for
type Role int

const (
	RoleNone Role = iota
	RoleStorage
	RoleStation
	RoleElevator
	RoleQueue
	RoleRest
)

var roleNames = map[Role]string{
	RoleNone:     "none",
	RoleStorage:  "storage",
	RoleStation:  "station",
	RoleElevator: "elevator",
	RoleQueue:    "queue",
	RoleRest:     "rest",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole is the inverse of Role.String
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return RoleNone, shared.NewValidationError("role", "unknown waypoint role "+s)
}

// Waypoint is a node of the warehouse graph. It is owned by the Graph;
// bots and reservations refer to it by NodeID.
type Waypoint struct {
	ID     NodeID
	Symbol string
	X      float64
	Y      float64
	Tier   int
	Role   Role
	// Owner is the id of the station or elevator the waypoint belongs to
	Owner string
}

// DistanceTo is the planar distance between two waypoints
func (w *Waypoint) DistanceTo(other *Waypoint) float64 {
	return math.Hypot(other.X-w.X, other.Y-w.Y)
}
