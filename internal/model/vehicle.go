package model

// VehicleState enumerates a vehicle's lifecycle phase, mirroring the
// counters the original simulator keeps per vehicle for reporting.
type VehicleState int

const (
	Idle VehicleState = iota
	EnRoute
	InUse
	Rebalancing
)

func (s VehicleState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case EnRoute:
		return "EnRoute"
	case InUse:
		return "InUse"
	case Rebalancing:
		return "Rebalancing"
	default:
		return "Unknown"
	}
}

// Vehicle is a single capacitated shuttle. Its location is represented as an
// in-flight position: travelling from PrevNode to Node with Offset seconds
// of travel remaining. Offset == 0 means the vehicle is parked at Node.
type Vehicle struct {
	ID       int
	Capacity int

	PrevNode int
	Node     int
	Offset   int

	Passengers      []*Request // onboard, len <= Capacity
	PendingRequests []*Request // committed, not yet boarded

	OrderRecord []*NodeStop // planned upcoming stops from the last tick
	RebalanceTarget int     // -1 when not rebalancing

	State          VehicleState
	stateEnteredAt int
	TimeInState    map[VehicleState]int

	TotalDistance float64

	JustBoarded  []*Request
	JustAlighted []*Request
}

// NewVehicle constructs a parked, empty vehicle at startNode.
func NewVehicle(id, capacity, startNode int) *Vehicle {
	return &Vehicle{
		ID:              id,
		Capacity:        capacity,
		PrevNode:        startNode,
		Node:            startNode,
		RebalanceTarget: -1,
		TimeInState:     make(map[VehicleState]int),
	}
}

// RemainingCapacity returns the number of free seats right now.
func (v *Vehicle) RemainingCapacity() int {
	return v.Capacity - len(v.Passengers)
}

// SetState transitions the vehicle's lifecycle state, crediting the time
// spent in the previous state to Idle/EnRoute/InUse/Rebalancing bookkeeping.
func (v *Vehicle) SetState(next VehicleState, now int) {
	if v.TimeInState == nil {
		v.TimeInState = make(map[VehicleState]int)
	}
	if now > v.stateEnteredAt {
		v.TimeInState[v.State] += now - v.stateEnteredAt
	}
	v.State = next
	v.stateEnteredAt = now
}

// AddDistance accumulates travelled kilometers/units for reporting.
func (v *Vehicle) AddDistance(d float64) {
	v.TotalDistance += d
}

// HasPassenger reports whether r is currently onboard.
func (v *Vehicle) HasPassenger(r *Request) bool {
	for _, p := range v.Passengers {
		if p == r {
			return true
		}
	}
	return false
}

// RemovePassenger deletes r from the onboard list, if present.
func (v *Vehicle) RemovePassenger(r *Request) {
	out := v.Passengers[:0]
	for _, p := range v.Passengers {
		if p != r {
			out = append(out, p)
		}
	}
	v.Passengers = out
}
