package model

// NodeStop is a single visit atom: a pickup or dropoff of Request at Node.
// Two NodeStops sharing a Request must both appear in a route, pickup
// strictly before dropoff.
type NodeStop struct {
	Request  *Request
	IsPickup bool
	Node     int
}

// Less orders NodeStops lexicographically on (Request.ID, IsPickup), the
// deterministic tie-break the search and graph builders rely on. Pickup
// sorts before dropoff for the same
// request because false < true is reversed: IsPickup=true must come first,
// so we invert the boolean comparison.
func (s *NodeStop) Less(o *NodeStop) bool {
	if s.Request.ID != o.Request.ID {
		return s.Request.ID < o.Request.ID
	}
	// pickup (true) before dropoff (false)
	return s.IsPickup && !o.IsPickup
}

// Deadline returns the latest time this stop may be serviced.
func (s *NodeStop) Deadline() int {
	if s.IsPickup {
		return s.Request.LatestBoarding
	}
	return s.Request.LatestAlighting
}
