package model

// Trip is a candidate route for one vehicle: the ordered stops, the set of
// requests it serves, and its objective cost. Trips are value-typed records
// keyed conceptually by (vehicle ID, frozen request set) — no back-pointers
// from Trip to Vehicle are kept, avoiding a cyclic reference between the two.
type Trip struct {
	VehicleID   int
	Cost        float64
	OrderRecord []*NodeStop
	Requests    []*Request

	// UseMemory marks a trip carried over verbatim from the vehicle's prior
	// OrderRecord to satisfy the commitment invariant: committed requests
	// must never be dropped from a future trip.
	UseMemory bool
	// IsFake marks a placeholder rebalancing trip. Real rebalancing route
	// planning is out of scope, but the field is retained since Vehicle
	// movement checks it.
	IsFake bool
}

// RequestSet returns the trip's requests keyed by ID, used for subset-closure
// and RR-connectivity checks in the RTV builder.
func (t *Trip) RequestSet() map[RequestID]*Request {
	out := make(map[RequestID]*Request, len(t.Requests))
	for _, r := range t.Requests {
		out[r.ID] = r
	}
	return out
}

// Serves reports whether the trip's request set includes r.
func (t *Trip) Serves(r *Request) bool {
	for _, x := range t.Requests {
		if x.ID == r.ID {
			return true
		}
	}
	return false
}
