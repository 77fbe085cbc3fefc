// Package model defines the entity types shared by every phase of a tick:
// requests, vehicles, node stops, and trips.
package model

// RequestID uniquely identifies a Request for its entire lifetime.
type RequestID int

// Request is a single passenger's trip request from Origin to Destination.
// Deadlines are derived once at admission time from the configured waiting
// and detour budgets and never change afterward.
type Request struct {
	ID          RequestID
	Origin      int
	Destination int

	EntryTime        int // tick clock value when the request was admitted
	IdealTravelTime  int // t(origin, destination) at admission time
	LatestBoarding   int // EntryTime + MaxWaiting
	LatestAlighting  int // EntryTime + IdealTravelTime + MaxDetour

	// Mutable state, updated only during movement/commitment phase transitions.
	BoardingTime  int // -1 until boarded
	AlightingTime int // -1 until alighted
	Shared        bool
	Assigned      bool // true once committed to a vehicle by the assignment solver
}

// NewRequest derives a Request's deadlines from the admission clock and the
// configured waiting/detour budgets. idealTravelTime must already reflect
// the network oracle's t(origin, destination).
func NewRequest(id RequestID, origin, destination, entryTime, idealTravelTime, maxWaiting, maxDetour int) *Request {
	return &Request{
		ID:              id,
		Origin:          origin,
		Destination:     destination,
		EntryTime:       entryTime,
		IdealTravelTime: idealTravelTime,
		LatestBoarding:  entryTime + maxWaiting,
		LatestAlighting: entryTime + idealTravelTime + maxDetour,
		BoardingTime:    -1,
		AlightingTime:   -1,
	}
}

// Boarded reports whether the request has already started its ride.
func (r *Request) Boarded() bool { return r.BoardingTime >= 0 }

// Alighted reports whether the request has completed its ride.
func (r *Request) Alighted() bool { return r.AlightingTime >= 0 }

// Delay returns the positive delay relative to the ideal dropoff time, or 0
// if the request has not yet alighted or arrived early/on time. Used by the
// DELAY objective and by reporting.
func (r *Request) Delay() int {
	if !r.Alighted() {
		return 0
	}
	ideal := r.EntryTime + r.IdealTravelTime
	if d := r.AlightingTime - ideal; d > 0 {
		return d
	}
	return 0
}

// WaitDuration returns boarding wait time, valid only once boarded.
func (r *Request) WaitDuration() int {
	if !r.Boarded() {
		return 0
	}
	return r.BoardingTime - r.EntryTime
}
