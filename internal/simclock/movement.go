// Package simclock drives one discrete tick: admitting new requests,
// invoking the shareability/RTV/assignment core, and applying the chosen
// routes to vehicles one interval of travel time. Movement is grounded on
// original_source/src/env/simulator/simulate.py's move_vehicle /
// move_jobless_vehicle (hop-by-hop travel consumption, dwell-sentinel
// handling at pickup/dropoff, leftover order_record bookkeeping), adapted
// to a single aggregate oracle.Time(a,b) hop per stop instead of the
// original's further waypoint-by-waypoint dijkstra decomposition — this
// program's network oracle already exposes Path(a,b) for callers that want
// the node-by-node route, but the movement model itself only needs to know
// when the vehicle reaches each pickup/dropoff, which a single aggregate
// hop answers exactly as precisely as a summed walk would.
package simclock

import (
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/network"
)

// Oracle is the travel-time/distance source movement needs.
type Oracle interface {
	Time(a, b int) int
	Distance(a, b int) int
}

// MoveJoblessVehicle advances a vehicle with no assigned trip and no
// remaining stops one interval along whatever travel it already had in
// flight.
func MoveJoblessVehicle(v *model.Vehicle, oracle Oracle, interval int) {
	if v.Offset <= interval {
		v.AddDistance(float64(oracle.Distance(v.PrevNode, v.Node)))
		v.PrevNode = v.Node
		v.Offset = 0
	} else {
		v.Offset -= interval
	}
	v.OrderRecord = nil
}

// ApplyTrip advances v one interval of travel along trip's order record,
// boarding/alighting requests as their stops are reached, and leaves
// whatever stops remain unvisited as v's new OrderRecord for the next tick.
// When lastMinuteService is set, v delays
// leaving its current position as long as the order record's deadlines
// allow before consuming any of the tick's travel budget.
func ApplyTrip(v *model.Vehicle, trip *model.Trip, oracle Oracle, currentTime, interval int, lastMinuteService bool) {
	v.JustBoarded = nil
	v.JustAlighted = nil
	v.PendingRequests = nil

	if trip == nil || (len(trip.Requests) == 0 && len(v.Passengers) == 0) {
		v.OrderRecord = nil
		return
	}

	pending := map[model.RequestID]bool{}
	for _, r := range trip.Requests {
		pending[r.ID] = true
	}
	onboardReqs := map[model.RequestID]*model.Request{}
	for _, r := range v.Passengers {
		onboardReqs[r.ID] = r
	}

	path := trip.OrderRecord
	if trip.IsFake {
		v.RebalanceTarget = trip.Requests[0].Origin
	}

	if len(path) > 0 && len(v.Passengers) == 0 && !trip.IsFake {
		v.SetState(model.EnRoute, currentTime)
	} else if trip.IsFake {
		v.SetState(model.Rebalancing, currentTime)
	}

	remaining := interval
	now := currentTime
	if v.Offset < remaining {
		now += v.Offset
		remaining -= v.Offset
		v.Offset = 0
		v.PrevNode = v.Node
	} else {
		now += remaining
		v.Offset -= remaining
		remaining = 0
	}

	if lastMinuteService && !trip.IsFake && len(path) > 0 && v.Offset == 0 && remaining > 0 {
		wait := latestStartAtOrigin(v, path, oracle) - now
		if wait > 0 {
			if wait >= remaining {
				now += remaining
				remaining = 0
			} else {
				now += wait
				remaining -= wait
			}
		}
	}

	jobCompleted := 0
	interrupted := remaining <= 0

	for i := 0; i < len(path) && !interrupted; i++ {
		stop := path[i]
		target := stop.Node

		travel := oracle.Time(v.Node, target)
		loc := v.Node
		if travel >= remaining {
			v.PrevNode = loc
			v.Node = target
			v.Offset = travel - remaining
			now += remaining
			remaining = 0
			interrupted = true
			break
		}
		now += travel
		remaining -= travel
		v.AddDistance(float64(oracle.Distance(loc, target)))
		v.PrevNode = target
		v.Node = target

		jobCompleted++
		if trip.IsFake && target == v.RebalanceTarget {
			v.RebalanceTarget = -1
			v.SetState(model.Idle, now)
			break
		}

		r := stop.Request
		if stop.IsPickup {
			r.BoardingTime = now
			v.JustBoarded = append(v.JustBoarded, r)
			delete(pending, r.ID)
			onboardReqs[r.ID] = r
			v.SetState(model.InUse, now)
			if len(onboardReqs) > 1 {
				for _, o := range onboardReqs {
					o.Shared = true
				}
			}
		} else {
			r.AlightingTime = now
			v.JustAlighted = append(v.JustAlighted, r)
			delete(onboardReqs, r.ID)
			if len(onboardReqs) == 0 {
				v.SetState(model.Idle, now)
			}
		}

		nodeType := dwellSentinel(path, i, stop, target)
		dwell := oracle.Time(nodeType, v.Node)
		if dwell >= remaining {
			v.Offset = dwell - remaining
			remaining = 0
			interrupted = true
			break
		}
		remaining -= dwell
		now += dwell
	}

	onboardOut := make([]*model.Request, 0, len(onboardReqs))
	for _, r := range onboardReqs {
		onboardOut = append(onboardOut, r)
	}
	v.Passengers = onboardOut

	if !trip.IsFake {
		if jobCompleted < len(path) {
			v.OrderRecord = append([]*model.NodeStop(nil), path[jobCompleted:]...)
		} else {
			v.OrderRecord = nil
		}
	} else {
		v.OrderRecord = nil
	}

	pendingOut := make([]*model.Request, 0, len(pending))
	for _, r := range trip.Requests {
		if pending[r.ID] {
			pendingOut = append(pendingOut, r)
		}
	}
	v.PendingRequests = pendingOut
}

// latestStartAtOrigin backward-propagates each stop's deadline through path
// to find the latest time v may leave its current node without missing any
// of path's deadlines: latest_start[i] = min(deadline[i], latest_start[i+1] -
// duration(i,i+1)).
func latestStartAtOrigin(v *model.Vehicle, path []*model.NodeStop, oracle Oracle) int {
	n := len(path)
	latest := path[n-1].Deadline()
	for i := n - 2; i >= 0; i-- {
		duration := oracle.Time(path[i].Node, path[i+1].Node)
		if bound := latest - duration; bound < path[i].Deadline() {
			latest = bound
		} else {
			latest = path[i].Deadline()
		}
	}
	return latest - oracle.Time(v.Node, path[0].Node)
}

// dwellSentinel mirrors the original's node_type ternary: a dropoff that is
// either the last stop or followed by a pickup or a different node charges
// the alight dwell; a pickup symmetrically followed by a non-pickup or
// different node charges the pickup dwell; otherwise (another stop at the
// same node continuing the same action type) no dwell is charged here
// because the next stop's own arrival computation will charge it.
func dwellSentinel(path []*model.NodeStop, i int, stop *model.NodeStop, target int) int {
	last := i+1 == len(path)
	if !stop.IsPickup && (last || path[i+1].IsPickup || path[i+1].Node != target) {
		return network.DwellAlightSentinel
	}
	if stop.IsPickup && (last || !path[i+1].IsPickup || path[i+1].Node != target) {
		return network.DwellPickupSentinel
	}
	return target
}
