// Package feasibility implements the insertion search: given a vehicle, a
// clock, and a set of requests it must serve (some newly proposed, some
// already onboard or committed), find the cheapest feasible visiting order
// or report infeasibility. This is the algorithmic heart the rest of the
// core calls once per (vehicle, trip candidate) pair, so it runs inside the
// RTV graph's hot loop and must stay allocation-light.
package feasibility

import (
	"context"
	"sort"
	"time"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/network"
)

// action tracks what the previous stop in the walk did, since dwell time
// depends on the transition between consecutive actions, not just the stop
// itself.
type action int

const (
	actionNone action = iota
	actionPickup
	actionDropoff
)

// metaStop wraps a NodeStop with the set of other metaStops it unlocks once
// visited, encoding the pickup-before-dropoff precedence constraint and, for
// FIX_ONBOARD/FIX_PREFIX, a forced chain order.
type metaStop struct {
	node    *model.NodeStop
	unlocks []*metaStop
}

// order gives the deterministic tie-break used to sort the available set:
// by node, then pickup before dropoff, then the NodeStop's own Less, and
// finally by position in the original slice (a stable stand-in for Python's
// id()-based final tie-break, which only needs to be consistent, not
// semantically meaningful).
func order(stops []*metaStop) {
	sort.SliceStable(stops, func(i, j int) bool {
		a, b := stops[i].node, stops[j].node
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if a.IsPickup != b.IsPickup {
			return a.IsPickup // pickup before dropoff at the same node
		}
		return a.Less(b)
	})
}

// Result is the outcome of a search: either a feasible ordered route with
// its cost, or infeasible (Feasible == false).
type Result struct {
	Feasible bool
	Cost     int
	Stops    []*model.NodeStop
}

// Oracle is the subset of network.Oracle the search needs; declared locally
// so feasibility doesn't otherwise depend on the network package's Path/
// memoization machinery.
type Oracle interface {
	Time(a, b int) int
}

// Search finds the cheapest feasible stop order for v to additionally serve
// newRequests, starting its clock at now. policy selects how much of v's
// prior OrderRecord must be replayed verbatim; objective selects the cost
// function. budget, if non-zero, bounds wall-clock search time; once
// exceeded the search returns the best order found so far (possibly
// infeasible if none was found yet), mirroring recursive_search_timed's
// graceful degradation rather than an error.
func Search(ctx context.Context, v *model.Vehicle, newRequests []*model.Request, oracle Oracle, now int, policy config.PrefixPolicy, objective config.Objective, carSize, lpLimit int, budget time.Duration) Result {
	metas, available, infeasible := buildMetaStops(v, newRequests, policy, carSize, lpLimit)
	if infeasible {
		return Result{Feasible: false}
	}
	_ = metas

	callTime := now + v.Offset
	startNode := v.Node
	residual := v.Capacity - len(v.Passengers)

	var deadline time.Time
	hasDeadline := budget > 0
	if hasDeadline {
		deadline = time.Now().Add(budget)
	}

	bestTime, bestTail := recursiveSearch(ctx, startNode, residual, available, oracle, callTime, -1, actionNone, deadline, hasDeadline)
	return formatResult(bestTime, bestTail, now, callTime, objective, startNode, oracle)
}

// SearchMemory replays v's last committed OrderRecord verbatim, used when a
// previously assigned (but not yet boarded/alighted) request must be
// re-emitted as a trip candidate without perturbing its stop order (spec
// §4.4 "Memory mode").
func SearchMemory(v *model.Vehicle, oracle Oracle, now int, objective config.Objective) Result {
	if len(v.OrderRecord) == 0 {
		return Result{Feasible: true, Cost: 0, Stops: nil}
	}
	metas := make([]*metaStop, len(v.OrderRecord))
	for i, ns := range v.OrderRecord {
		metas[i] = &metaStop{node: ns}
	}
	for i := 1; i < len(metas); i++ {
		metas[i-1].unlocks = []*metaStop{metas[i]}
	}
	available := []*metaStop{metas[0]}

	callTime := now + v.Offset
	residual := v.Capacity - len(v.Passengers)
	bestTime, bestTail := recursiveSearch(context.Background(), v.Node, residual, available, oracle, callTime, -1, actionNone, time.Time{}, false)
	return formatResult(bestTime, bestTail, now, callTime, objective, v.Node, oracle)
}

// buildMetaStops constructs the meta-stop graph for a standard (non-memory)
// search: new-request pickup/dropoff pairs plus onboard dropoffs, with the
// initially-available set shaped by policy. The second return reports
// whether FIX_PREFIX's request-count gate rejected the call outright.
func buildMetaStops(v *model.Vehicle, newRequests []*model.Request, policy config.PrefixPolicy, carSize, lpLimit int) ([]*metaStop, []*metaStop, bool) {
	var metas []*metaStop
	available := map[*metaStop]struct{}{}

	for _, r := range newRequests {
		pickup := &model.NodeStop{Request: r, IsPickup: true, Node: r.Origin}
		dropoff := &model.NodeStop{Request: r, IsPickup: false, Node: r.Destination}
		dropoffMeta := &metaStop{node: dropoff}
		pickupMeta := &metaStop{node: pickup, unlocks: []*metaStop{dropoffMeta}}
		metas = append(metas, dropoffMeta, pickupMeta)
		available[pickupMeta] = struct{}{}
	}

	onboard := map[model.RequestID]bool{}
	for _, p := range v.Passengers {
		onboard[p.ID] = true
	}
	var onboardMetas []*metaStop
	for _, ns := range v.OrderRecord {
		if ns.Request == nil || !onboard[ns.Request.ID] {
			continue
		}
		m := &metaStop{node: ns}
		metas = append(metas, m)
		onboardMetas = append(onboardMetas, m)
		delete(onboard, ns.Request.ID)
	}

	switch {
	case policy == config.PolicyFixOnboard && len(newRequests)+len(v.Passengers) > carSize && len(v.Passengers) != 0:
		for i := 0; i+1 < len(onboardMetas); i++ {
			onboardMetas[i].unlocks = []*metaStop{onboardMetas[i+1]}
		}
		if len(onboardMetas) > 0 {
			available[onboardMetas[0]] = struct{}{}
		}
	default:
		for _, m := range onboardMetas {
			available[m] = struct{}{}
		}
	}

	if policy == config.PolicyFixPrefix && len(metas) > lpLimit {
		newByID := map[model.RequestID]bool{}
		pendingByID := map[model.RequestID]bool{}
		for _, r := range v.PendingRequests {
			pendingByID[r.ID] = true
		}
		newCount := 0
		for _, r := range newRequests {
			if !pendingByID[r.ID] {
				newCount++
			}
			newByID[r.ID] = true
		}
		if newCount*2 > lpLimit {
			return nil, nil, true
		}

		nodeToMeta := map[*model.NodeStop]*metaStop{}
		for _, m := range metas {
			nodeToMeta[m.node] = m
		}
		var previousOrder []*metaStop
		for _, ns := range v.OrderRecord {
			if m, ok := nodeToMeta[ns]; ok {
				previousOrder = append(previousOrder, m)
			}
		}

		prefixLen := len(metas) - lpLimit
		if len(previousOrder) >= prefixLen {
			captured := map[*metaStop]struct{}{}
			for m := range available {
				captured[m] = struct{}{}
			}
			available = map[*metaStop]struct{}{previousOrder[0]: {}}

			for i := 0; i < prefixLen; i++ {
				delete(captured, previousOrder[i])
				for _, m := range previousOrder[i].unlocks {
					captured[m] = struct{}{}
				}
				if i+1 < prefixLen {
					previousOrder[i].unlocks = []*metaStop{previousOrder[i+1]}
				} else {
					var rest []*metaStop
					for m := range captured {
						rest = append(rest, m)
					}
					previousOrder[i].unlocks = rest
				}
			}
		}
	}

	out := make([]*metaStop, 0, len(available))
	for m := range available {
		out = append(out, m)
	}
	order(out)
	return metas, out, false
}

// recursiveSearch mirrors recursive_search/recursive_search_timed from the
// original insertion algorithm: depth-first branch-and-bound over the
// available meta-stop set, pruning on time windows, capacity, and forward
// reachability. deadline/hasDeadline implement the optional wall-clock
// budget; when exceeded the loop simply stops considering further branches
// at the current level, returning whatever has already been found.
func recursiveSearch(ctx context.Context, loc, residual int, available []*metaStop, oracle Oracle, now, bestTime int, prev action, deadline time.Time, hasDeadline bool) (int, []*model.NodeStop) {
	if len(available) == 0 {
		return now, nil
	}

	var bestTail []*model.NodeStop
	var previous *metaStop

	for _, m := range available {
		if hasDeadline && time.Now().After(deadline) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		if previous != nil && !m.node.IsPickup && previous.node.Node == m.node.Node {
			continue
		}
		previous = m

		newLoc := m.node.Node
		arrival := now + oracle.Time(loc, newLoc)

		switch {
		case prev == actionDropoff && (m.node.IsPickup || loc != newLoc):
			arrival += oracle.Time(network.DwellAlightSentinel, 0)
		case prev == actionPickup && (!m.node.IsPickup || loc != newLoc):
			arrival += oracle.Time(network.DwellPickupSentinel, 0)
		}

		if m.node.IsPickup && m.node.Request.EntryTime > arrival {
			arrival = m.node.Request.EntryTime
		}

		if bestTime != -1 && arrival >= bestTime {
			continue
		}

		newResidual := residual
		if m.node.IsPickup {
			newResidual--
		} else {
			newResidual++
		}
		if newResidual < 0 {
			continue
		}

		if m.node.IsPickup && arrival > m.node.Request.LatestBoarding {
			continue
		}
		if m.node.Request.LatestAlighting < arrival {
			continue
		}

		remaining := remainingAfter(available, m)

		reachable := true
		for _, x := range remaining {
			if arrival+oracle.Time(newLoc, x.node.Node) > x.node.Deadline() {
				reachable = false
				break
			}
		}
		if !reachable {
			continue
		}

		thisAction := actionDropoff
		if m.node.IsPickup {
			thisAction = actionPickup
		}
		tailTime, tailStops := recursiveSearch(ctx, newLoc, newResidual, remaining, oracle, arrival, bestTime, thisAction, deadline, hasDeadline)
		if tailTime == -1 {
			continue
		}

		if bestTime == -1 || tailTime < bestTime {
			bestTime = tailTime
			bestTail = append(tailStops[:len(tailStops):len(tailStops)], m.node)
		}
	}

	if bestTail == nil && bestTime == -1 {
		return -1, nil
	}
	return bestTime, bestTail
}

// remainingAfter returns the available set with m removed and m's unlocks
// added, the same "remaining_nodes" computation as the original.
func remainingAfter(available []*metaStop, m *metaStop) []*metaStop {
	out := make([]*metaStop, 0, len(available)+len(m.unlocks))
	for _, x := range available {
		if x != m {
			out = append(out, x)
		}
	}
	out = append(out, m.unlocks...)
	order(out)
	return out
}

// formatResult converts the reversed stop list the recursion builds (it
// appends "first visited last") into forward order and recomputes the cost
// for the objective in play: VTT rebases the raw completion clock to a
// duration relative to now, DELAY replaces it with the order's total delay
// over ideal dropoff times via delayAll, walked forward from callTime (the
// clock value recursiveSearch itself started from at startNode) rather than
// now, since request deadlines are absolute clock values and callTime
// already accounts for the vehicle's in-flight offset to reach startNode.
func formatResult(bestTime int, reverseStops []*model.NodeStop, now, callTime int, objective config.Objective, startNode int, oracle Oracle) Result {
	if bestTime == -1 {
		return Result{Feasible: false}
	}
	ordered := make([]*model.NodeStop, len(reverseStops))
	for i, s := range reverseStops {
		ordered[len(reverseStops)-1-i] = s
	}
	cost := bestTime
	switch objective {
	case config.ObjectiveVTT:
		if cost >= 0 {
			cost -= now
		}
	case config.ObjectiveDelay:
		cost = delayAll(ordered, startNode, callTime, oracle)
	}
	return Result{Feasible: true, Cost: cost, Stops: ordered}
}

// delayAll walks stops forward from (startNode, startTime) recomputing each
// stop's arrival time with the same transition/dwell rules recursiveSearch
// uses, and sums the positive delay — arrival past EntryTime+IdealTravelTime
// — at every dropoff. This is the CTSP_DELAY objective's cost: total delay
// over the chosen order, not the order's raw completion time.
func delayAll(stops []*model.NodeStop, startNode, startTime int, oracle Oracle) int {
	loc := startNode
	now := startTime
	prev := actionNone
	total := 0
	for _, s := range stops {
		newLoc := s.Node
		arrival := now + oracle.Time(loc, newLoc)

		switch {
		case prev == actionDropoff && (s.IsPickup || loc != newLoc):
			arrival += oracle.Time(network.DwellAlightSentinel, 0)
		case prev == actionPickup && (!s.IsPickup || loc != newLoc):
			arrival += oracle.Time(network.DwellPickupSentinel, 0)
		}

		if s.IsPickup && s.Request.EntryTime > arrival {
			arrival = s.Request.EntryTime
		}

		if !s.IsPickup {
			if d := arrival - (s.Request.EntryTime + s.Request.IdealTravelTime); d > 0 {
				total += d
			}
		}

		loc = newLoc
		now = arrival
		if s.IsPickup {
			prev = actionPickup
		} else {
			prev = actionDropoff
		}
	}
	return total
}
