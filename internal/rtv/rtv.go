// Package rtv grows, per vehicle, the set of feasible request groups from
// size 0 (the baseline, deliver-what's-onboard trip) up to the vehicle's
// capacity, storing one best Trip per (vehicle, request group). This is the
// most expensive phase of a tick: each candidate group requires one call
// into the feasibility search.
//
// Grounded on original_source/src/algo/rtvgenerator.py (bottom-up pairwise
// union, subset-closure pruning, RR-connectivity pruning, memory-mode
// commitment guarantee); concurrency grounded on
// internal/shareability's errgroup worker-pool pattern.
package rtv

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/feasibility"
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/shareability"
)

// Oracle is the travel-time source the RTV builder's feasibility calls need.
type Oracle interface {
	feasibility.Oracle
}

// Graph is the per-vehicle trip table built for one tick.
type Graph struct {
	Trips map[int][]*model.Trip // vehicleID -> trips
}

// TripsFor returns the trips built for vehicle id, or nil.
func (g *Graph) TripsFor(id int) []*model.Trip { return g.Trips[id] }

// requestKey is a canonical, order-independent identity for a request set,
// used to dedupe trips already emitted at a given level.
func requestKey(reqs []*model.Request) string {
	ids := make([]int, len(reqs))
	for i, r := range reqs {
		ids[i] = int(r.ID)
	}
	sort.Ints(ids)
	return fmt.Sprint(ids)
}

// Build constructs the RTV graph for all vehicles at currentTime. requests
// is the full pool of requests eligible this tick (new plus already-
// pending), used to resolve RV edges (which carry only a request ID) back
// to their *model.Request. Fatal errors (a committed trip that cannot be
// re-proved feasible via memory replay) are returned as an error; callers
// must treat that as a process-terminating invariant violation.
func Build(ctx context.Context, vehicles []*model.Vehicle, requests []*model.Request, sg *shareability.Graph, oracle Oracle, currentTime int, cfg config.Config, workers int) (*Graph, error) {
	if workers < 1 {
		workers = 1
	}
	requestByID := make(map[model.RequestID]*model.Request, len(requests))
	for _, r := range requests {
		requestByID[r.ID] = r
	}

	out := make([][]*model.Trip, len(vehicles))

	g, gctx := errgroup.WithContext(ctx)
	chunks := partition(len(vehicles), workers)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			for i := c.start; i < c.end; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				trips, err := buildForVehicle(vehicles[i], requestByID, sg, oracle, currentTime, cfg)
				if err != nil {
					return err
				}
				out[i] = trips
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := &Graph{Trips: make(map[int][]*model.Trip, len(vehicles))}
	for i, v := range vehicles {
		graph.Trips[v.ID] = out[i]
	}
	return graph, nil
}

// buildForVehicle runs the full level-0..capacity expansion for a single
// vehicle.
func buildForVehicle(v *model.Vehicle, requestByID map[model.RequestID]*model.Request, sg *shareability.Graph, oracle Oracle, currentTime int, cfg config.Config) ([]*model.Trip, error) {
	var all []*model.Trip
	seen := map[string]bool{}

	// Level 0: baseline, deliver onboard passengers only.
	base := feasibility.Search(context.Background(), v, nil, oracle, currentTime, cfg.CTSP, cfg.CTSPObjective, cfg.CarSize, cfg.LPLimitValue, 0)
	if !base.Feasible {
		return nil, fmt.Errorf("rtv: vehicle %d baseline (deliver onboard) trip is infeasible, invariant violated", v.ID)
	}
	baseTrip := toTrip(v.ID, base, nil)
	all = append(all, baseTrip)
	seen[requestKey(nil)] = true

	levels := [][]*model.Trip{{baseTrip}}

	// Level 1: every RV neighbor plus every pending (committed, unboarded)
	// request, one request at a time.
	level1 := buildLevel1(v, requestByID, sg, oracle, currentTime, cfg, seen)
	all = append(all, level1...)
	levels = append(levels, level1)

	k := 2
	for k <= v.Capacity {
		prev := levels[k-1]
		if len(prev) == 0 {
			break
		}
		levelTrips := buildLevelK(v, prev, sg, oracle, currentTime, cfg, k, seen)
		if len(levelTrips) == 0 {
			break
		}
		all = append(all, levelTrips...)
		levels = append(levels, levelTrips)
		k++
	}

	// Commitment guarantee: if the vehicle had a previous plan, ensure its
	// request set reappears at the level matching its pending-request count.
	if len(v.OrderRecord) > 0 {
		committedReqs := committedRequestSet(v)
		if len(committedReqs) > 0 {
			key := requestKey(committedReqs)
			lvl := len(v.PendingRequests)
			present := lvl < len(levels) && containsKey(levels[lvl], key)
			if !present {
				mem := feasibility.SearchMemory(v, oracle, currentTime, cfg.CTSPObjective)
				if !mem.Feasible {
					return nil, fmt.Errorf("rtv: vehicle %d memory replay of committed order is infeasible, invariant violated", v.ID)
				}
				memTrip := toTrip(v.ID, mem, committedReqs)
				memTrip.UseMemory = true
				all = append(all, memTrip)
			}
		}
	}

	return all, nil
}

// buildLevel1 enumerates every singleton request candidate: RV neighbors of
// v plus v's own pending requests (which may not appear in RV if pruned).
func buildLevel1(v *model.Vehicle, requestByID map[model.RequestID]*model.Request, sg *shareability.Graph, oracle Oracle, currentTime int, cfg config.Config, seen map[string]bool) []*model.Trip {
	byID := map[model.RequestID]*model.Request{}
	for _, r := range v.PendingRequests {
		byID[r.ID] = r
	}
	for _, e := range sg.RV {
		if e.VehicleID != v.ID {
			continue
		}
		if r := requestByID[e.RequestID]; r != nil {
			byID[r.ID] = r
		}
	}

	ids := make([]model.RequestID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*model.Trip
	for _, id := range ids {
		r := byID[id]
		res := feasibility.Search(context.Background(), v, []*model.Request{r}, oracle, currentTime, cfg.CTSP, cfg.CTSPObjective, cfg.CarSize, cfg.LPLimitValue, 0)
		if !res.Feasible {
			continue
		}
		reqs := []*model.Request{r}
		key := requestKey(reqs)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, toTrip(v.ID, res, reqs))
	}
	return out
}

// buildLevelK enumerates unions of pairs of level (k-1) trips that together
// cover exactly k requests, applying the MAX_NEW, RR-connectivity, and
// subset-closure pruning rules before running feasibility search (spec
// §4.4 step 3).
func buildLevelK(v *model.Vehicle, prevLevel []*model.Trip, sg *shareability.Graph, oracle Oracle, currentTime int, cfg config.Config, k int, seen map[string]bool) []*model.Trip {
	pending := map[model.RequestID]bool{}
	for _, r := range v.PendingRequests {
		pending[r.ID] = true
	}
	prevLevelKeys := levelKeySet(prevLevel)
	budget := timeBudget(cfg)

	var out []*model.Trip
	for i := 0; i < len(prevLevel); i++ {
		for j := 0; j < len(prevLevel); j++ {
			if i == j {
				continue
			}
			union := unionRequests(prevLevel[i].Requests, prevLevel[j].Requests)
			if len(union) != k {
				continue
			}
			key := requestKey(union)
			if seen[key] {
				continue
			}

			newCount := 0
			for _, r := range union {
				if !pending[r.ID] {
					newCount++
				}
			}
			if 2*newCount > cfg.MaxNew {
				continue
			}

			if !rrConnected(union, sg) {
				continue
			}
			if !allSubsetsPresent(union, prevLevelKeys) {
				continue
			}

			seen[key] = true
			res := feasibility.Search(context.Background(), v, union, oracle, currentTime, cfg.CTSP, cfg.CTSPObjective, cfg.CarSize, cfg.LPLimitValue, budget)
			if !res.Feasible {
				continue
			}
			out = append(out, toTrip(v.ID, res, union))
		}
	}
	return out
}

// rrConnected implements the RR-connectivity pruning rule: for every pair of
// distinct requests in the union, at least one directed RR edge must exist
// between them.
func rrConnected(union []*model.Request, sg *shareability.Graph) bool {
	for a := 0; a < len(union); a++ {
		for b := a + 1; b < len(union); b++ {
			ra, rb := union[a].ID, union[b].ID
			if hasRR(sg, ra, rb) || hasRR(sg, rb, ra) {
				continue
			}
			return false
		}
	}
	return true
}

func hasRR(sg *shareability.Graph, from, to model.RequestID) bool {
	for _, n := range sg.RRNeighbors(from) {
		if n == to {
			return true
		}
	}
	return false
}

// allSubsetsPresent implements the subset-closure pruning rule: every
// (k-1)-subset of union must already be an emitted trip at level k-1.
func allSubsetsPresent(union []*model.Request, prevKeys map[string]bool) bool {
	for skip := range union {
		var subset []*model.Request
		for i, r := range union {
			if i != skip {
				subset = append(subset, r)
			}
		}
		if !prevKeys[requestKey(subset)] {
			return false
		}
	}
	return true
}

func levelKeySet(level []*model.Trip) map[string]bool {
	out := make(map[string]bool, len(level))
	for _, t := range level {
		out[requestKey(t.Requests)] = true
	}
	return out
}

func containsKey(level []*model.Trip, key string) bool {
	for _, t := range level {
		if requestKey(t.Requests) == key {
			return true
		}
	}
	return false
}

func unionRequests(a, b []*model.Request) []*model.Request {
	byID := map[model.RequestID]*model.Request{}
	for _, r := range a {
		byID[r.ID] = r
	}
	for _, r := range b {
		byID[r.ID] = r
	}
	out := make([]*model.Request, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func committedRequestSet(v *model.Vehicle) []*model.Request {
	seen := map[model.RequestID]*model.Request{}
	for _, ns := range v.OrderRecord {
		if ns.Request != nil {
			seen[ns.Request.ID] = ns.Request
		}
	}
	out := make([]*model.Request, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func timeBudget(cfg config.Config) time.Duration {
	if cfg.RTVTimeLimitMS <= 0 {
		return 0
	}
	return time.Duration(cfg.RTVTimeLimitMS) * time.Millisecond
}

// toTrip converts a feasibility.Result into a model.Trip. Under the DELAY
// objective, feasibility.Search already returns the delay-summed cost
// directly, computed inside the search's own formatResult rather than as a
// second pass here, since the search already knows each stop's arrival time.
func toTrip(vehicleID int, res feasibility.Result, requests []*model.Request) *model.Trip {
	return &model.Trip{
		VehicleID:   vehicleID,
		Cost:        float64(res.Cost),
		OrderRecord: res.Stops,
		Requests:    requests,
	}
}

type chunk struct{ start, end int }

func partition(n, workers int) []chunk {
	if n == 0 {
		return nil
	}
	if workers > n {
		workers = n
	}
	per := (n + workers - 1) / workers
	var chunks []chunk
	for start := 0; start < n; start += per {
		end := start + per
		if end > n {
			end = n
		}
		chunks = append(chunks, chunk{start, end})
	}
	return chunks
}
