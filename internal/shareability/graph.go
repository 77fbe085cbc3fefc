// Package shareability builds the RV (request-vehicle) and RR (request-
// request) shareability graphs for a single tick: a cheap pre-filter before
// the far more expensive RTV graph expansion. Both graphs are built with a
// bounded worker pool over the request list via errgroup; each worker writes
// only its own slots of a per-request result slice, and the results are
// merged sequentially once the pool has finished, so no mutex is needed.
package shareability

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/feasibility"
	"github.com/jwmdev/ridepool/internal/model"
)

// Oracle is the travel-time source RV/RR construction needs.
type Oracle interface {
	feasibility.Oracle
	VehicleTime(offset, node, x int) int
}

// RVEdge connects a vehicle to a request it could feasibly serve alone,
// weighted by the insertion cost of adding that one request.
type RVEdge struct {
	VehicleID int
	RequestID model.RequestID
	Cost      int
}

// RREdge connects two requests that could plausibly share a ride, directed
// from request1 to request2 and weighted by the two-request insertion cost.
// Computed against a dummy capacity-4 vehicle regardless of the real
// fleet's capacities, so RR reachability is a fixed property of the two
// requests and does not change as the live fleet's capacities vary.
type RREdge struct {
	From, To model.RequestID
	Cost     int
}

// Graph is the merged RV/RR shareability structure for one tick.
type Graph struct {
	RV []RVEdge
	RR []RREdge

	// rvByRequest and rrAdjacency index edges by request for the RTV
	// builder's per-vehicle candidate expansion.
	rvByRequest map[model.RequestID][]RVEdge
	rrAdjacency map[model.RequestID][]model.RequestID
}

// RVNeighbors returns the vehicles RV-connected to r, in ascending order of
// their minimum wait to reach r's origin.
func (g *Graph) RVNeighbors(r model.RequestID) []RVEdge {
	return g.rvByRequest[r]
}

// RRNeighbors returns the requests RR-reachable from r.
func (g *Graph) RRNeighbors(r model.RequestID) []model.RequestID {
	return g.rrAdjacency[r]
}

type rvResult struct {
	requestID model.RequestID
	edges     []RVEdge
}

type rrResult struct {
	requestID model.RequestID
	edges     []RREdge
}

// Build constructs the RV and RR graphs for the given vehicles and requests
// at currentTime, using workers goroutines (minimum 1).
func Build(ctx context.Context, vehicles []*model.Vehicle, requests []*model.Request, oracle Oracle, currentTime int, cfg config.Config, workers int) (*Graph, error) {
	if workers < 1 {
		workers = 1
	}

	rvResults := make([]rvResult, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	chunks := partition(len(requests), workers)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			for i := c.start; i < c.end; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				rvResults[i] = rvResult{
					requestID: requests[i].ID,
					edges:     rvEdgesFor(requests[i], vehicles, oracle, currentTime, cfg),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rrResults := make([]rrResult, len(requests))
	g2, gctx2 := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g2.Go(func() error {
			for i := c.start; i < c.end; i++ {
				if gctx2.Err() != nil {
					return gctx2.Err()
				}
				rrResults[i] = rrResult{
					requestID: requests[i].ID,
					edges:     rrEdgesFor(requests[i], requests, oracle, currentTime, cfg),
				}
			}
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return nil, err
	}

	out := &Graph{
		rvByRequest: make(map[model.RequestID][]RVEdge, len(requests)),
		rrAdjacency: make(map[model.RequestID][]model.RequestID, len(requests)),
	}
	for _, r := range rvResults {
		out.rvByRequest[r.requestID] = r.edges
		out.RV = append(out.RV, r.edges...)
	}
	for _, r := range rrResults {
		var ids []model.RequestID
		for _, e := range r.edges {
			ids = append(ids, e.To)
			out.RR = append(out.RR, e)
		}
		out.rrAdjacency[r.requestID] = ids
	}
	return out, nil
}

// rvEdgesFor finds every vehicle that can feasibly serve r alone, ranked by
// ascending minimum-wait bound, then evaluated one at a time through the
// insertion search until PruningRVK candidates are accepted (0 means
// unbounded).
func rvEdgesFor(r *model.Request, vehicles []*model.Vehicle, oracle Oracle, currentTime int, cfg config.Config) []RVEdge {
	type candidate struct {
		vehicle *model.Vehicle
		minWait int
	}
	var candidates []candidate
	for _, v := range vehicles {
		minWait := oracle.VehicleTime(v.Offset, v.Node, r.Origin)
		if currentTime+minWait > r.LatestBoarding {
			continue
		}
		candidates = append(candidates, candidate{v, minWait})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].minWait < candidates[j].minWait })

	var edges []RVEdge
	for _, c := range candidates {
		if cfg.PruningRVK > 0 && len(edges) >= cfg.PruningRVK {
			break
		}
		res := feasibility.Search(context.Background(), c.vehicle, []*model.Request{r}, oracle, currentTime, cfg.CTSP, cfg.CTSPObjective, cfg.CarSize, cfg.LPLimitValue, 0)
		if res.Feasible {
			edges = append(edges, RVEdge{VehicleID: c.vehicle.ID, RequestID: r.ID, Cost: res.Cost})
		}
	}
	return edges
}

// dummyRRVehicle is the capacity-4 placeholder every RR pair is evaluated
// against, independent of any real vehicle's capacity or position.
func dummyRRVehicle(startNode int) *model.Vehicle {
	return model.NewVehicle(0, 4, startNode)
}

// rrEdgesFor finds requests that could share a ride with r1, pruned first
// by a cheap minimum-wait bound before calling into the insertion search,
// then ranked by detour factor and capped at PruningRRK.
func rrEdgesFor(r1 *model.Request, requests []*model.Request, oracle Oracle, currentTime int, cfg config.Config) []RREdge {
	type candidate struct {
		req  *model.Request
		cost int
	}
	var candidates []candidate
	for _, r2 := range requests {
		if r2.ID == r1.ID {
			continue
		}
		minWait := oracle.Time(r1.Origin, r2.Origin)
		ref := currentTime
		if r1.EntryTime > ref {
			ref = r1.EntryTime
		}
		if minWait+ref > r2.LatestBoarding {
			continue
		}
		dummy := dummyRRVehicle(r1.Origin)
		res := feasibility.Search(context.Background(), dummy, []*model.Request{r1, r2}, oracle, currentTime, cfg.CTSP, cfg.CTSPObjective, cfg.CarSize, cfg.LPLimitValue, 0)
		if res.Feasible {
			candidates = append(candidates, candidate{r2, res.Cost})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return detourFactor(r1, candidates[i].req, oracle) < detourFactor(r1, candidates[j].req, oracle)
	})
	if cfg.PruningRRK > 0 && len(candidates) > cfg.PruningRRK {
		candidates = candidates[:cfg.PruningRRK]
	}

	edges := make([]RREdge, 0, len(candidates))
	for _, c := range candidates {
		edges = append(edges, RREdge{From: r1.ID, To: c.req.ID, Cost: c.cost})
	}
	return edges
}

// detourFactor measures how much longer req1's trip becomes by detouring
// through req2's origin en route to req1's destination, or the symmetric
// detour the other way, taking whichever is smaller. A factor of 0 means
// neither request has a meaningful direct distance to compare against.
func detourFactor(req1, req2 *model.Request, oracle Oracle) float64 {
	best := -1.0
	o1, o2 := req1.Origin, req2.Origin
	d1, d2 := req1.Destination, req2.Destination

	oneDist := oracle.Time(o1, d1)
	if oneDist != 0 {
		ratio := float64(oracle.Time(o1, o2)+oracle.Time(o2, d1)) / float64(oneDist)
		if best < 0 || ratio < best {
			best = ratio
		}
	}

	twoDist := oracle.Time(o2, d2)
	if twoDist != 0 {
		ratio := float64(oracle.Time(o2, o1)+oracle.Time(o1, d2)) / float64(twoDist)
		if best < 0 || ratio < best {
			best = ratio
		}
	}

	if oneDist == 0 && twoDist == 0 {
		return 0
	}
	return best
}

type chunk struct{ start, end int }

// partition splits n jobs across workers contiguous chunks, ceil-sized like
// the original's jobs_per_thread arithmetic.
func partition(n, workers int) []chunk {
	if n == 0 {
		return nil
	}
	if workers > n {
		workers = n
	}
	perWorker := float64(n) / float64(workers)
	var chunks []chunk
	for i := 0; i < workers; i++ {
		start := int(math.Ceil(float64(i) * perWorker))
		end := int(math.Ceil(float64(i+1) * perWorker))
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		chunks = append(chunks, chunk{start, end})
	}
	return chunks
}
