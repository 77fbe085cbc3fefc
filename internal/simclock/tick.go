package simclock

import (
	"context"
	"fmt"
	"time"

	"github.com/jwmdev/ridepool/internal/assignment"
	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/report"
	"github.com/jwmdev/ridepool/internal/rtv"
	"github.com/jwmdev/ridepool/internal/shareability"
)

// FullOracle is everything the tick's phases collectively need from the
// network oracle.
type FullOracle interface {
	Oracle
	VehicleTime(offset, node, x int) int
}

// State is the whole process's live entity pool: every vehicle and every
// request that has ever been admitted, kept alive for the run's duration.
// There is no per-tick allocation of identity.
type State struct {
	Vehicles []*model.Vehicle
	Requests []*model.Request // all admitted requests, newest last
}

// Driver runs ticks against a fixed oracle, solver, and configuration,
// orchestrating the RV/RR/RTV/assignment/movement pipeline.
type Driver struct {
	Oracle FullOracle
	Solver assignment.Solver
	Config config.Config

	// Last* are updated by every RunTick call once the RTV graph is built, for callers
	// (the inspection HTTP server) that want the current graph sizes
	// without RunTick itself taking on an httpapi dependency.
	LastRVEdges  int
	LastRREdges  int
	LastRTVTrips int
}

// NewDriver constructs a Driver with the default greedy solver.
func NewDriver(oracle FullOracle, cfg config.Config) *Driver {
	return &Driver{Oracle: oracle, Solver: assignment.GreedySolver{}, Config: cfg}
}

// RunTick admits newRequests into state, builds RV/RR/RTV, solves the
// assignment, applies the chosen routes via movement, and returns the
// tick's statistics. tick is the tick's clock value in seconds since
// INITIAL_TIME.
func (d *Driver) RunTick(ctx context.Context, state *State, newRequests []*model.Request, tick int) (report.TickStats, error) {
	cfg := d.Config
	state.Requests = append(state.Requests, newRequests...)

	eligible := eligibleRequests(state, newRequests)

	rv, err := shareability.Build(ctx, state.Vehicles, eligible, d.Oracle, tick, cfg, cfg.Threads)
	if err != nil {
		return report.TickStats{}, fmt.Errorf("simclock: building RV/RR graph: %w", err)
	}

	rtvGraph, err := rtv.Build(ctx, state.Vehicles, eligible, rv, d.Oracle, tick, cfg, cfg.Threads)
	if err != nil {
		return report.TickStats{}, fmt.Errorf("simclock: building RTV graph: %w", err)
	}

	d.LastRVEdges = len(rv.RV)
	d.LastRREdges = len(rv.RR)
	tripCount := 0
	for _, trips := range rtvGraph.Trips {
		tripCount += len(trips)
	}
	d.LastRTVTrips = tripCount

	asgModel := assignment.Model{
		VehicleTrips: rtvGraph.Trips,
		Requests:     eligible,
		Objective:    cfg.Assignment,
		MissCost:     cfg.MissCost,
		RMTReward:    cfg.RMTReward,
		Full:         true,
	}
	limit := assignment.SolveLimits{
		TimeLimit: time.Duration(cfg.SolverTimeLimitMS) * time.Millisecond,
		MIPGap:    cfg.SolverMIPGap,
	}
	solution, err := d.Solver.Solve(ctx, asgModel, limit)
	if err != nil {
		return report.TickStats{}, fmt.Errorf("simclock: assignment solve: %w", err)
	}
	if err := verifyCommitments(state, solution); err != nil {
		return report.TickStats{}, err
	}

	for _, v := range state.Vehicles {
		trip := solution.ChosenTrip[v.ID]
		if trip != nil {
			ApplyTrip(v, trip, d.Oracle, tick, cfg.Interval, cfg.LastMinuteService)
		} else {
			MoveJoblessVehicle(v, d.Oracle, cfg.Interval)
		}
	}

	return collectStats(state, newRequests, solution, tick), nil
}

// eligibleRequests returns every request RV/RR/RTV must consider this
// tick: committed-but-unboarded requests plus requests admitted this tick
// that have not yet alighted.
func eligibleRequests(state *State, newRequests []*model.Request) []*model.Request {
	isNew := make(map[model.RequestID]bool, len(newRequests))
	for _, r := range newRequests {
		isNew[r.ID] = true
	}
	var out []*model.Request
	for _, r := range state.Requests {
		if r.Alighted() {
			continue
		}
		if r.Boarded() {
			continue // already onboard; tracked via vehicle.Passengers, not as a trip candidate
		}
		if !r.Assigned && !isNew[r.ID] {
			continue // left unassigned in an earlier tick
		}
		out = append(out, r)
	}
	return out
}

// verifyCommitments checks that every committed request appears in the
// tick's chosen trip for its vehicle.
func verifyCommitments(state *State, solution assignment.Solution) error {
	covered := map[model.RequestID]bool{}
	for _, t := range solution.ChosenTrip {
		for _, r := range t.Requests {
			covered[r.ID] = true
		}
	}
	for _, r := range state.Requests {
		if r.Assigned && !r.Boarded() && !r.Alighted() && !covered[r.ID] {
			return fmt.Errorf("simclock: committed request %d missing from assignment output, invariant violated", r.ID)
		}
	}
	return nil
}

func collectStats(state *State, newRequests []*model.Request, solution assignment.Solution, tick int) report.TickStats {
	served := 0
	var waitSum, rideSum, delaySum float64
	shared := 0
	var passengerSum int
	for _, r := range newRequests {
		if r.Boarded() {
			served++
		}
	}
	for _, v := range state.Vehicles {
		passengerSum += len(v.Passengers)
		for _, r := range v.JustAlighted {
			rideSum += float64(r.AlightingTime - r.BoardingTime)
			delaySum += float64(r.Delay())
		}
		for _, r := range v.JustBoarded {
			waitSum += float64(r.WaitDuration())
		}
	}
	for _, r := range state.Requests {
		if r.Shared {
			shared++
		}
	}
	n := len(newRequests)
	meanPassengers := 0.0
	if len(state.Vehicles) > 0 {
		meanPassengers = float64(passengerSum) / float64(len(state.Vehicles))
	}
	sharedRate := 0.0
	if served > 0 {
		sharedRate = 100 * float64(shared) / float64(served)
	}
	return report.TickStats{
		Tick:            tick,
		NewRequests:     n,
		Served:          served,
		Missed:          len(solution.Unassigned),
		AvgWaitSeconds:  safeAvg(waitSum, served),
		AvgRideSeconds:  safeAvg(rideSum, served),
		AvgDelaySeconds: safeAvg(delaySum, served),
		MeanPassengers:  meanPassengers,
		SharedRatePct:   sharedRate,
		TotalShared:     shared,
		AssignmentCost:  solution.Cost,
	}
}

func safeAvg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
