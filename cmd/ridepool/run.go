package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/httpapi"
	"github.com/jwmdev/ridepool/internal/loader"
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/network"
	"github.com/jwmdev/ridepool/internal/report"
	"github.com/jwmdev/ridepool/internal/simclock"
)

// world bundles everything loaded once at startup: the network oracle and
// the initial vehicle/request state.
type world struct {
	oracle   *network.Oracle
	vehicles []*model.Vehicle
	// requests awaiting admission, grouped by the tick they arrive on.
	arrivals map[int][]*model.Request
	maxTick  int
}

// loadWorld reads the travel-time matrix, distance matrix, edge list,
// request file, and vehicle file and derives the request deadlines the
// network oracle's travel times require.
func loadWorld(cfg config.Config) (*world, error) {
	timeMatrix, err := readMatrix(cfg.DataRoot, cfg.TimeFile)
	if err != nil {
		return nil, err
	}
	distMatrix, err := readMatrix(cfg.DataRoot, cfg.DistFile)
	if err != nil {
		return nil, err
	}
	edges, err := readEdges(cfg.DataRoot, cfg.EdgeCostFile)
	if err != nil {
		return nil, err
	}
	oracle := network.New(timeMatrix, distMatrix, edges, cfg.DwellPickup, cfg.DwellAlight)

	rawRequests, err := readRequests(cfg.DataRoot, cfg.RequestDataFile)
	if err != nil {
		return nil, err
	}
	rawVehicles, err := readVehicles(cfg.DataRoot, cfg.VehicleDataFile, cfg.CarSize)
	if err != nil {
		return nil, err
	}
	if cfg.VehicleLimit > 0 && len(rawVehicles) > cfg.VehicleLimit {
		rawVehicles = rawVehicles[:cfg.VehicleLimit]
	}

	initial, err := loader.ParseClockDuration(cfg.InitialTime)
	if err != nil {
		return nil, fmt.Errorf("ridepool: initial_time: %w", err)
	}
	final, err := loader.ParseClockDuration(cfg.FinalTime)
	if err != nil {
		return nil, fmt.Errorf("ridepool: final_time: %w", err)
	}

	vehicles := make([]*model.Vehicle, 0, len(rawVehicles))
	for _, rv := range rawVehicles {
		vehicles = append(vehicles, loader.BuildVehicle(rv))
	}

	arrivals := map[int][]*model.Request{}
	maxTick := int((final - initial) / time.Second)
	interval := cfg.Interval
	if interval < 1 {
		interval = 1
	}
	for _, rr := range rawRequests {
		offsetSeconds := int((rr.RequestedTime - initial) / time.Second)
		if offsetSeconds < 0 {
			offsetSeconds = 0
		}
		tick := (offsetSeconds / interval) * interval
		ideal := oracle.Time(rr.Origin, rr.Destination)
		req := loader.BuildRequest(rr, tick, ideal, cfg.MaxWaiting, cfg.MaxDetour)
		arrivals[tick] = append(arrivals[tick], req)
	}

	return &world{oracle: oracle, vehicles: vehicles, arrivals: arrivals, maxTick: maxTick}, nil
}

func readMatrix(root, rel string) ([][]int, error) {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("ridepool: opening %s: %w", rel, err)
	}
	defer f.Close()
	m, err := loader.LoadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("ridepool: %s: %w", rel, err)
	}
	return m, nil
}

func readEdges(root, rel string) ([]network.Edge, error) {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("ridepool: opening %s: %w", rel, err)
	}
	defer f.Close()
	e, err := loader.LoadEdges(f)
	if err != nil {
		return nil, fmt.Errorf("ridepool: %s: %w", rel, err)
	}
	return e, nil
}

func readRequests(root, rel string) ([]loader.RawRequest, error) {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("ridepool: opening %s: %w", rel, err)
	}
	defer f.Close()
	r, err := loader.LoadRequests(f)
	if err != nil {
		return nil, fmt.Errorf("ridepool: %s: %w", rel, err)
	}
	return r, nil
}

func readVehicles(root, rel string, carSize int) ([]loader.RawVehicle, error) {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("ridepool: opening %s: %w", rel, err)
	}
	defer f.Close()
	v, err := loader.LoadVehicles(f, carSize)
	if err != nil {
		return nil, fmt.Errorf("ridepool: %s: %w", rel, err)
	}
	return v, nil
}

// runLoop drives ticks from tick 0 to FinalTime minus InitialTime (in
// seconds) at cfg.Interval steps, writing reports and, if api is non-nil,
// publishing a snapshot after every tick.
func runLoop(ctx context.Context, cfg config.Config, log *zap.Logger, api *httpapi.Server) error {
	w, err := loadWorld(cfg)
	if err != nil {
		return err
	}

	sugared := log.Sugar()
	writer, err := report.New(sugared, cfg.ResultsDirectory, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("ridepool: %w", err)
	}
	defer writer.Close()
	writer.EchoConfig(cfg)

	driver := simclock.NewDriver(w.oracle, cfg)
	state := &simclock.State{Vehicles: w.vehicles}

	sum := report.Summary{VehicleStateTime: map[model.VehicleState]int{}}
	for tick := 0; tick <= w.maxTick; tick += cfg.Interval {
		if err := ctx.Err(); err != nil {
			return err
		}
		newRequests := w.arrivals[tick]
		stats, err := driver.RunTick(ctx, state, newRequests, tick)
		if err != nil {
			log.Error("tick failed, invariant violated", zap.Int("tick", tick), zap.Error(err))
			return fmt.Errorf("ridepool: tick %d: %w", tick, err)
		}
		writer.WriteTick(stats)

		sum.Ticks++
		sum.TotalRequests += stats.NewRequests
		sum.TotalServed += stats.Served
		sum.TotalMissed += stats.Missed
		sum.TotalShared += stats.TotalShared

		if api != nil {
			api.Publish(httpapi.Snapshot{
				Tick:      tick,
				RVEdges:   driver.LastRVEdges,
				RREdges:   driver.LastRREdges,
				RTVTrips:  driver.LastRTVTrips,
				Vehicles:  len(state.Vehicles),
				Requests:  len(state.Requests),
				LastStats: stats,
			})
		}
	}

	for _, v := range state.Vehicles {
		v.SetState(v.State, w.maxTick) // credit the final state's remaining dwell time
		for s, secs := range v.TimeInState {
			sum.VehicleStateTime[s] += secs
		}
	}
	writer.WriteSummary(sum)
	if api != nil {
		api.PublishSummary(sum)
	}
	return nil
}

// serveAndRun starts the inspection HTTP server and runs the simulation to
// completion against it, then keeps serving the final report until ctx is
// canceled.
func serveAndRun(ctx context.Context, cfg config.Config, log *zap.Logger, port int) error {
	api := httpapi.New()
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: api.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("inspection server stopped", zap.Error(err))
		}
	}()

	if err := runLoop(ctx, cfg, log, api); err != nil {
		return err
	}

	log.Info("run complete, inspection server still serving the final report", zap.String("addr", addr))
	<-ctx.Done()
	return srv.Close()
}
