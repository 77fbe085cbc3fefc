// Package report writes the per-tick and final-summary log blocks, plus a
// CSV export. One function per sink, both driven from a plain summary
// struct, covering the ride-pool per-tick statistics block: service rate,
// average waiting, average riding, average delay, mean passengers, shared
// rate, and total shared.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
)

// TickStats summarizes one tick's outcome: service rate, average waiting,
// average riding, average delay, mean passengers, shared rate, total shared.
type TickStats struct {
	Tick             int
	NewRequests      int
	Served           int
	Missed           int
	AvgWaitSeconds   float64
	AvgRideSeconds   float64
	AvgDelaySeconds  float64
	MeanPassengers   float64
	SharedRatePct    float64
	TotalShared      int
	AssignmentCost   float64
}

// Summary accumulates totals across every tick for the final block.
type Summary struct {
	Ticks             int
	TotalRequests     int
	TotalServed       int
	TotalMissed       int
	TotalShared       int
	VehicleStateTime  map[model.VehicleState]int
}

// Writer writes the structured per-tick log: a configuration echo, then one
// block per tick, then a final summary.
type Writer struct {
	log     *zap.SugaredLogger
	csv     io.WriteCloser
	csvPath string
}

// New opens resultsDir/logFile's CSV sibling (same basename, .csv
// extension) for the per-tick machine-readable export, and wraps log for
// the human-readable block echo.
func New(log *zap.SugaredLogger, resultsDir, logFile string) (*Writer, error) {
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: creating results directory: %w", err)
	}
	base := logFile
	ext := filepath.Ext(base)
	csvName := base[:len(base)-len(ext)] + ".csv"
	csvPath := filepath.Join(resultsDir, csvName)
	f, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("report: creating csv %s: %w", csvPath, err)
	}
	fmt.Fprintln(f, "tick,new_requests,served,missed,avg_wait_s,avg_ride_s,avg_delay_s,mean_passengers,shared_rate_pct,total_shared,assignment_cost")
	return &Writer{log: log, csv: f, csvPath: csvPath}, nil
}

// Close flushes and closes the CSV sink.
func (w *Writer) Close() error {
	if w.csv == nil {
		return nil
	}
	return w.csv.Close()
}

// EchoConfig logs the configuration header at the top of the results log.
func (w *Writer) EchoConfig(cfg config.Config) {
	w.log.Infow("configuration",
		"ctsp", cfg.CTSP, "ctsp_objective", cfg.CTSPObjective,
		"assignment_objective", cfg.Assignment, "max_waiting", cfg.MaxWaiting,
		"max_detour", cfg.MaxDetour, "max_new", cfg.MaxNew,
		"lp_limitvalue", cfg.LPLimitValue, "pruning_rv_k", cfg.PruningRVK,
		"pruning_rr_k", cfg.PruningRRK, "threads", cfg.Threads,
		"interval", cfg.Interval, "carsize", cfg.CarSize)
}

// WriteTick emits one tick's block to both the structured logger and the
// CSV sink.
func (w *Writer) WriteTick(s TickStats) {
	round2 := func(x float64) float64 { return math.Round(x*100) / 100 }
	w.log.Infow("tick",
		"tick", s.Tick, "new_requests", s.NewRequests, "served", s.Served,
		"missed", s.Missed, "service_rate_pct", round2(serviceRate(s)),
		"avg_wait_s", round2(s.AvgWaitSeconds), "avg_ride_s", round2(s.AvgRideSeconds),
		"avg_delay_s", round2(s.AvgDelaySeconds), "mean_passengers", round2(s.MeanPassengers),
		"shared_rate_pct", round2(s.SharedRatePct), "total_shared", s.TotalShared,
		"assignment_cost", round2(s.AssignmentCost))
	if w.csv != nil {
		fmt.Fprintf(w.csv, "%d,%d,%d,%d,%.2f,%.2f,%.2f,%.2f,%.2f,%d,%.2f\n",
			s.Tick, s.NewRequests, s.Served, s.Missed, s.AvgWaitSeconds, s.AvgRideSeconds,
			s.AvgDelaySeconds, s.MeanPassengers, s.SharedRatePct, s.TotalShared, s.AssignmentCost)
	}
}

// WriteSummary emits the final totals and per-state vehicle time sums spec
// §6 requires ("final summary with totals and vehicle-state time sums").
func (w *Writer) WriteSummary(sum Summary) {
	stateTimes := make(map[string]int, len(sum.VehicleStateTime))
	for state, secs := range sum.VehicleStateTime {
		stateTimes[state.String()] = secs
	}
	w.log.Infow("summary",
		"ticks", sum.Ticks, "total_requests", sum.TotalRequests,
		"total_served", sum.TotalServed, "total_missed", sum.TotalMissed,
		"total_shared", sum.TotalShared, "vehicle_state_time", stateTimes)
}

func serviceRate(s TickStats) float64 {
	if s.NewRequests == 0 {
		return 100
	}
	return 100 * float64(s.Served) / float64(s.NewRequests)
}
