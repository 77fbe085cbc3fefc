// Package httpapi serves a read-only snapshot of the most recent tick for
// external inspection: RV/RR/RTV graph sizes and the last report block as
// JSON, routed through gorilla/mux. There is no /api/control: a batch tick
// system has no continuous motion to speed up or slow down, so there is
// nothing for a control endpoint to adjust.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/jwmdev/ridepool/internal/report"
)

// Snapshot is the latest tick's state, updated by the tick driver after
// every RunTick call.
type Snapshot struct {
	Tick      int            `json:"tick"`
	RVEdges   int            `json:"rv_edges"`
	RREdges   int            `json:"rr_edges"`
	RTVTrips  int            `json:"rtv_trips"`
	Vehicles  int            `json:"vehicles"`
	Requests  int            `json:"requests"`
	LastStats report.TickStats `json:"last_stats"`
}

// Server exposes the latest Snapshot over HTTP. Safe for concurrent use: one
// goroutine publishes via Publish while request handlers read concurrently.
type Server struct {
	mu       sync.RWMutex
	snapshot Snapshot
	summary  report.Summary
}

// New constructs an empty Server; call Publish after each tick to keep it
// current.
func New() *Server {
	return &Server{}
}

// Publish replaces the latest snapshot, called by the driving loop once per
// tick.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

// PublishSummary records the final run summary, available at /api/report
// once the run completes.
func (s *Server) PublishSummary(sum report.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
}

// Router builds the gorilla/mux router serving /api/tick and /api/report.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/tick", s.handleTick).Methods(http.MethodGet)
	r.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)
	return r
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	writeJSON(w, snap)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sum := s.summary
	s.mu.RUnlock()
	writeJSON(w, sum)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_ = json.NewEncoder(w).Encode(v)
}
