package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	log := zap.NewNop().Sugar()
	w, err := New(log, dir, "results.log")
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, filepath.Join(dir, "results.csv")
}

func TestNewCreatesCSVWithHeader(t *testing.T) {
	_, csvPath := newTestWriter(t)
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "tick,new_requests,served,missed")
}

func TestWriteTickAppendsCSVRow(t *testing.T) {
	w, csvPath := newTestWriter(t)
	w.WriteTick(TickStats{Tick: 1, NewRequests: 4, Served: 3, Missed: 1, AvgWaitSeconds: 12.5})
	w.Close()

	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "1,4,3,1,12.50")
}

func TestServiceRateFullWhenNoNewRequests(t *testing.T) {
	assert.Equal(t, 100.0, serviceRate(TickStats{NewRequests: 0}))
}

func TestServiceRatePartial(t *testing.T) {
	assert.Equal(t, 75.0, serviceRate(TickStats{NewRequests: 4, Served: 3}))
}

func TestEchoConfigAndWriteSummaryDoNotPanic(t *testing.T) {
	w, _ := newTestWriter(t)
	w.EchoConfig(config.Defaults())
	w.WriteSummary(Summary{Ticks: 5, VehicleStateTime: map[model.VehicleState]int{}})
}
