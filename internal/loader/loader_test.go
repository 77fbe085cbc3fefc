package loader

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMatrix(t *testing.T) {
	m, err := LoadMatrix(strings.NewReader("0,10,20\n10,0,30\n20,30,0\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 10, 20}, {10, 0, 30}, {20, 30, 0}}, m)
}

func TestLoadMatrixMalformedCell(t *testing.T) {
	_, err := LoadMatrix(strings.NewReader("0,x,20\n"))
	assert.Error(t, err)
}

func TestLoadEdgesConvertsToZeroIndexed(t *testing.T) {
	edges, err := LoadEdges(strings.NewReader("1,2,100\n2,3,200\n"))
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, 0, edges[0].From)
	assert.Equal(t, 1, edges[0].To)
	assert.Equal(t, 100, edges[0].Weight)
}

func TestLoadRequests(t *testing.T) {
	row := "1,2,10.5,20.5,3,11.5,21.5,00:05:00\n"
	reqs, err := LoadRequests(strings.NewReader(row))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	r := reqs[0]
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, 1, r.Origin) // 1-indexed on disk -> 0-indexed
	assert.Equal(t, 2, r.Destination)
	assert.Equal(t, 5*time.Minute, r.RequestedTime)
}

func TestLoadRequestsMalformedTime(t *testing.T) {
	_, err := LoadRequests(strings.NewReader("1,2,0,0,3,0,0,bogus\n"))
	assert.Error(t, err)
}

func TestLoadVehiclesAppliesCarSizeOverride(t *testing.T) {
	row := "1,5,10.0,20.0,00:00:00,2\n"
	vehicles, err := LoadVehicles(strings.NewReader(row), 4)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, 4, vehicles[0].Capacity, "carSize > 0 overrides the row's own capacity")
	assert.Equal(t, 4, vehicles[0].StartNode) // 1-indexed on disk -> 0-indexed
}

func TestLoadVehiclesNoOverrideKeepsRowCapacity(t *testing.T) {
	row := "1,5,10.0,20.0,00:00:00,2\n"
	vehicles, err := LoadVehicles(strings.NewReader(row), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, vehicles[0].Capacity)
}

func TestParseClockDuration(t *testing.T) {
	d, err := ParseClockDuration("01:02:03")
	require.NoError(t, err)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, d)
}

func TestParseClockDurationMalformed(t *testing.T) {
	_, err := ParseClockDuration("not-a-time")
	assert.Error(t, err)
}

func TestBuildRequestDerivesDeadlines(t *testing.T) {
	raw := RawRequest{ID: 1, Origin: 0, Destination: 5}
	req := BuildRequest(raw, 100, 50, 300, 600)
	assert.Equal(t, 100, req.EntryTime)
	assert.Equal(t, 400, req.LatestBoarding)
	assert.Equal(t, 750, req.LatestAlighting)
}

func TestBuildVehicle(t *testing.T) {
	raw := RawVehicle{DriverID: 9, StartNode: 3, Capacity: 4}
	v := BuildVehicle(raw)
	assert.Equal(t, 9, v.ID)
	assert.Equal(t, 3, v.Node)
	assert.Equal(t, 4, v.Capacity)
}
