package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleMatrices() ([][]int, [][]int) {
	// 4 nodes, a simple chain 0-1-2-3 plus a shortcut 0-3.
	time := [][]int{
		{0, 10, 20, 15},
		{10, 0, 10, 25},
		{20, 10, 0, 10},
		{15, 25, 10, 0},
	}
	dist := [][]int{
		{0, 1, 2, 3},
		{1, 0, 1, 4},
		{2, 1, 0, 1},
		{3, 4, 1, 0},
	}
	return time, dist
}

func TestOracleTimeAndDistanceFromMatrices(t *testing.T) {
	tm, dm := sampleMatrices()
	o := New(tm, dm, nil, 30, 60)

	assert.Equal(t, 20, o.Time(0, 2))
	assert.Equal(t, 2, o.Distance(0, 2))
}

func TestOracleDwellSentinels(t *testing.T) {
	tm, dm := sampleMatrices()
	o := New(tm, dm, nil, 30, 60)

	assert.Equal(t, 30, o.Time(DwellPickupSentinel, 0))
	assert.Equal(t, 60, o.Time(DwellAlightSentinel, 0))
	assert.Equal(t, 0, o.Distance(DwellPickupSentinel, 0))
	assert.Equal(t, 0, o.Distance(DwellAlightSentinel, 0))
}

func TestOracleOutOfRangeIsZero(t *testing.T) {
	tm, dm := sampleMatrices()
	o := New(tm, dm, nil, 0, 0)

	assert.Equal(t, 0, o.Time(99, 0))
	assert.Equal(t, 0, o.Distance(0, 99))
}

func TestOracleVehicleTime(t *testing.T) {
	tm, dm := sampleMatrices()
	o := New(tm, dm, nil, 0, 0)

	assert.Equal(t, 5+o.Time(1, 2), o.VehicleTime(5, 1, 2))
}

func TestOraclePathSameNode(t *testing.T) {
	tm, dm := sampleMatrices()
	o := New(tm, dm, nil, 0, 0)
	assert.Equal(t, []int{0}, o.Path(0, 0))
}

func TestOraclePathWalksShortestRoute(t *testing.T) {
	tm, dm := sampleMatrices()
	edges := []Edge{
		{From: 0, To: 1, Weight: 10},
		{From: 1, To: 2, Weight: 10},
		{From: 2, To: 3, Weight: 10},
		{From: 0, To: 3, Weight: 15},
	}
	o := New(tm, dm, edges, 0, 0)

	path := o.Path(0, 3)
	assert.Equal(t, []int{0, 3}, path, "the direct edge is cheaper than the 0-1-2-3 chain")
}

func TestOraclePathMissingVertexFallsBackToDirect(t *testing.T) {
	tm, dm := sampleMatrices()
	o := New(tm, dm, nil, 0, 0)
	assert.Equal(t, []int{5, 6}, o.Path(5, 6))
}

func TestOraclePathIsMemoized(t *testing.T) {
	tm, dm := sampleMatrices()
	edges := []Edge{
		{From: 0, To: 1, Weight: 10},
		{From: 1, To: 2, Weight: 10},
	}
	o := New(tm, dm, edges, 0, 0)

	first := o.Path(0, 2)
	second := o.Path(0, 2)
	assert.Equal(t, first, second)
}
