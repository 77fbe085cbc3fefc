package feasibility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/network"
)

// lineOracle places every node on a number line: t(a,b) = |a-b| * 10, except
// dwell sentinels which return fixed constants.
type lineOracle struct {
	pickupDwell, alightDwell int
}

func (o lineOracle) Time(a, b int) int {
	switch a {
	case network.DwellPickupSentinel:
		return o.pickupDwell
	case network.DwellAlightSentinel:
		return o.alightDwell
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d * 10
}

func newVehicle(capacity, node int) *model.Vehicle {
	return model.NewVehicle(1, capacity, node)
}

func TestSearchTrivialSingleRider(t *testing.T) {
	v := newVehicle(4, 0)
	r := model.NewRequest(1, 0, 5, 0, 50, 300, 300)

	res := Search(context.Background(), v, []*model.Request{r}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 4, 8, 0)

	assert.True(t, res.Feasible)
	if assert.Len(t, res.Stops, 2) {
		assert.True(t, res.Stops[0].IsPickup)
		assert.False(t, res.Stops[1].IsPickup)
	}
}

func TestSearchSharedRide(t *testing.T) {
	v := newVehicle(4, 0)
	r1 := model.NewRequest(1, 0, 10, 0, 100, 300, 600)
	r2 := model.NewRequest(2, 2, 8, 0, 60, 300, 600)

	res := Search(context.Background(), v, []*model.Request{r1, r2}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 4, 8, 0)

	assert.True(t, res.Feasible)
	assert.Len(t, res.Stops, 4)

	seen := map[model.RequestID]bool{}
	for _, s := range res.Stops {
		seen[s.Request.ID] = true
	}
	assert.True(t, seen[r1.ID])
	assert.True(t, seen[r2.ID])
}

// Two co-located requests whose tight, zero-slack dropoff deadlines can only
// both be met by carrying them simultaneously from the shared origin: either
// pure sequential order (serve one fully, then the other) overruns the
// second request's deadline, but a single-seat vehicle can never pick up
// the second before dropping the first.
func capacityForcingRequests() (*model.Request, *model.Request) {
	a := model.NewRequest(1, 0, 10, 0, 100, 1000, 0) // deadline exactly 100
	b := model.NewRequest(2, 0, 20, 0, 200, 1000, 0) // deadline exactly 200
	return a, b
}

func TestSearchCapacityBlocksInfeasible(t *testing.T) {
	v := newVehicle(1, 0)
	a, b := capacityForcingRequests()

	res := Search(context.Background(), v, []*model.Request{a, b}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 1, 8, 0)

	assert.False(t, res.Feasible, "a single-seat vehicle can't carry both before either deadline-bound dropoff")
}

func TestSearchCapacityTwoServesBothSimultaneously(t *testing.T) {
	v := newVehicle(2, 0)
	a, b := capacityForcingRequests()

	res := Search(context.Background(), v, []*model.Request{a, b}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 2, 8, 0)

	assert.True(t, res.Feasible, "a two-seat vehicle can carry both from their shared origin and drop each on the way")
	if assert.Len(t, res.Stops, 4) {
		assert.True(t, res.Stops[0].IsPickup)
		assert.True(t, res.Stops[1].IsPickup)
	}
}

func TestSearchDeadlineBlocksInfeasible(t *testing.T) {
	v := newVehicle(4, 0)
	// destination is 100 units away (1000 seconds travel) but the deadline
	// only allows 5 seconds total.
	r := model.NewRequest(1, 100, 0, 5, 1000, 0, 0)

	res := Search(context.Background(), v, []*model.Request{r}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 4, 8, 0)

	assert.False(t, res.Feasible)
}

func TestSearchSucceedsWithinTimeBudget(t *testing.T) {
	v := newVehicle(4, 0)
	r := model.NewRequest(1, 0, 5, 0, 50, 300, 300)

	res := Search(context.Background(), v, []*model.Request{r}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 4, 8, 50*time.Millisecond)

	assert.True(t, res.Feasible)
}

// Under ObjectiveDelay, Cost must be the total positive delay at dropoffs
// (arrival past EntryTime+IdealTravelTime), not the raw completion clock
// ObjectiveVTT would report.
func TestSearchDelayObjectiveSumsDropoffDelayNotCompletionTime(t *testing.T) {
	v := newVehicle(4, 0)
	// Travel to destination 10 takes 100 (10*10); ideal travel time is only
	// 50, so a direct run arrives 50 late.
	r := model.NewRequest(1, 0, 10, 0, 50, 300, 300)

	vtt := Search(context.Background(), v, []*model.Request{r}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveVTT, 4, 8, 0)
	delay := Search(context.Background(), v, []*model.Request{r}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveDelay, 4, 8, 0)

	assert.True(t, vtt.Feasible)
	assert.True(t, delay.Feasible)
	assert.Equal(t, 100, vtt.Cost, "VTT reports the raw completion time")
	assert.Equal(t, 50, delay.Cost, "DELAY reports only the overrun past the ideal dropoff time")
	assert.NotEqual(t, vtt.Cost, delay.Cost)
}

// A vehicle already mid-transit (Offset > 0) must have its delay walk start
// from callTime (now+Offset), the clock value it actually reaches startNode
// at, not from now itself — otherwise delay would be undercounted by Offset.
func TestSearchDelayObjectiveAccountsForVehicleOffset(t *testing.T) {
	v := newVehicle(4, 0)
	v.Offset = 30 // 30 seconds still remaining to reach node 0
	r := model.NewRequest(1, 0, 10, 0, 50, 300, 300)

	res := Search(context.Background(), v, []*model.Request{r}, lineOracle{}, 0, config.PolicyFixOnboard, config.ObjectiveDelay, 4, 8, 0)

	assert.True(t, res.Feasible)
	// Arrival at dropoff = callTime(30) + travel(100) = 130; ideal dropoff is
	// EntryTime(0)+IdealTravelTime(50) = 50, so delay = 80.
	assert.Equal(t, 80, res.Cost)
}

func TestSearchMemoryReplaysOrderRecordVerbatim(t *testing.T) {
	v := newVehicle(4, 0)
	r := model.NewRequest(1, 0, 5, 0, 50, 300, 300)
	r.BoardingTime = 0
	v.Passengers = []*model.Request{r}
	dropoff := &model.NodeStop{Request: r, IsPickup: false, Node: 5}
	v.OrderRecord = []*model.NodeStop{dropoff}

	res := SearchMemory(v, lineOracle{}, 0, config.ObjectiveVTT)

	assert.True(t, res.Feasible)
	if assert.Len(t, res.Stops, 1) {
		assert.Same(t, dropoff, res.Stops[0])
	}
}

func TestSearchMemoryEmptyOrderRecord(t *testing.T) {
	v := newVehicle(4, 0)
	res := SearchMemory(v, lineOracle{}, 0, config.ObjectiveVTT)
	assert.True(t, res.Feasible)
	assert.Empty(t, res.Stops)
}
