package shareability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwmdev/ridepool/internal/config"
	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/network"
)

// lineOracle is a minimal Oracle for shareability tests: every node sits on
// a number line, t(a,b) = |a-b| * 10.
type lineOracle struct{}

func (lineOracle) Time(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d * 10
}
func (lineOracle) Distance(a, b int) int { return lineOracle{}.Time(a, b) / 10 }
func (lineOracle) VehicleTime(offset, node, x int) int {
	return offset + lineOracle{}.Time(node, x)
}

func baseConfig() config.Config {
	cfg := config.Defaults()
	cfg.CTSP = config.PolicyFixOnboard
	cfg.CTSPObjective = config.ObjectiveVTT
	cfg.CarSize = 4
	cfg.LPLimitValue = 8
	return cfg
}

func TestBuildFindsRVEdgeForReachableVehicle(t *testing.T) {
	v := model.NewVehicle(1, 4, 0)
	r := model.NewRequest(1, 5, 10, 0, 50, 300, 300)

	g, err := Build(context.Background(), []*model.Vehicle{v}, []*model.Request{r}, lineOracle{}, 0, baseConfig(), 2)
	require.NoError(t, err)

	rv := g.RVNeighbors(r.ID)
	require.Len(t, rv, 1)
	assert.Equal(t, v.ID, rv[0].VehicleID)
}

func TestBuildExcludesVehicleTooFarToMakeBoardingDeadline(t *testing.T) {
	v := model.NewVehicle(1, 4, 1000) // far away
	r := model.NewRequest(1, 5, 10, 0, 50, 10, 300)

	g, err := Build(context.Background(), []*model.Vehicle{v}, []*model.Request{r}, lineOracle{}, 0, baseConfig(), 2)
	require.NoError(t, err)
	assert.Empty(t, g.RVNeighbors(r.ID))
}

func TestBuildFindsRREdgeBetweenShareableRequests(t *testing.T) {
	r1 := model.NewRequest(1, 0, 10, 0, 100, 300, 600)
	r2 := model.NewRequest(2, 2, 8, 0, 60, 300, 600)

	g, err := Build(context.Background(), nil, []*model.Request{r1, r2}, lineOracle{}, 0, baseConfig(), 2)
	require.NoError(t, err)

	assert.Contains(t, g.RRNeighbors(r1.ID), r2.ID)
}

func TestBuildPruningRRKCapsNeighborCount(t *testing.T) {
	r1 := model.NewRequest(1, 0, 100, 0, 1000, 1000, 2000)
	r2 := model.NewRequest(2, 1, 99, 0, 980, 1000, 2000)
	r3 := model.NewRequest(3, 2, 98, 0, 960, 1000, 2000)

	cfg := baseConfig()
	cfg.PruningRRK = 1

	g, err := Build(context.Background(), nil, []*model.Request{r1, r2, r3}, lineOracle{}, 0, cfg, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(g.RRNeighbors(r1.ID)), 1)
}

func TestBuildUsesNetworkOracleDirectly(t *testing.T) {
	tm := [][]int{{0, 10}, {10, 0}}
	dm := [][]int{{0, 1}, {1, 0}}
	oracle := network.New(tm, dm, nil, 0, 0)

	v := model.NewVehicle(1, 4, 0)
	r := model.NewRequest(1, 0, 1, 0, 10, 300, 300)

	g, err := Build(context.Background(), []*model.Vehicle{v}, []*model.Request{r}, oracle, 0, baseConfig(), 1)
	require.NoError(t, err)
	assert.Len(t, g.RVNeighbors(r.ID), 1)
}
