package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVehicleParkedAtStartNode(t *testing.T) {
	v := NewVehicle(1, 4, 9)
	assert.Equal(t, 9, v.Node)
	assert.Equal(t, 9, v.PrevNode)
	assert.Equal(t, 0, v.Offset)
	assert.Equal(t, -1, v.RebalanceTarget)
	assert.Equal(t, 4, v.RemainingCapacity())
}

func TestVehicleHasAndRemovePassenger(t *testing.T) {
	v := NewVehicle(1, 4, 0)
	r1 := NewRequest(1, 0, 1, 0, 10, 100, 100)
	r2 := NewRequest(2, 0, 1, 0, 10, 100, 100)
	v.Passengers = []*Request{r1, r2}

	assert.True(t, v.HasPassenger(r1))
	assert.Equal(t, 2, v.Capacity-v.RemainingCapacity())

	v.RemovePassenger(r1)
	assert.False(t, v.HasPassenger(r1))
	assert.True(t, v.HasPassenger(r2))
}

func TestVehicleSetStateCreditsTimeInState(t *testing.T) {
	v := NewVehicle(1, 4, 0)
	v.SetState(EnRoute, 10)
	v.SetState(InUse, 25)

	assert.Equal(t, 10, v.TimeInState[Idle])
	assert.Equal(t, 15, v.TimeInState[EnRoute])
	assert.Equal(t, InUse, v.State)
}
