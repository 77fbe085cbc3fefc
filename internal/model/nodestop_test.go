package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeStopDeadline(t *testing.T) {
	r := NewRequest(1, 0, 1, 0, 10, 100, 100)
	pickup := &NodeStop{Request: r, IsPickup: true, Node: 0}
	dropoff := &NodeStop{Request: r, IsPickup: false, Node: 1}

	assert.Equal(t, r.LatestBoarding, pickup.Deadline())
	assert.Equal(t, r.LatestAlighting, dropoff.Deadline())
}

func TestNodeStopLessOrdersPickupBeforeDropoffSameRequest(t *testing.T) {
	r := NewRequest(1, 0, 1, 0, 10, 100, 100)
	pickup := &NodeStop{Request: r, IsPickup: true, Node: 0}
	dropoff := &NodeStop{Request: r, IsPickup: false, Node: 1}

	assert.True(t, pickup.Less(dropoff))
	assert.False(t, dropoff.Less(pickup))
}

func TestNodeStopLessOrdersByRequestID(t *testing.T) {
	r1 := NewRequest(1, 0, 1, 0, 10, 100, 100)
	r2 := NewRequest(2, 0, 1, 0, 10, 100, 100)
	a := &NodeStop{Request: r1, IsPickup: false, Node: 0}
	b := &NodeStop{Request: r2, IsPickup: true, Node: 0}

	assert.True(t, a.Less(b))
}
