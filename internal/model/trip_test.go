package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTripRequestSetAndServes(t *testing.T) {
	r1 := NewRequest(1, 0, 1, 0, 10, 100, 100)
	r2 := NewRequest(2, 0, 1, 0, 10, 100, 100)
	trip := &Trip{VehicleID: 1, Requests: []*Request{r1, r2}}

	set := trip.RequestSet()
	assert.Len(t, set, 2)
	assert.Same(t, r1, set[r1.ID])

	assert.True(t, trip.Serves(r1))
	assert.False(t, trip.Serves(&Request{ID: 99}))
}
