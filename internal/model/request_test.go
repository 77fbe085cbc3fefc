package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestDerivesDeadlines(t *testing.T) {
	r := NewRequest(1, 3, 7, 100, 50, 300, 600)

	assert.Equal(t, 100, r.EntryTime)
	assert.Equal(t, 50, r.IdealTravelTime)
	assert.Equal(t, 400, r.LatestBoarding)
	assert.Equal(t, 750, r.LatestAlighting)
	assert.False(t, r.Boarded())
	assert.False(t, r.Alighted())
}

func TestRequestBoardedAlighted(t *testing.T) {
	r := NewRequest(1, 0, 1, 0, 10, 100, 100)
	assert.False(t, r.Boarded())

	r.BoardingTime = 20
	assert.True(t, r.Boarded())
	assert.False(t, r.Alighted())
	assert.Equal(t, 20, r.WaitDuration())

	r.AlightingTime = 35
	assert.True(t, r.Alighted())
}

func TestRequestDelay(t *testing.T) {
	r := NewRequest(1, 0, 1, 0, 10, 100, 100)
	assert.Equal(t, 0, r.Delay(), "unalighted requests report zero delay")

	r.AlightingTime = 8
	assert.Equal(t, 0, r.Delay(), "arriving before the ideal dropoff time is never a delay")

	r.AlightingTime = 25
	assert.Equal(t, 15, r.Delay())
}
