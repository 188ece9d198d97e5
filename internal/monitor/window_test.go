package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWindow_NeverExceedsCapacity(t *testing.T) {
	w := NewErrorWindow(5)
	for i := 0; i < 23; i++ {
		w.Push(i%3 == 0)
		assert.LessOrEqual(t, w.Len(), w.Cap())
	}
	assert.Equal(t, 5, w.Len())
}

func TestErrorWindow_EvictsOldest(t *testing.T) {
	w := NewErrorWindow(3)
	w.Push(true)
	w.Push(false)
	w.Push(false)
	require.Equal(t, []bool{true, false, false}, w.Snapshot())
	require.Equal(t, 1, w.Errors())

	w.Push(false)
	assert.Equal(t, []bool{false, false, false}, w.Snapshot())
	assert.Equal(t, 0, w.Errors())

	w.Push(true)
	assert.Equal(t, []bool{false, false, true}, w.Snapshot())
	assert.Equal(t, 1, w.Errors())
}

func TestErrorWindow_RateSuppressedBelowMinSamples(t *testing.T) {
	w := NewErrorWindow(1000)
	for i := 0; i < MinSamples-1; i++ {
		w.Push(true)
		_, ok := w.ErrorRate()
		assert.False(t, ok, "rate must stay undefined at %d samples", w.Len())
	}
	w.Push(true)
	rate, ok := w.ErrorRate()
	require.True(t, ok)
	assert.InDelta(t, 100.0, rate, 0.0001)
}

func TestErrorWindow_SmallCapacityNeverReady(t *testing.T) {
	w := NewErrorWindow(10)
	for i := 0; i < 100; i++ {
		w.Push(true)
	}
	_, ok := w.ErrorRate()
	assert.False(t, ok)
	assert.False(t, w.Ready())
}

func TestErrorWindow_RateOverSlidingWindow(t *testing.T) {
	w := NewErrorWindow(20)
	w.Push(true)
	for i := 0; i < 19; i++ {
		w.Push(false)
	}
	rate, ok := w.ErrorRate()
	require.True(t, ok)
	assert.InDelta(t, 5.0, rate, 0.0001)

	// 最早的错误被淘汰
	w.Push(false)
	rate, ok = w.ErrorRate()
	require.True(t, ok)
	assert.InDelta(t, 0.0, rate, 0.0001)
}

func TestNewErrorWindow_ClampsCapacity(t *testing.T) {
	assert.Equal(t, 1, NewErrorWindow(0).Cap())
	assert.Equal(t, 1, NewErrorWindow(-3).Cap())
}
