package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func TestGate_CooldownSameKind(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(300*time.Second, false).WithClock(clock.Now)

	assert.True(t, gate.Allow(KindFailover), "first emission must be allowed")
	clock.Advance(10 * time.Second)
	assert.False(t, gate.Allow(KindFailover))

	clock.Advance(289 * time.Second)
	assert.False(t, gate.Allow(KindFailover), "still inside cooldown")

	clock.Advance(1 * time.Second)
	assert.True(t, gate.Allow(KindFailover), "cooldown elapsed")
}

func TestGate_DeniedCheckDoesNotResetTimer(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(60*time.Second, false).WithClock(clock.Now)

	assert.True(t, gate.Allow(KindErrorRate))
	clock.Advance(59 * time.Second)
	assert.False(t, gate.Allow(KindErrorRate))
	clock.Advance(1 * time.Second)
	assert.True(t, gate.Allow(KindErrorRate))
}

func TestGate_KindsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(300*time.Second, false).WithClock(clock.Now)

	assert.True(t, gate.Allow(KindFailover))
	assert.True(t, gate.Allow(KindErrorRate))
	assert.False(t, gate.Allow(KindFailover))
	assert.False(t, gate.Allow(KindErrorRate))
}

func TestGate_MaintenanceAlwaysDenies(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(0, true).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		allowed, by, _ := gate.Check(KindFailover)
		assert.False(t, allowed)
		assert.Equal(t, SuppressedByMaintenance, by)
		clock.Advance(time.Hour)
	}
	assert.False(t, gate.Allow(KindErrorRate))
}

func TestGate_ZeroCooldownAlwaysAllows(t *testing.T) {
	gate := NewGate(0, false)
	for i := 0; i < 5; i++ {
		assert.True(t, gate.Allow(KindErrorRate))
	}
}

func TestGate_CheckReportsElapsed(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Minute, false).WithClock(clock.Now)

	gate.Allow(KindFailover)
	clock.Advance(15 * time.Second)
	allowed, by, elapsed := gate.Check(KindFailover)
	assert.False(t, allowed)
	assert.Equal(t, SuppressedByCooldown, by)
	assert.Equal(t, 15*time.Second, elapsed)
}
