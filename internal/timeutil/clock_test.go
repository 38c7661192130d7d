package timeutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_After(t *testing.T) {
	clock := RealClock{}
	select {
	case <-clock.After(10 * time.Millisecond):
	case <-time.After(time.Second):
		t.Error("After did not fire")
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	assert.True(t, clock.Now().Equal(fixedTime))

	clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, clock.Since(fixedTime))

	later := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(later)
	assert.True(t, clock.Now().Equal(later))
}

func TestMockClock_AfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	got := <-clock.After(50 * time.Millisecond)
	assert.True(t, got.Equal(start.Add(50*time.Millisecond)))

	<-clock.After(2 * time.Second)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 2 * time.Second}, clock.Waits())
	assert.Equal(t, 2050*time.Millisecond, clock.Since(start))
}

func TestWait(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))

	require.NoError(t, Wait(context.Background(), clock, time.Second))
	assert.Equal(t, []time.Duration{time.Second}, clock.Waits())

	// non-positive durations do not wait at all
	require.NoError(t, Wait(context.Background(), clock, 0))
	assert.Len(t, clock.Waits(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Wait(ctx, RealClock{}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
