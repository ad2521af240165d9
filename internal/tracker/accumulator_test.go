package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradumanrathod/studytracker/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestAccumulator_StartCreatesActiveSession(t *testing.T) {
	clock := newFakeClock()
	acc := NewAccumulator(clock.Now)

	sess, err := acc.Start()
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, clock.Now(), sess.StartTime)
	assert.Nil(t, sess.EndTime)
	assert.Equal(t, 0, sess.Duration)
	assert.True(t, sess.IsActive)
	assert.True(t, acc.Running())
}

func TestAccumulator_StartWhileActiveReturnsError(t *testing.T) {
	acc := NewAccumulator(newFakeClock().Now)

	first, err := acc.Start()
	require.NoError(t, err)

	second, err := acc.Start()
	assert.Nil(t, second)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionAlreadyActive))

	// The first session is untouched by the failed attempt.
	assert.Same(t, first, acc.Current())
	assert.True(t, first.IsActive)
}

func TestAccumulator_PauseResumeAccumulation(t *testing.T) {
	clock := newFakeClock()
	acc := NewAccumulator(clock.Now)

	_, err := acc.Start()
	require.NoError(t, err)

	// Active a seconds, paused b seconds, active c seconds: the pause
	// window must not count.
	clock.Advance(40 * time.Second)
	assert.True(t, acc.Pause())
	assert.Equal(t, 40, acc.CurrentDuration())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 40, acc.CurrentDuration())

	assert.True(t, acc.Resume())
	clock.Advance(50 * time.Second)
	assert.Equal(t, 90, acc.CurrentDuration())

	ended := acc.End()
	require.NotNil(t, ended)
	assert.Equal(t, 90, ended.Duration)
}

func TestAccumulator_PauseResumeNoOps(t *testing.T) {
	clock := newFakeClock()
	acc := NewAccumulator(clock.Now)

	// Nothing open yet.
	assert.False(t, acc.Pause())
	assert.False(t, acc.Resume())

	_, err := acc.Start()
	require.NoError(t, err)

	// Resume while already running is a no-op and must not reset the mark.
	clock.Advance(30 * time.Second)
	assert.False(t, acc.Resume())
	assert.Equal(t, 30, acc.CurrentDuration())

	// Double pause is harmless.
	assert.True(t, acc.Pause())
	assert.False(t, acc.Pause())
	assert.Equal(t, 30, acc.CurrentDuration())
}

func TestAccumulator_EndFinalizesAndResets(t *testing.T) {
	clock := newFakeClock()
	acc := NewAccumulator(clock.Now)

	_, err := acc.Start()
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	ended := acc.End()
	require.NotNil(t, ended)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.EndTime)
	assert.Equal(t, clock.Now(), *ended.EndTime)
	assert.Equal(t, 120, ended.Duration)

	// Accumulator is reset for the next session.
	assert.Nil(t, acc.Current())
	assert.False(t, acc.Running())
	assert.Equal(t, 0, acc.CurrentDuration())

	_, err = acc.Start()
	assert.NoError(t, err)
}

func TestAccumulator_EndWhilePaused(t *testing.T) {
	clock := newFakeClock()
	acc := NewAccumulator(clock.Now)

	_, err := acc.Start()
	require.NoError(t, err)
	clock.Advance(75 * time.Second)
	acc.Pause()
	clock.Advance(time.Hour)

	ended := acc.End()
	require.NotNil(t, ended)
	assert.Equal(t, 75, ended.Duration)
}

func TestAccumulator_EndWithoutSessionReturnsNil(t *testing.T) {
	acc := NewAccumulator(newFakeClock().Now)
	assert.Nil(t, acc.End())
}
