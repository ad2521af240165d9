package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/models"
	"github.com/pradumanrathod/studytracker/internal/storage"
)

// ==========================
// Test Helper Functions
// ==========================

// newTestService uses a fake clock and hour-long tick/persist intervals
// so the background loop never interferes with assertions.
func newTestService(t *testing.T, kv storage.KV) (*Service, *fakeClock) {
	clock := newFakeClock()
	store := NewStore(kv, "user-1", createTestLogger(t))
	svc := NewService(store, Config{
		UID:             "user-1",
		TickInterval:    time.Hour,
		PersistInterval: time.Hour,
		Clock:           clock.Now,
	}, createTestLogger(t))
	t.Cleanup(svc.Close)
	return svc, clock
}

// ==========================
// Lifecycle Tests
// ==========================

func TestService_StartPauseResumeEnd(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	sess, err := svc.StartSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, models.StateRunning, svc.State())

	clock.Advance(40 * time.Second)
	svc.PauseSession()
	assert.Equal(t, models.StatePaused, svc.State())

	clock.Advance(20 * time.Minute)
	svc.ResumeSession()
	assert.Equal(t, models.StateRunning, svc.State())

	clock.Advance(50 * time.Second)
	ended := svc.EndSession()
	require.NotNil(t, ended)
	assert.Equal(t, 90, ended.Duration)
	assert.Equal(t, models.StateIdle, svc.State())
	assert.Nil(t, svc.GetCurrentSession())

	sessions := svc.GetSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, ended.ID, sessions[0].ID)
	assert.Equal(t, 90, sessions[0].Duration)
}

func TestService_StartWhileActiveFails(t *testing.T) {
	svc, _ := newTestService(t, newMemKV())

	_, err := svc.StartSession()
	require.NoError(t, err)

	_, err = svc.StartSession()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionAlreadyActive))
	assert.Equal(t, models.StateRunning, svc.State())
}

func TestService_PauseResumeEndWhenIdleAreNoOps(t *testing.T) {
	svc, _ := newTestService(t, newMemKV())

	svc.PauseSession()
	svc.ResumeSession()
	assert.Nil(t, svc.EndSession())
	assert.Equal(t, models.StateIdle, svc.State())
	assert.Empty(t, svc.GetSessions())
}

func TestService_SessionsPersistAcrossRestart(t *testing.T) {
	kv := newMemKV()

	svc, clock := newTestService(t, kv)
	_, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	require.NotNil(t, svc.EndSession())

	// A fresh service over the same storage sees the ended session.
	svc2, _ := newTestService(t, kv)
	svc2.LoadHistory(context.Background())
	sessions := svc2.GetSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 300, sessions[0].Duration)
}

// ==========================
// Flush Tests
// ==========================

func TestService_FlushProgressPersistsMidSession(t *testing.T) {
	kv := newMemKV()
	svc, clock := newTestService(t, kv)

	sess, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(130 * time.Second)

	// No tick has fired; the durable copy is stale until flushed.
	svc.FlushProgress()

	raw, err := kv.Get(context.Background(), storage.SessionsKey("user-1"))
	require.NoError(t, err)
	stored, err := models.UnmarshalSessions([]byte(raw))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, sess.ID, stored[0].ID)
	assert.Equal(t, 130, stored[0].Duration)
	assert.True(t, stored[0].IsActive)
	assert.Nil(t, stored[0].EndTime)
}

func TestService_CloseFlushesProgress(t *testing.T) {
	kv := newMemKV()
	svc, clock := newTestService(t, kv)

	_, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(90 * time.Second)
	svc.Close()

	raw, err := kv.Get(context.Background(), storage.SessionsKey("user-1"))
	require.NoError(t, err)
	stored, err := models.UnmarshalSessions([]byte(raw))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 90, stored[0].Duration)
}

// ==========================
// Break Tests
// ==========================

func TestService_BreakLifecycle(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	_, err := svc.StartSession()
	require.NoError(t, err)

	svc.AddBreak(models.BreakAway)
	clock.Advance(3 * time.Minute)
	svc.EndBreak()

	cur := svc.GetCurrentSession()
	require.NotNil(t, cur)
	require.Len(t, cur.Breaks, 1)
	assert.Equal(t, models.BreakAway, cur.Breaks[0].Reason)
	assert.Equal(t, 180, cur.Breaks[0].Duration)
	require.NotNil(t, cur.Breaks[0].EndTime)
}

func TestService_EndBreakTwiceIsHarmless(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	_, err := svc.StartSession()
	require.NoError(t, err)
	svc.AddBreak(models.BreakManual)
	clock.Advance(time.Minute)
	svc.EndBreak()

	clock.Advance(10 * time.Minute)
	svc.EndBreak()

	cur := svc.GetCurrentSession()
	require.Len(t, cur.Breaks, 1)
	assert.Equal(t, 60, cur.Breaks[0].Duration)
}

func TestService_AddBreakWhenIdleIsNoOp(t *testing.T) {
	svc, _ := newTestService(t, newMemKV())
	svc.AddBreak(models.BreakAway)
	svc.EndBreak()
	assert.Nil(t, svc.GetCurrentSession())
}

// ==========================
// Observer Tests
// ==========================

func TestService_SubscribeAndUnsubscribe(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	var states []models.TimerState
	var sessions []models.Session
	unsubscribe := svc.Subscribe(
		func(st models.TimerState) { states = append(states, st) },
		func(s models.Session) { sessions = append(sessions, s) },
	)

	_, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	svc.PauseSession()
	svc.ResumeSession()
	svc.EndSession()

	assert.Equal(t, []models.TimerState{
		models.StateRunning,
		models.StatePaused,
		models.StateRunning,
		models.StateIdle,
	}, states)
	// End notifies state only; the session callback fires for the
	// start/pause/resume snapshots.
	require.Len(t, sessions, 3)
	assert.Equal(t, 120, sessions[1].Duration)

	unsubscribe()
	_, err = svc.StartSession()
	require.NoError(t, err)
	assert.Len(t, states, 4)
}

func TestService_SubscriberMutationCannotCorruptState(t *testing.T) {
	svc, _ := newTestService(t, newMemKV())

	svc.Subscribe(nil, func(s models.Session) {
		s.Duration = 9999
		s.IsActive = false
	})

	sess, err := svc.StartSession()
	require.NoError(t, err)

	cur := svc.GetCurrentSession()
	require.NotNil(t, cur)
	assert.Equal(t, sess.ID, cur.ID)
	assert.Equal(t, 0, cur.Duration)
	assert.True(t, cur.IsActive)
}

// ==========================
// Merge and Stats Tests
// ==========================

func TestService_MergeSessionsKeepsActiveSession(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	sess, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	svc.FlushProgress()

	stale := endedSession(sess.ID, sess.StartTime, 5)
	svc.MergeSessions([]models.Session{
		stale,
		endedSession("remote-1", sess.StartTime.Add(-24*time.Hour), 600),
	})

	cur := svc.GetCurrentSession()
	require.NotNil(t, cur)
	assert.True(t, cur.IsActive)

	sessions := svc.GetSessions()
	require.Len(t, sessions, 2)
}

func TestService_GetStatsReflectsEndedSessions(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	_, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	svc.EndSession()

	stats := svc.GetStats()
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 600, stats.TotalFocusTime)
	assert.Equal(t, 600, stats.TodayFocusTime)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestService_SessionEndedHookReceivesSnapshot(t *testing.T) {
	svc, clock := newTestService(t, newMemKV())

	var got *models.Session
	svc.SetSessionEndedHook(func(s models.Session) { got = &s })

	_, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	ended := svc.EndSession()

	require.NotNil(t, got)
	assert.Equal(t, ended.ID, got.ID)
	assert.Equal(t, 120, got.Duration)
	require.NotNil(t, got.EndTime)
}

func TestService_ClearAllData(t *testing.T) {
	kv := newMemKV()
	svc, clock := newTestService(t, kv)

	_, err := svc.StartSession()
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	svc.EndSession()
	require.Len(t, svc.GetSessions(), 1)

	svc.ClearAllData(context.Background())
	assert.Empty(t, svc.GetSessions())
	_, err = kv.Get(context.Background(), storage.SessionsKey("user-1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
