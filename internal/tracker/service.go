package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/common/metrics"
	"github.com/pradumanrathod/studytracker/internal/models"
)

const (
	defaultTickInterval    = time.Second
	defaultPersistInterval = 5 * time.Second
	persistTimeout         = 3 * time.Second
)

// Config tunes a Service instance.
type Config struct {
	UID             string
	TickInterval    time.Duration
	PersistInterval time.Duration
	Clock           func() time.Time
}

// StateCallback receives the timer state on every transition and tick.
type StateCallback func(models.TimerState)

// SessionCallback receives a snapshot copy of the current session.
type SessionCallback func(models.Session)

type subscriber struct {
	onState   StateCallback
	onSession SessionCallback
}

// Service is the single timer/session authority for one user. It
// orchestrates the accumulator, the session store, and stat computation,
// and notifies subscribers on every state or progress change.
//
// All operations are synchronous; the periodic tick goroutine is the only
// background writer, so a single mutex covers everything.
type Service struct {
	mu    sync.Mutex
	clock func() time.Time
	acc   *Accumulator
	store *Store
	log   logger.Logger

	state           models.TimerState
	tickInterval    time.Duration
	persistInterval time.Duration
	lastPersist     time.Time

	subs      map[int]subscriber
	nextSubID int

	stopTick chan struct{} // non-nil while the tick loop runs

	endedHook func(models.Session)
}

// NewService builds a service persisting through the given store.
func NewService(store *Store, cfg Config, log logger.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = defaultPersistInterval
	}

	return &Service{
		clock:           cfg.Clock,
		acc:             NewAccumulator(cfg.Clock),
		store:           store,
		log:             log.WithFields(map[string]interface{}{"component": "timer-service"}),
		state:           models.StateIdle,
		tickInterval:    cfg.TickInterval,
		persistInterval: cfg.PersistInterval,
		subs:            make(map[int]subscriber),
	}
}

// LoadHistory replaces the session list with the durable local copy.
// Called once at startup before any session is opened.
func (s *Service) LoadHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Load(ctx)
}

// Subscribe registers observer callbacks; either may be nil. The returned
// function unsubscribes.
func (s *Service) Subscribe(onState StateCallback, onSession SessionCallback) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = subscriber{onState: onState, onSession: onSession}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetSessionEndedHook registers a hook invoked with a snapshot of every
// ended session, after local persistence.
func (s *Service) SetSessionEndedHook(fn func(models.Session)) {
	s.mu.Lock()
	s.endedHook = fn
	s.mu.Unlock()
}

// StartSession opens a new session. Returns the already-active error when
// a session is open; that indicates a caller bug, not a race.
func (s *Service) StartSession() (*models.Session, error) {
	s.mu.Lock()
	sess, err := s.acc.Start()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.store.Add(sess)
	s.state = models.StateRunning
	s.lastPersist = s.clock()
	s.startTickLocked()
	snapshot := sess.Clone()
	listSnapshot := s.store.List()
	s.mu.Unlock()

	metrics.SessionsStarted.Inc()
	metrics.SetTimerState(string(models.StateRunning))
	s.persistOutsideLock(listSnapshot)
	s.notify(models.StateRunning, &snapshot)

	return &snapshot, nil
}

// PauseSession stops active-time accounting. No-op when nothing is
// running; rapid double-clicks must not raise.
func (s *Service) PauseSession() {
	s.mu.Lock()
	if !s.acc.Pause() {
		s.mu.Unlock()
		return
	}
	s.state = models.StatePaused
	s.stopTickLocked()
	snapshot := s.acc.Current().Clone()
	s.mu.Unlock()

	metrics.SetTimerState(string(models.StatePaused))
	s.notify(models.StatePaused, &snapshot)
}

// ResumeSession restarts accounting from a new wall-clock mark. No-op
// when there is no session or it is already active.
func (s *Service) ResumeSession() {
	s.mu.Lock()
	if !s.acc.Resume() {
		s.mu.Unlock()
		return
	}
	s.state = models.StateRunning
	s.startTickLocked()
	snapshot := s.acc.Current().Clone()
	s.mu.Unlock()

	metrics.SetTimerState(string(models.StateRunning))
	s.notify(models.StateRunning, &snapshot)
}

// EndSession finalizes the current session and returns a snapshot, or nil
// when no session is open.
func (s *Service) EndSession() *models.Session {
	s.mu.Lock()
	ended := s.acc.End()
	if ended == nil {
		s.mu.Unlock()
		return nil
	}
	s.state = models.StateIdle
	s.stopTickLocked()
	listSnapshot := s.store.List()
	hook := s.endedHook
	s.mu.Unlock()

	valid := "false"
	if ended.Duration >= MinValidSeconds {
		valid = "true"
	}
	metrics.SessionsEnded.WithLabelValues(valid).Inc()
	metrics.FocusSeconds.Add(float64(ended.Duration))
	metrics.SetTimerState(string(models.StateIdle))

	s.persistOutsideLock(listSnapshot)
	s.notify(models.StateIdle, nil)
	if hook != nil {
		hook(ended.Clone())
	}

	return ended
}

// AddBreak opens a break on the active session. No-op when idle/paused.
func (s *Service) AddBreak(reason models.BreakReason) {
	s.mu.Lock()
	cur := s.acc.Current()
	if cur == nil || !cur.IsActive {
		s.mu.Unlock()
		return
	}
	cur.Breaks = append(cur.Breaks, models.NewBreak(s.clock(), reason))
	listSnapshot := s.store.List()
	s.mu.Unlock()

	s.persistOutsideLock(listSnapshot)
}

// EndBreak closes the most recently opened break if it is still open.
// Calling twice in a row is harmless.
func (s *Service) EndBreak() {
	s.mu.Lock()
	cur := s.acc.Current()
	if cur == nil || len(cur.Breaks) == 0 {
		s.mu.Unlock()
		return
	}
	last := &cur.Breaks[len(cur.Breaks)-1]
	if !last.IsOpen() {
		s.mu.Unlock()
		return
	}
	t := s.clock()
	last.EndTime = &t
	last.Duration = int(t.Sub(last.StartTime).Seconds())
	listSnapshot := s.store.List()
	s.mu.Unlock()

	s.persistOutsideLock(listSnapshot)
}

// GetCurrentSession returns a snapshot of the open session, nil if idle.
func (s *Service) GetCurrentSession() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.acc.Current()
	if cur == nil {
		return nil
	}
	snapshot := cur.Clone()
	return &snapshot
}

// GetSessions returns a snapshot of all sessions, insertion order.
func (s *Service) GetSessions() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// GetStats recomputes aggregate statistics from the session list.
func (s *Service) GetStats() models.UserStats {
	s.mu.Lock()
	sessions := s.store.List()
	s.mu.Unlock()
	return ComputeStats(sessions, s.clock())
}

// GetMilestones evaluates the default milestone ladder.
func (s *Service) GetMilestones() []Milestone {
	return EvaluateMilestones(s.GetStats(), DefaultMilestones)
}

// State returns the current timer state.
func (s *Service) State() models.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MergeSessions reconciles an externally fetched session list. The live
// active session always survives the merge.
func (s *Service) MergeSessions(external []models.Session) {
	s.mu.Lock()
	s.store.Merge(external, s.acc.Current())
	listSnapshot := s.store.List()
	s.mu.Unlock()

	s.persistOutsideLock(listSnapshot)
}

// FlushProgress folds in-progress active time into the current session
// and persists synchronously, bypassing the throttle window. The host
// calls this before teardown to avoid losing unpersisted time.
func (s *Service) FlushProgress() {
	s.mu.Lock()
	if cur := s.acc.Current(); cur != nil {
		cur.Duration = s.acc.CurrentDuration()
	}
	s.lastPersist = s.clock()
	listSnapshot := s.store.List()
	s.mu.Unlock()

	s.persistOutsideLock(listSnapshot)
}

// ClearAllData drops every session from memory and durable storage.
func (s *Service) ClearAllData(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear(ctx)
}

// Close tears down the tick loop and flushes progress.
func (s *Service) Close() {
	s.mu.Lock()
	s.stopTickLocked()
	s.mu.Unlock()
	s.FlushProgress()
}

func (s *Service) startTickLocked() {
	if s.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	s.stopTick = stop
	go s.tickLoop(stop)
}

func (s *Service) stopTickLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Service) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick recomputes the live duration, notifies observers, and persists at
// most once per throttle window to bound write amplification.
func (s *Service) tick() {
	s.mu.Lock()
	if !s.acc.Running() {
		s.mu.Unlock()
		return
	}
	cur := s.acc.Current()
	cur.Duration = s.acc.CurrentDuration()
	snapshot := cur.Clone()
	state := s.state

	now := s.clock()
	var listSnapshot []models.Session
	if now.Sub(s.lastPersist) >= s.persistInterval {
		s.lastPersist = now
		listSnapshot = s.store.List()
	}
	s.mu.Unlock()

	if listSnapshot != nil {
		s.persistOutsideLock(listSnapshot)
	}
	s.notify(state, &snapshot)
}

// persistOutsideLock performs the durable write with the snapshot taken
// under the lock; failures are logged and in-memory state stays
// authoritative.
func (s *Service) persistOutsideLock(sessions []models.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.PersistSnapshot(ctx, sessions); err != nil {
		s.log.WithError(err).Warn("progress persist failed", nil)
	}
}

func (s *Service) notify(state models.TimerState, session *models.Session) {
	s.mu.Lock()
	subs := make([]subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.onState != nil {
			sub.onState(state)
		}
		if sub.onSession != nil && session != nil {
			sub.onSession(session.Clone())
		}
	}
}
