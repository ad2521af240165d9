package tracker

import (
	"time"

	"github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/models"
)

// Accumulator tracks active seconds for the single in-progress session.
// Accumulated seconds plus a nullable running mark make the current
// duration an O(1) computation at any instant, and survive the host
// suspending the tick loop: resuming just resumes wall-clock delta math
// from the stored mark.
type Accumulator struct {
	now func() time.Time

	current     *models.Session
	accumulated int
	mark        *time.Time // nil when not running
}

// NewAccumulator creates an idle accumulator using the given clock.
func NewAccumulator(now func() time.Time) *Accumulator {
	if now == nil {
		now = time.Now
	}
	return &Accumulator{now: now}
}

// Start opens a new session. It fails if a session is already active.
func (a *Accumulator) Start() (*models.Session, error) {
	if a.current != nil && a.current.IsActive {
		return nil, errors.NewSessionAlreadyActiveError(a.current.ID)
	}

	t := a.now()
	a.current = models.NewSession(t)
	a.accumulated = 0
	a.mark = &t
	return a.current, nil
}

// Pause folds the running delta into the accumulated total. No-op when
// there is no active session.
func (a *Accumulator) Pause() bool {
	if a.current == nil || !a.current.IsActive {
		return false
	}

	if a.mark != nil {
		a.accumulated += int(a.now().Sub(*a.mark).Seconds())
		a.current.Duration = a.accumulated
		a.mark = nil
	}
	a.current.IsActive = false
	return true
}

// Resume restarts the active window. No-op when there is no session or it
// is already active. Accumulated seconds are preserved.
func (a *Accumulator) Resume() bool {
	if a.current == nil || a.current.IsActive {
		return false
	}

	t := a.now()
	a.mark = &t
	a.current.IsActive = true
	return true
}

// End finalizes the session and returns a snapshot copy, or nil when no
// session is open. The accumulator resets for the next session.
func (a *Accumulator) End() *models.Session {
	if a.current == nil {
		return nil
	}

	if a.mark != nil {
		a.accumulated += int(a.now().Sub(*a.mark).Seconds())
	}
	t := a.now()
	a.current.IsActive = false
	a.current.EndTime = &t
	a.current.Duration = a.accumulated

	ended := a.current.Clone()
	a.current = nil
	a.mark = nil
	a.accumulated = 0
	return &ended
}

// Current returns the live session object, nil when idle.
func (a *Accumulator) Current() *models.Session {
	return a.current
}

// CurrentDuration computes the active seconds as of now.
func (a *Accumulator) CurrentDuration() int {
	if a.mark == nil {
		return a.accumulated
	}
	return a.accumulated + int(a.now().Sub(*a.mark).Seconds())
}

// Running reports whether a session is open and actively counting.
func (a *Accumulator) Running() bool {
	return a.current != nil && a.current.IsActive
}
