// Package presence models the boundary with the person-detection
// collaborator. Detection itself is external; the tracker only consumes
// discrete boolean presence events.
package presence

import (
	"context"
	"sync"

	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/models"
)

// Detector is implemented by the external detection collaborator.
// onChange is invoked only on presence transitions, not per frame.
type Detector interface {
	StartDetection(ctx context.Context, source string, onChange func(present bool)) error
	StopDetection()
}

// Controller is the subset of the timer service the watcher drives.
type Controller interface {
	PauseSession()
	ResumeSession()
	AddBreak(reason models.BreakReason)
	EndBreak()
}

// Watcher maps presence events onto session lifecycle operations: absence
// pauses with an "away" break, return resumes — unless the user paused
// manually, in which case returning does not override their choice.
type Watcher struct {
	mu          sync.Mutex
	ctrl        Controller
	log         logger.Logger
	manualPause bool
}

func NewWatcher(ctrl Controller, log logger.Logger) *Watcher {
	return &Watcher{
		ctrl: ctrl,
		log:  log.WithFields(map[string]interface{}{"component": "presence-watcher"}),
	}
}

// OnPresence handles one presence transition from the detector.
func (w *Watcher) OnPresence(present bool) {
	w.mu.Lock()
	manual := w.manualPause
	w.mu.Unlock()

	if !present {
		w.log.Debug("person away, pausing session", nil)
		w.ctrl.AddBreak(models.BreakAway)
		w.ctrl.PauseSession()
		return
	}

	if manual {
		w.log.Debug("person back but session was paused manually, not resuming", nil)
		return
	}
	w.log.Debug("person back, resuming session", nil)
	w.ctrl.EndBreak()
	w.ctrl.ResumeSession()
}

// ManualPause records a user-initiated pause and pauses the session.
func (w *Watcher) ManualPause() {
	w.mu.Lock()
	w.manualPause = true
	w.mu.Unlock()
	w.ctrl.AddBreak(models.BreakManual)
	w.ctrl.PauseSession()
}

// ManualResume clears the manual latch and resumes the session.
func (w *Watcher) ManualResume() {
	w.mu.Lock()
	w.manualPause = false
	w.mu.Unlock()
	w.ctrl.EndBreak()
	w.ctrl.ResumeSession()
}
