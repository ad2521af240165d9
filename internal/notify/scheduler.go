package notify

import (
	"context"
	"time"

	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/storage"
)

// Scheduler fires the daily reminder once the configured local time has
// passed, at most once per calendar day in the user's timezone. Settings
// are re-read on every check so edits take effect without a restart.
type Scheduler struct {
	notifier *Notifier
	kv       storage.KV
	uid      string
	log      logger.Logger
	clock    func() time.Time

	lastFiredDay string // "2006-01-02" in the user's timezone
}

func NewScheduler(notifier *Notifier, kv storage.KV, uid string, log logger.Logger) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		kv:       kv,
		uid:      uid,
		log:      log.WithFields(map[string]interface{}{"component": "reminder-scheduler"}),
		clock:    time.Now,
	}
}

// Run checks every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckOnce(ctx)
		}
	}
}

// CheckOnce fires the reminder if it is due. Returns whether it fired.
func (s *Scheduler) CheckOnce(ctx context.Context) bool {
	settings := LoadSettings(ctx, s.kv, s.uid)
	if !settings.Enabled {
		return false
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.Local
	}
	now := s.clock().In(loc)

	due, err := time.ParseInLocation("15:04", settings.TimeHHMM, loc)
	if err != nil {
		s.log.WithError(err).Warn("reminder time is malformed, skipping", nil)
		return false
	}
	dueToday := time.Date(now.Year(), now.Month(), now.Day(), due.Hour(), due.Minute(), 0, 0, loc)
	if now.Before(dueToday) {
		return false
	}

	day := now.Format("2006-01-02")
	if day == s.lastFiredDay {
		return false
	}

	if err := s.notifier.SendReminder(ctx, settings); err != nil {
		s.log.WithError(err).Warn("reminder delivery failed, will retry next check", nil)
		return false
	}
	s.lastFiredDay = day
	return true
}
