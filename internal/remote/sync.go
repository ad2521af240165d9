package remote

import (
	"context"
	"time"

	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/common/metrics"
	"github.com/pradumanrathod/studytracker/internal/common/observability"
	"github.com/pradumanrathod/studytracker/internal/models"
	"github.com/pradumanrathod/studytracker/internal/tracker"
)

// Syncer reconciles the local session list with the remote store on a
// fixed interval. Remote failures never regress local numbers; the best
// locally-known data always wins over an unreachable or partial remote.
type Syncer struct {
	svc      *tracker.Service
	store    Store
	uid      string
	interval time.Duration
	log      logger.Logger
	obs      *observability.Observability
}

// NewSyncer wires a syncer for one user.
func NewSyncer(svc *tracker.Service, store Store, uid string, interval time.Duration, log logger.Logger, obs *observability.Observability) *Syncer {
	return &Syncer{
		svc:      svc,
		store:    store,
		uid:      uid,
		interval: interval,
		log:      log.WithFields(map[string]interface{}{"component": "remote-sync", "uid": uid}),
		obs:      obs,
	}
}

// Run syncs on the configured interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce pulls remote sessions, merges them into the local list, then
// pushes recomputed stats back. Each leg degrades independently.
func (s *Syncer) SyncOnce(ctx context.Context) {
	started := time.Now()

	external, err := s.store.ListUserSessions(ctx, s.uid)
	if err != nil {
		metrics.SyncResults.WithLabelValues("pull", "error").Inc()
		if s.obs != nil {
			s.obs.RecordSync(ctx, "pull", "error")
		}
		s.log.WithError(err).Warn("remote session fetch failed, keeping local data", nil)
	} else {
		metrics.SyncResults.WithLabelValues("pull", "ok").Inc()
		if s.obs != nil {
			s.obs.RecordSync(ctx, "pull", "ok")
		}
		s.svc.MergeSessions(external)
	}

	stats := s.svc.GetStats()
	if err := s.store.SetUserStats(ctx, s.uid, stats); err != nil {
		metrics.SyncResults.WithLabelValues("push", "error").Inc()
		if s.obs != nil {
			s.obs.RecordSync(ctx, "push", "error")
		}
		s.log.WithError(err).Warn("remote stats push failed", nil)
	} else {
		metrics.SyncResults.WithLabelValues("push", "ok").Inc()
		if s.obs != nil {
			s.obs.RecordSync(ctx, "push", "ok")
		}
	}

	if s.obs != nil {
		s.obs.RecordSyncDuration(ctx, time.Since(started), "sync")
	}
}

// PushSession upserts a single session remotely, typically on session
// end. Failures are logged; the session stays in local storage.
func (s *Syncer) PushSession(ctx context.Context, session models.Session) {
	if err := s.store.UpsertUserSession(ctx, s.uid, session); err != nil {
		metrics.SyncResults.WithLabelValues("upsert", "error").Inc()
		s.log.WithError(err).Warn("remote session upsert failed", map[string]interface{}{
			"sessionId": session.ID,
		})
		return
	}
	metrics.SyncResults.WithLabelValues("upsert", "ok").Inc()
}
