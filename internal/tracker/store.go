package tracker

import (
	"context"

	"github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/common/metrics"
	"github.com/pradumanrathod/studytracker/internal/models"
	"github.com/pradumanrathod/studytracker/internal/storage"
)

// Store owns the canonical in-memory session list. External persistence
// holds serialized copies reconciled via Merge, never authoritative over
// an in-flight active session.
type Store struct {
	sessions []*models.Session
	kv       storage.KV
	key      string
	log      logger.Logger
}

// NewStore creates a store persisting to the sessions slot for uid.
func NewStore(kv storage.KV, uid string, log logger.Logger) *Store {
	return &Store{
		kv:  kv,
		key: storage.SessionsKey(uid),
		log: log.WithFields(map[string]interface{}{"component": "session-store"}),
	}
}

// Add appends a session. While active it is always the last entry.
func (s *Store) Add(sess *models.Session) {
	s.sessions = append(s.sessions, sess)
}

// List returns a deep-copied snapshot in insertion order.
func (s *Store) List() []models.Session {
	out := make([]models.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Len returns the raw list size, sub-minute sessions included.
func (s *Store) Len() int {
	return len(s.sessions)
}

// Clear drops all sessions from memory and the durable slot.
func (s *Store) Clear(ctx context.Context) {
	s.sessions = nil
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.log.WithError(err).Warn("failed to clear durable sessions slot", nil)
	}
}

// Persist serializes the full list into the durable slot. A write failure
// leaves in-memory state untouched; memory is authoritative over storage.
func (s *Store) Persist(ctx context.Context) error {
	return s.PersistSnapshot(ctx, s.List())
}

// PersistSnapshot writes a pre-taken snapshot. The service uses this to
// take the snapshot under its lock and do the slow write outside it.
func (s *Store) PersistSnapshot(ctx context.Context, sessions []models.Session) error {
	data, err := models.MarshalSessions(sessions)
	if err != nil {
		metrics.PersistResults.WithLabelValues("error").Inc()
		return errors.NewStorageWriteFailedError(s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		metrics.PersistResults.WithLabelValues("error").Inc()
		s.log.WithError(err).Warn("session persist failed, keeping in-memory state", nil)
		return errors.NewStorageWriteFailedError(s.key, err)
	}
	metrics.PersistResults.WithLabelValues("ok").Inc()
	return nil
}

// Load replaces the in-memory list with the durable copy. Corrupt or
// missing data yields an empty list, never an error.
func (s *Store) Load(ctx context.Context) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if err != storage.ErrNotFound {
			s.log.WithError(err).Warn("failed to load sessions, starting empty", nil)
		}
		s.sessions = nil
		return
	}

	sessions, err := models.UnmarshalSessions([]byte(raw))
	if err != nil {
		s.log.WithError(err).Warn("stored sessions corrupt, starting empty", nil)
		s.sessions = nil
		return
	}

	s.sessions = make([]*models.Session, len(sessions))
	for i := range sessions {
		sess := sessions[i]
		s.sessions[i] = &sess
	}
}

// moreFinal reports whether candidate should replace existing: a set
// endTime beats an unset one; otherwise the larger duration wins. Ties
// keep the existing record, which makes repeated merges stable.
func moreFinal(existing, candidate models.Session) bool {
	if candidate.IsEnded() != existing.IsEnded() {
		return candidate.IsEnded()
	}
	return candidate.Duration > existing.Duration
}

// Merge reconciles an externally supplied session list, keyed by id.
// Records present only externally are added; local-only records are kept.
// The live active session, if any, is re-written over any merge result at
// its id. Idempotent: merging the same set twice equals merging it once.
func (s *Store) Merge(external []models.Session, active *models.Session) {
	byID := make(map[string]int, len(s.sessions))
	for i, sess := range s.sessions {
		byID[sess.ID] = i
	}

	for _, inc := range external {
		idx, ok := byID[inc.ID]
		if !ok {
			cp := inc.Clone()
			s.sessions = append(s.sessions, &cp)
			byID[inc.ID] = len(s.sessions) - 1
			continue
		}
		if moreFinal(*s.sessions[idx], inc) {
			cp := inc.Clone()
			s.sessions[idx] = &cp
		}
	}

	// The live object beats any stale external copy.
	if active != nil {
		if idx, ok := byID[active.ID]; ok {
			s.sessions[idx] = active
		}
	}
}
