// Package remote implements the cloud-side replica of sessions and stats.
// It is never authoritative over the in-flight active session; the merge
// operation in the tracker is the sole arbiter of conflicts.
package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/models"
)

// Store is the remote persistence contract, keyed by user id.
type Store interface {
	GetUserStats(ctx context.Context, uid string) (models.UserStats, error)
	SetUserStats(ctx context.Context, uid string, stats models.UserStats) error
	ListUserSessions(ctx context.Context, uid string) ([]models.Session, error)
	UpsertUserSession(ctx context.Context, uid string, session models.Session) error
}

// PostgresStore keeps one stats row per user and one row per session with
// the ISO-8601 session document in a jsonb column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	selectStatsQuery = `SELECT total_focus_time, total_sessions, current_streak, longest_streak,
		average_session_length, today_focus_time, week_focus_time, month_focus_time
		FROM user_stats WHERE user_id = $1`

	upsertStatsQuery = `INSERT INTO user_stats (user_id, total_focus_time, total_sessions,
		current_streak, longest_streak, average_session_length, today_focus_time,
		week_focus_time, month_focus_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
		total_focus_time = EXCLUDED.total_focus_time,
		total_sessions = EXCLUDED.total_sessions,
		current_streak = EXCLUDED.current_streak,
		longest_streak = EXCLUDED.longest_streak,
		average_session_length = EXCLUDED.average_session_length,
		today_focus_time = EXCLUDED.today_focus_time,
		week_focus_time = EXCLUDED.week_focus_time,
		month_focus_time = EXCLUDED.month_focus_time,
		updated_at = EXCLUDED.updated_at`

	listSessionsQuery = `SELECT doc FROM user_sessions WHERE user_id = $1 ORDER BY start_time ASC`

	upsertSessionQuery = `INSERT INTO user_sessions (user_id, session_id, start_time, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
		start_time = EXCLUDED.start_time,
		doc = EXCLUDED.doc`
)

// GetUserStats returns the stored stats, or the zero-value stats when no
// row exists yet (first read initializes nothing server-side; the next
// push writes the row).
func (s *PostgresStore) GetUserStats(ctx context.Context, uid string) (models.UserStats, error) {
	var stats models.UserStats
	err := s.db.QueryRowContext(ctx, selectStatsQuery, uid).Scan(
		&stats.TotalFocusTime,
		&stats.TotalSessions,
		&stats.CurrentStreak,
		&stats.LongestStreak,
		&stats.AverageSessionLength,
		&stats.TodayFocusTime,
		&stats.ThisWeekFocusTime,
		&stats.ThisMonthFocusTime,
	)
	if err == sql.ErrNoRows {
		return models.UserStats{}, nil
	}
	if err != nil {
		return models.UserStats{}, errors.NewRemoteSyncFailedError("getUserStats", err)
	}
	return stats, nil
}

func (s *PostgresStore) SetUserStats(ctx context.Context, uid string, stats models.UserStats) error {
	_, err := s.db.ExecContext(ctx, upsertStatsQuery,
		uid,
		stats.TotalFocusTime,
		stats.TotalSessions,
		stats.CurrentStreak,
		stats.LongestStreak,
		stats.AverageSessionLength,
		stats.TodayFocusTime,
		stats.ThisWeekFocusTime,
		stats.ThisMonthFocusTime,
		time.Now().UTC(),
	)
	if err != nil {
		return errors.NewRemoteSyncFailedError("setUserStats", err)
	}
	return nil
}

// ListUserSessions fetches all sessions for a user, oldest first.
// Rows whose document fails to decode are skipped, not fatal.
func (s *PostgresStore) ListUserSessions(ctx context.Context, uid string) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, listSessionsQuery, uid)
	if err != nil {
		return nil, errors.NewRemoteSyncFailedError("listUserSessions", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.NewRemoteSyncFailedError("listUserSessions", err)
		}
		var doc models.SessionDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		sess, err := models.DecodeSession(doc)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRemoteSyncFailedError("listUserSessions", err)
	}
	return sessions, nil
}

func (s *PostgresStore) UpsertUserSession(ctx context.Context, uid string, session models.Session) error {
	doc := models.EncodeSession(session)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal session doc: %w", err)
	}

	_, err = s.db.ExecContext(ctx, upsertSessionQuery, uid, session.ID, session.StartTime.UTC(), raw)
	if err != nil {
		return errors.NewRemoteSyncFailedError("upsertUserSession", err)
	}
	return nil
}
