package models

import (
	"time"

	"github.com/google/uuid"
)

// TimerState is the global state of the session timer.
type TimerState string

const (
	StateIdle    TimerState = "idle"
	StateRunning TimerState = "running"
	StatePaused  TimerState = "paused"
)

// BreakReason classifies why a break was taken.
type BreakReason string

const (
	BreakAway        BreakReason = "away"
	BreakManual      BreakReason = "manual"
	BreakDistraction BreakReason = "distraction"
)

// Session represents a single study session. Duration counts active
// (non-paused) seconds only and is frozen once EndTime is set.
type Session struct {
	ID           string     `json:"id"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Duration     int        `json:"duration"`
	IsActive     bool       `json:"isActive"`
	FaceDetected bool       `json:"faceDetected"`
	Breaks       []Break    `json:"breaks"`
}

// Break is a pause interval within a session. EndTime is nil while the
// break is still open.
type Break struct {
	ID        string      `json:"id"`
	StartTime time.Time   `json:"startTime"`
	EndTime   *time.Time  `json:"endTime,omitempty"`
	Duration  int         `json:"duration"`
	Reason    BreakReason `json:"reason"`
}

// UserStats is derived from sessions, never independently mutated.
type UserStats struct {
	TotalFocusTime       int     `json:"totalFocusTime"`
	TotalSessions        int     `json:"totalSessions"`
	CurrentStreak        int     `json:"currentStreak"`
	LongestStreak        int     `json:"longestStreak"`
	AverageSessionLength float64 `json:"averageSessionLength"`
	TodayFocusTime       int     `json:"todayFocusTime"`
	ThisWeekFocusTime    int     `json:"thisWeekFocusTime"`
	ThisMonthFocusTime   int     `json:"thisMonthFocusTime"`
}

// NewSession creates a fresh active session starting now.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		StartTime:    now,
		Duration:     0,
		IsActive:     true,
		FaceDetected: true,
		Breaks:       []Break{},
	}
}

// NewBreak opens a break starting now.
func NewBreak(now time.Time, reason BreakReason) Break {
	return Break{
		ID:        uuid.NewString(),
		StartTime: now,
		Duration:  0,
		Reason:    reason,
	}
}

// IsEnded reports whether the session has been finalized.
func (s *Session) IsEnded() bool {
	return s.EndTime != nil
}

// Clone returns a deep copy, safe to hand to observers.
func (s *Session) Clone() Session {
	out := *s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	out.Breaks = make([]Break, len(s.Breaks))
	for i, b := range s.Breaks {
		out.Breaks[i] = b.Clone()
	}
	return out
}

// Clone returns a copy with its own EndTime pointer.
func (b Break) Clone() Break {
	out := b
	if b.EndTime != nil {
		t := *b.EndTime
		out.EndTime = &t
	}
	return out
}

// IsOpen reports whether the break has not been closed yet.
func (b Break) IsOpen() bool {
	return b.EndTime == nil
}

// CloneSessions deep-copies a session slice.
func CloneSessions(in []Session) []Session {
	out := make([]Session, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
