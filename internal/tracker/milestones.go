package tracker

import "github.com/pradumanrathod/studytracker/internal/models"

// MilestoneType selects which stat a milestone threshold applies to.
type MilestoneType string

const (
	MilestoneTime     MilestoneType = "time"     // total focus seconds
	MilestoneStreak   MilestoneType = "streak"   // longest streak days
	MilestoneSessions MilestoneType = "sessions" // total valid sessions
)

// Milestone is an achievement threshold evaluated from UserStats.
type Milestone struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        MilestoneType `json:"type"`
	Threshold   int           `json:"threshold"`
	Achieved    bool          `json:"achieved"`
}

// DefaultMilestones mirrors the achievement ladder shown on the dashboard.
var DefaultMilestones = []Milestone{
	{ID: "first-session", Title: "First Focus", Description: "Complete your first study session", Type: MilestoneSessions, Threshold: 1},
	{ID: "ten-sessions", Title: "Regular", Description: "Complete 10 study sessions", Type: MilestoneSessions, Threshold: 10},
	{ID: "first-hour", Title: "Hour One", Description: "Accumulate one hour of focus time", Type: MilestoneTime, Threshold: 3600},
	{ID: "ten-hours", Title: "Deep Diver", Description: "Accumulate ten hours of focus time", Type: MilestoneTime, Threshold: 36000},
	{ID: "week-streak", Title: "Consistent", Description: "Study seven days in a row", Type: MilestoneStreak, Threshold: 7},
	{ID: "month-streak", Title: "Unstoppable", Description: "Study thirty days in a row", Type: MilestoneStreak, Threshold: 30},
}

// EvaluateMilestones marks which milestones the given stats satisfy.
func EvaluateMilestones(stats models.UserStats, milestones []Milestone) []Milestone {
	out := make([]Milestone, len(milestones))
	for i, m := range milestones {
		switch m.Type {
		case MilestoneTime:
			m.Achieved = stats.TotalFocusTime >= m.Threshold
		case MilestoneStreak:
			m.Achieved = stats.LongestStreak >= m.Threshold
		case MilestoneSessions:
			m.Achieved = stats.TotalSessions >= m.Threshold
		}
		out[i] = m
	}
	return out
}
