package tracker

import (
	"sort"
	"time"

	"github.com/pradumanrathod/studytracker/internal/models"
)

// MinValidSeconds is the threshold below which a session is noise:
// it stays in the raw list but is excluded from aggregates.
const MinValidSeconds = 60

func isValid(s models.Session) bool {
	return s.Duration >= MinValidSeconds
}

// startOfDay truncates t to midnight in loc. Bucketing always converts
// into the reference zone first: stored timestamps come back in UTC, and
// a UTC midnight and a local midnight are never the same instant.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// startOfWeek truncates t to the preceding Sunday's midnight in loc.
func startOfWeek(t time.Time, loc *time.Location) time.Time {
	day := startOfDay(t, loc)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return startOfDay(a, loc).Equal(startOfDay(b, loc))
}

func sameWeek(a, b time.Time, loc *time.Location) bool {
	return startOfWeek(a, loc).Equal(startOfWeek(b, loc))
}

func sameMonth(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ComputeStats derives UserStats from the session list and the current
// time. Pure: no side effects, no clock access. Calendar buckets use
// now's zone, whatever zone the session timestamps carry.
//
// Weekly and monthly totals intentionally include sub-minute sessions
// while every other aggregate excludes them; this mirrors the reference
// behavior and is pinned by tests rather than silently corrected.
func ComputeStats(sessions []models.Session, now time.Time) models.UserStats {
	loc := now.Location()

	valid := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if isValid(s) {
			valid = append(valid, s)
		}
	}

	var stats models.UserStats
	for _, s := range valid {
		stats.TotalFocusTime += s.Duration
		if sameDay(s.StartTime, now, loc) {
			stats.TodayFocusTime += s.Duration
		}
	}
	stats.TotalSessions = len(valid)
	if stats.TotalSessions > 0 {
		stats.AverageSessionLength = float64(stats.TotalFocusTime) / float64(stats.TotalSessions)
	}

	for _, s := range sessions {
		if sameWeek(s.StartTime, now, loc) {
			stats.ThisWeekFocusTime += s.Duration
		}
		if sameMonth(s.StartTime, now, loc) {
			stats.ThisMonthFocusTime += s.Duration
		}
	}

	stats.CurrentStreak = currentStreak(valid, now)
	stats.LongestStreak = longestStreak(valid, loc)

	return stats
}

// validDays returns the distinct calendar days (midnights in loc) on
// which a valid session started, sorted ascending.
func validDays(valid []models.Session, loc *time.Location) []time.Time {
	seen := make(map[time.Time]struct{}, len(valid))
	for _, s := range valid {
		seen[startOfDay(s.StartTime, loc)] = struct{}{}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// currentStreak counts consecutive calendar days walking backward from
// today, each with at least one valid session. Zero unless today itself
// qualifies.
func currentStreak(valid []models.Session, now time.Time) int {
	loc := now.Location()
	days := make(map[time.Time]struct{}, len(valid))
	for _, s := range valid {
		days[startOfDay(s.StartTime, loc)] = struct{}{}
	}

	streak := 0
	for day := startOfDay(now, loc); ; day = day.AddDate(0, 0, -1) {
		if _, ok := days[day]; !ok {
			break
		}
		streak++
	}
	return streak
}

// longestStreak finds the longest run of consecutive valid days. A single
// isolated day counts as 1; zero valid sessions yield 0.
func longestStreak(valid []models.Session, loc *time.Location) int {
	days := validDays(valid, loc)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}
