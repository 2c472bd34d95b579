package core

import "time"

// NextStreak applies the consecutive-day rule.
// Same day keeps the streak, the day after extends it, anything else restarts at 1.
func NextStreak(lastPushDate string, streak int, today time.Time) int {
	last, ok := ParseDate(lastPushDate)
	day := Day(today)
	switch {
	case ok && last.Equal(day):
		return streak
	case ok && last.Equal(day.AddDate(0, 0, -1)):
		return streak + 1
	default:
		return 1
	}
}

// ApplyLevelUp evaluates a single level-up. Experience above the threshold is
// discarded rather than carried into the next level.
func ApplyLevelUp(s ProgressState) (ProgressState, bool) {
	if s.Experience >= s.Required() {
		s.Level++
		s.Experience = 0
		return s, true
	}
	return s, false
}
