package core

import "time"

// Advance computes the state after one qualifying event on now's calendar day.
// It is pure: callers are responsible for loading and persisting the record.
func Advance(s ProgressState, now time.Time) (ProgressState, bool) {
	s = s.Normalize()
	s.Streak = NextStreak(s.LastPushDate, s.Streak, now)
	s.LastPushDate = FormatDate(now)
	s.Experience += ExperiencePerEvent
	return ApplyLevelUp(s)
}
