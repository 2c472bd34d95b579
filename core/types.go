package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// LevelThreshold is the experience needed per level: level N requires N*LevelThreshold.
	LevelThreshold = 30
	// ExperiencePerEvent is granted for every qualifying push, same-day pushes included.
	ExperiencePerEvent = 10
	// DateLayout is the calendar-date encoding used by the persisted record.
	DateLayout = "2006-01-02"
)

// ProgressState is the single persisted gamification record.
// JSON field names match the on-disk format and must not change.
type ProgressState struct {
	LastPushDate string `json:"last_push_date"`
	Streak       int    `json:"streak"`
	Level        int    `json:"level"`
	Experience   int    `json:"exp"`
}

// DefaultState is substituted whenever no usable record exists.
func DefaultState() ProgressState {
	return ProgressState{LastPushDate: "", Streak: 0, Level: 1, Experience: 0}
}

// Required returns the experience needed to leave the current level.
func (s ProgressState) Required() int {
	return s.Level * LevelThreshold
}

// Normalize clamps out-of-range counters so a hand-edited record cannot
// break the level/experience invariants.
func (s ProgressState) Normalize() ProgressState {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.Streak < 0 {
		s.Streak = 0
	}
	if s.Experience < 0 {
		s.Experience = 0
	}
	s.LastPushDate = strings.TrimSpace(s.LastPushDate)
	return s
}

// Validate reports whether the record satisfies the post-update invariants.
func (s ProgressState) Validate() error {
	var errs []string
	if s.Streak < 0 {
		errs = append(errs, "streak must be >= 0")
	}
	if s.Level < 1 {
		errs = append(errs, "level must be >= 1")
	}
	if s.Experience < 0 || s.Experience >= s.Required() {
		errs = append(errs, "exp must be in [0, level*30)")
	}
	if s.LastPushDate != "" {
		if _, ok := ParseDate(s.LastPushDate); !ok {
			errs = append(errs, "last_push_date must be YYYY-MM-DD")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Day truncates t to its calendar date in t's own location.
// The result is midnight UTC so dates compare with Equal regardless of zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string. Empty or malformed input yields ok=false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
