package core

import (
	"testing"
	"time"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, ok := ParseDate(s)
	if !ok {
		t.Fatalf("bad date %q", s)
	}
	return d
}

func TestAdvanceFromEmptyState(t *testing.T) {
	got, up := Advance(DefaultState(), date(t, "2025-01-29"))
	want := ProgressState{LastPushDate: "2025-01-29", Streak: 1, Level: 1, Experience: 10}
	if got != want || up {
		t.Fatalf("got %+v levelUp=%v", got, up)
	}
}

func TestAdvanceNextDayLevelsUp(t *testing.T) {
	st := ProgressState{LastPushDate: "2025-01-29", Streak: 3, Level: 1, Experience: 25}
	got, up := Advance(st, date(t, "2025-01-30"))
	want := ProgressState{LastPushDate: "2025-01-30", Streak: 4, Level: 2, Experience: 0}
	if got != want || !up {
		t.Fatalf("got %+v levelUp=%v", got, up)
	}
}

func TestAdvanceSameDayKeepsStreak(t *testing.T) {
	st := ProgressState{LastPushDate: "2025-01-29", Streak: 1, Level: 1, Experience: 0}
	now := date(t, "2025-01-29")
	st, _ = Advance(st, now)
	st, _ = Advance(st, now)
	if st.Streak != 1 || st.Experience != 20 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestAdvanceSameDayCanLevelUp(t *testing.T) {
	st := ProgressState{LastPushDate: "2025-01-29", Streak: 2, Level: 1, Experience: 20}
	got, up := Advance(st, date(t, "2025-01-29"))
	if !up || got.Level != 2 || got.Experience != 0 || got.Streak != 2 {
		t.Fatalf("got %+v levelUp=%v", got, up)
	}
}

func TestAdvanceGapResetsStreak(t *testing.T) {
	st := ProgressState{LastPushDate: "2025-01-20", Streak: 9, Level: 3, Experience: 40}
	got, _ := Advance(st, date(t, "2025-01-29"))
	if got.Streak != 1 {
		t.Fatalf("expected streak reset, got %d", got.Streak)
	}
}

func TestAdvanceConsecutiveDaysCountRun(t *testing.T) {
	st := DefaultState()
	start := date(t, "2024-12-28")
	for i := 0; i < 12; i++ {
		st, _ = Advance(st, start.AddDate(0, 0, i))
		if st.Streak != i+1 {
			t.Fatalf("day %d: streak %d", i, st.Streak)
		}
		if err := st.Validate(); err != nil {
			t.Fatalf("day %d: %v", i, err)
		}
	}
}

func TestAdvanceKeepsExperienceBelowThreshold(t *testing.T) {
	st := DefaultState()
	now := date(t, "2025-03-01")
	for i := 0; i < 200; i++ {
		st, _ = Advance(st, now.AddDate(0, 0, i%3*2))
		if st.Experience < 0 || st.Experience >= st.Level*LevelThreshold {
			t.Fatalf("iteration %d broke invariant: %+v", i, st)
		}
	}
}

func TestAdvanceMalformedDateRestartsStreak(t *testing.T) {
	st := ProgressState{LastPushDate: "yesterday", Streak: 5, Level: 0, Experience: -4}
	got, _ := Advance(st, date(t, "2025-01-29"))
	if got.Streak != 1 || got.Level != 1 || got.Experience != 10 {
		t.Fatalf("got %+v", got)
	}
}

func TestDayIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	late := time.Date(2025, 1, 29, 23, 59, 0, 0, loc)
	if FormatDate(late) != "2025-01-29" {
		t.Fatalf("got %s", FormatDate(late))
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultState().Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	bad := ProgressState{Level: 1, Experience: 30}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected exp bound error")
	}
}
