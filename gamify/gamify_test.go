package gamify

import (
	"context"
	"testing"
	"time"

	mem "pushstreak/adapters/memory"
	"pushstreak/core"
	"pushstreak/engine"
	"pushstreak/realtime"
)

func TestNewForwardsEventsToHub(t *testing.T) {
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(4)
	store := mem.NewWithState(core.ProgressState{LastPushDate: "2025-01-29", Streak: 3, Level: 1, Experience: 25})
	tracker := New(
		WithRealtime(hub),
		WithStorage(store),
		WithDispatchMode(engine.DispatchSync),
		WithLocation(time.UTC),
	)

	_, up, err := tracker.Update(context.Background(), time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC))
	if err != nil || !up {
		t.Fatalf("update levelUp=%v err=%v", up, err)
	}

	first, second := <-ch, <-ch
	if first.Type != core.EventProgressUpdated || second.Type != core.EventLevelUp {
		t.Fatalf("unexpected events: %s, %s", first.Type, second.Type)
	}
	if second.State.Level != 2 {
		t.Fatalf("unexpected level: %d", second.State.Level)
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	tracker := New(WithDispatchMode(engine.DispatchSync))
	st, _, err := tracker.Update(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := tracker.State(context.Background())
	if err != nil || got != st {
		t.Fatalf("state %+v err=%v", got, err)
	}
}
