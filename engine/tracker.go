package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pushstreak/core"
)

// Tracker owns the load-modify-save cycle of the progress record.
// Updates are serialised in-process, and across processes when the storage
// implements Locker.
type Tracker struct {
	storage Storage
	bus     *EventBus
	loc     *time.Location
	log     *slog.Logger
	mu      sync.Mutex
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLocation sets the zone used to decide which calendar day "now" falls on.
func WithLocation(loc *time.Location) TrackerOption {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithLogger overrides the logger (defaults to slog.Default()).
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

func NewTracker(storage Storage, bus *EventBus, opts ...TrackerOption) *Tracker {
	if storage == nil || bus == nil {
		panic("NewTracker requires non-nil storage and bus")
	}
	t := &Tracker{storage: storage, bus: bus, loc: time.Local, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update records one qualifying event at now and returns the persisted state.
func (t *Tracker) Update(ctx context.Context, now time.Time) (state core.ProgressState, levelUp bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.storage.(Locker); ok {
		unlock, lerr := l.Lock(ctx)
		if lerr != nil {
			return core.ProgressState{}, false, fmt.Errorf("lock progress record: %w", lerr)
		}
		defer func() {
			if uerr := unlock(); uerr != nil {
				err = errors.Join(err, fmt.Errorf("unlock progress record: %w", uerr))
			}
		}()
	}

	current, err := t.storage.Load(ctx)
	if err != nil {
		return core.ProgressState{}, false, fmt.Errorf("load progress: %w", err)
	}
	next, levelUp := core.Advance(current, now.In(t.loc))
	if err := t.storage.Save(ctx, next); err != nil {
		return core.ProgressState{}, false, fmt.Errorf("save progress: %w", err)
	}

	t.log.Info("progress updated",
		"date", next.LastPushDate,
		"streak", next.Streak,
		"level", next.Level,
		"exp", next.Experience,
		"level_up", levelUp)

	t.bus.Publish(ctx, core.NewProgressUpdated(next, levelUp))
	if levelUp {
		t.bus.Publish(ctx, core.NewLevelUp(next))
	}
	return next, levelUp, nil
}

// State returns the current record without modifying it.
func (t *Tracker) State(ctx context.Context) (core.ProgressState, error) {
	return t.storage.Load(ctx)
}

// Subscribe convenience method.
func (t *Tracker) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return t.bus.Subscribe(typ, handler)
}

func (t *Tracker) Close() { t.bus.Close() }
