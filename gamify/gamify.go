package gamify

import (
	"context"
	"log/slog"
	"time"

	mem "pushstreak/adapters/memory"
	"pushstreak/core"
	"pushstreak/engine"
	"pushstreak/realtime"
)

// Option configures the tracker builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	mode    engine.DispatchMode
	hub     *realtime.Hub
	loc     *time.Location
	log     *slog.Logger
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all tracker events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithLocation sets the zone that decides calendar days.
func WithLocation(loc *time.Location) Option { return func(c *config) { c.loc = loc } }

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.log = l } }

// New builds a configured Tracker. If not provided, defaults are used:
//   - storage: in-memory
//   - dispatch: async
//   - location: time.Local
func New(opts ...Option) *engine.Tracker {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	tracker := engine.NewTracker(cfg.storage, bus,
		engine.WithLocation(cfg.loc),
		engine.WithLogger(cfg.log),
	)
	if cfg.hub != nil {
		forward := func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) }
		bus.Subscribe(core.EventProgressUpdated, forward)
		bus.Subscribe(core.EventLevelUp, forward)
	}
	return tracker
}
