// Package scheduler posts periodic status messages through the webhook
// dispatcher on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pushstreak/core"
	"pushstreak/integrations/webhook"
)

// Notifier delivers one chat message. *webhook.Dispatcher satisfies it.
type Notifier interface {
	Send(ctx context.Context, req webhook.Request) bool
}

// StateFunc returns the current progress record for the daily report.
type StateFunc func(ctx context.Context) (core.ProgressState, error)

// Config selects which jobs run and when. An empty spec disables that job.
type Config struct {
	Location *time.Location
	Hourly   string
	Daily    string
	// JobTimeout bounds each job run, retries included.
	JobTimeout time.Duration
}

const defaultJobTimeout = 2 * time.Minute

// Usernames the messages are posted as.
const (
	HourlyUsername = "HourlyNotifier"
	DailyUsername  = "DailyReport"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Service struct {
	mu sync.Mutex

	log      *slog.Logger
	cfg      Config
	notifier Notifier
	state    StateFunc
	now      func() time.Time

	c *cron.Cron
}

type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithState includes the progress record in the daily report.
func WithState(fn StateFunc) Option {
	return func(s *Service) { s.state = fn }
}

func New(cfg Config, notifier Notifier, opts ...Option) (*Service, error) {
	if notifier == nil {
		return nil, errors.New("scheduler: notifier is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	s := &Service{
		log:      slog.Default(),
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "scheduler")

	s.c = cron.New(cron.WithParser(parser), cron.WithLocation(cfg.Location))
	if err := s.add("hourly", cfg.Hourly, s.Hourly); err != nil {
		return nil, err
	}
	if err := s.add("daily", cfg.Daily, s.Daily); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) add(name, spec string, job func(context.Context) bool) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	_, err := s.c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		start := time.Now()
		ok := job(ctx)
		s.log.Info("scheduled notification finished",
			slog.String("job", name),
			slog.Bool("success", ok),
			slog.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("scheduler: %s spec %q: %w", name, spec, err)
	}
	return nil
}

// Jobs reports how many schedules are registered.
func (s *Service) Jobs() int { return len(s.c.Entries()) }

// Start runs the cron loop in the background.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Start()
	s.log.Info("scheduler started", slog.Int("jobs", s.Jobs()), slog.String("tz", s.cfg.Location.String()))
}

// Stop halts the loop and waits for running jobs, or until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", "error", ctx.Err())
	}
	s.log.Info("scheduler stopped")
}

// Hourly posts the "system running" status line.
func (s *Service) Hourly(ctx context.Context) bool {
	now := s.now().In(s.cfg.Location)
	msg := fmt.Sprintf("Hourly status: system is running 🕐\nTime: %s", now.Format(time.DateTime))
	return s.send(ctx, "hourly", webhook.Request{Content: msg, Username: HourlyUsername})
}

// Daily posts the daily report, with the progress record when available.
func (s *Service) Daily(ctx context.Context) bool {
	now := s.now().In(s.cfg.Location)
	msg := fmt.Sprintf("📊 Daily report %s\n\nSystem is running normally.", now.Format(time.DateOnly))
	req := webhook.Request{Content: msg, Username: DailyUsername}

	if s.state != nil {
		st, err := s.state(ctx)
		if err != nil {
			s.log.Warn("daily report without progress", "error", err)
		} else {
			req.Embeds = []webhook.Embed{webhook.InfoEmbed("Progress", "", []webhook.EmbedField{
				{Name: "Streak", Value: fmt.Sprintf("%d days", st.Streak), Inline: true},
				{Name: "Level", Value: fmt.Sprintf("%d", st.Level), Inline: true},
				{Name: "EXP", Value: fmt.Sprintf("%d / %d", st.Experience, st.Required()), Inline: true},
				{Name: "Last push", Value: orDash(st.LastPushDate), Inline: true},
			}...)}
		}
	}
	return s.send(ctx, "daily", req)
}

func (s *Service) send(ctx context.Context, job string, req webhook.Request) bool {
	ok := s.notifier.Send(ctx, req)
	if !ok {
		s.log.Error("scheduled notification failed", slog.String("job", job))
	}
	return ok
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
