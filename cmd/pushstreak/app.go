package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"pushstreak/adapters/jsonfile"
	mem "pushstreak/adapters/memory"
	redisAdapter "pushstreak/adapters/redis"
	"pushstreak/api/httpapi"
	"pushstreak/config"
	"pushstreak/engine"
	"pushstreak/gamify"
	"pushstreak/integrations/webhook"
	"pushstreak/realtime"
	"pushstreak/scheduler"
)

// App aggregates the assembled server components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Hub        *realtime.Hub
	Tracker    *engine.Tracker
	Dispatcher *webhook.Dispatcher
	Scheduler  *scheduler.Service
	Handler    http.Handler
	Server     *http.Server
}

// Run serves HTTP and the schedules until ctx is done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.Server.Address, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "address", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.Logger.Info("shutting down server", "timeout", a.Config.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.Scheduler != nil {
		a.Scheduler.Stop(shutdownCtx)
	}
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.Logger.Info("server stopped")
	return serveErr
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

// provideStorage opens the configured state store. The cleanup closes
// network connections.
func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), func() {}, nil
	case "file":
		store, err := jsonfile.New(cfg.Storage.File.Path,
			jsonfile.WithLockPath(cfg.Storage.File.LockPath),
			jsonfile.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "redis":
		store, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing redis", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

func provideTracker(cfg *config.Config, storage engine.Storage, hub *realtime.Hub, logger *slog.Logger) (*engine.Tracker, func(), error) {
	loc, err := config.Location(cfg.Tracker.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("tracker timezone: %w", err)
	}
	opts := []gamify.Option{
		gamify.WithStorage(storage),
		gamify.WithDispatchMode(engine.DispatchAsync),
		gamify.WithLocation(loc),
		gamify.WithLogger(logger),
	}
	if hub != nil {
		opts = append(opts, gamify.WithRealtime(hub))
	}
	tracker := gamify.New(opts...)
	return tracker, tracker.Close, nil
}

// provideDispatcher returns nil without error when no webhook URL is set.
func provideDispatcher(cfg *config.Config, logger *slog.Logger) (*webhook.Dispatcher, error) {
	wc := cfg.Webhook
	d, err := webhook.New(wc.URL,
		webhook.WithClient(&http.Client{Timeout: wc.Timeout}),
		webhook.WithLogger(logger),
		webhook.WithDefaultUsername(wc.Username),
		webhook.WithRetryPolicy(webhook.RetryPolicy{MaxAttempts: wc.MaxAttempts, BaseDelay: wc.BaseDelay}),
		webhook.WithFailFastOnClientError(wc.FailFastOnClientError),
	)
	if errors.Is(err, webhook.ErrNotConfigured) {
		logger.Warn("webhook URL is not set; push notifications will fail")
		return nil, nil
	}
	return d, err
}

// provideScheduler returns nil when scheduling is disabled or there is
// nowhere to send to.
func provideScheduler(cfg *config.Config, d *webhook.Dispatcher, tracker *engine.Tracker, logger *slog.Logger) (*scheduler.Service, error) {
	sc := cfg.Schedule
	if !sc.Enabled {
		return nil, nil
	}
	if d == nil {
		logger.Warn("schedule enabled without a webhook URL; scheduled notifications are off")
		return nil, nil
	}
	loc, err := config.Location(sc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	return scheduler.New(scheduler.Config{Location: loc, Hourly: sc.Hourly, Daily: sc.Daily}, d,
		scheduler.WithLogger(logger),
		scheduler.WithState(tracker.State))
}

func provideHandler(cfg *config.Config, tracker *engine.Tracker, d *webhook.Dispatcher, hub *realtime.Hub, logger *slog.Logger) http.Handler {
	var notifier httpapi.Notifier
	if d != nil {
		notifier = d
	}
	return httpapi.NewMux(tracker, notifier, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		Username:         cfg.Webhook.Username,
		NotifyTimeout:    notifyBudget(cfg.Server.WriteTimeout),
		Logger:           logger,
	})
}

// notifyBudget leaves headroom under the write timeout for the tracker
// update and the response itself.
func notifyBudget(writeTimeout time.Duration) time.Duration {
	const headroom = 2 * time.Second
	if writeTimeout <= 2*headroom {
		return writeTimeout / 2
	}
	return writeTimeout - headroom
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// commandLogger keeps one-shot command logs off stdout, which carries results.
func commandLogger(cfg *config.Config) *slog.Logger {
	c := *cfg
	c.Logging.Output = "stderr"
	return setupLogging(&c)
}
