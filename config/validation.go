package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// CronParser accepts standard five-field specs and descriptors like @hourly.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

func oneOf(field, value string, allowed ...string) string {
	if slices.Contains(allowed, value) {
		return ""
	}
	return fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", "))
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, "read_timeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "write_timeout must be positive")
	}
	if s.IdleTimeout <= 0 {
		errs = append(errs, "idle_timeout must be positive")
	}
	if s.ReadHeaderTimeout <= 0 {
		errs = append(errs, "read_header_timeout must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout must be positive")
	}

	return joinErrs(errs)
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	var errs []string

	if msg := oneOf("adapter", s.Adapter, "file", "redis", "memory"); msg != "" {
		errs = append(errs, msg)
	}

	switch s.Adapter {
	case "file":
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case "redis":
		if err := s.Redis.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("redis config: %v", err))
		}
	}

	return joinErrs(errs)
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate checks retry settings. An empty URL is allowed; pushes then
// fail at notification time instead of at startup.
func (w *WebhookConfig) Validate() error {
	var errs []string

	if w.MaxAttempts < 1 {
		errs = append(errs, "max_attempts must be at least 1")
	}
	if w.BaseDelay < 0 {
		errs = append(errs, "base_delay cannot be negative")
	}
	if w.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if u := strings.TrimSpace(w.URL); u != "" &&
		!strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		errs = append(errs, "url must start with http:// or https://")
	}

	return joinErrs(errs)
}

// Validate validates tracker configuration
func (t *TrackerConfig) Validate() error {
	if _, err := Location(t.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", t.Timezone)
	}
	return nil
}

// Validate checks the cron specs only when scheduling is on.
func (s *ScheduleConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	var errs []string

	if _, err := Location(s.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("unknown timezone %q", s.Timezone))
	}
	for name, spec := range map[string]string{"hourly": s.Hourly, "daily": s.Daily} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		if _, err := CronParser.Parse(spec); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid cron spec %q", name, spec))
		}
	}
	if strings.TrimSpace(s.Hourly) == "" && strings.TrimSpace(s.Daily) == "" {
		errs = append(errs, "at least one of hourly or daily must be set when enabled")
	}

	slices.Sort(errs)
	return joinErrs(errs)
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string

	if msg := oneOf("level", l.Level, "debug", "info", "warn", "error"); msg != "" {
		errs = append(errs, msg)
	}
	if msg := oneOf("format", l.Format, "json", "text"); msg != "" {
		errs = append(errs, msg)
	}
	if msg := oneOf("output", l.Output, "stdout", "stderr"); msg != "" {
		errs = append(errs, msg)
	}

	return joinErrs(errs)
}

// Validate validates security configuration
func (s *SecurityConfig) Validate() error {
	if !s.EnableRateLimit {
		return nil
	}
	var errs []string
	if s.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "rate_limit.requests_per_minute must be positive")
	}
	if s.RateLimit.BurstSize <= 0 {
		errs = append(errs, "rate_limit.burst_size must be positive")
	}
	return joinErrs(errs)
}
