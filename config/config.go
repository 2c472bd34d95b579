package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pushstreak/adapters/redis"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"PUSHSTREAK_ENV"`
	Profile     string      `json:"profile" env:"PUSHSTREAK_PROFILE"`

	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Webhook  WebhookConfig  `json:"webhook"`
	Tracker  TrackerConfig  `json:"tracker"`
	Schedule ScheduleConfig `json:"schedule"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"PUSHSTREAK_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"PUSHSTREAK_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"PUSHSTREAK_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"PUSHSTREAK_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"PUSHSTREAK_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"PUSHSTREAK_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"PUSHSTREAK_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"PUSHSTREAK_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects where the progress record lives
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"PUSHSTREAK_STORAGE_ADAPTER"`
	File    FileConfig   `json:"file,omitempty"`
	Redis   redis.Config `json:"redis,omitempty"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path     string `json:"path" env:"PUSHSTREAK_STORAGE_FILE_PATH"`
	LockPath string `json:"lock_path" env:"PUSHSTREAK_STORAGE_FILE_LOCK_PATH"`
}

// WebhookConfig configures the outgoing chat webhook
type WebhookConfig struct {
	URL                   string        `json:"url" env:"PUSHSTREAK_WEBHOOK_URL"`
	Username              string        `json:"username" env:"PUSHSTREAK_WEBHOOK_USERNAME"`
	MaxAttempts           int           `json:"max_attempts" env:"PUSHSTREAK_WEBHOOK_MAX_ATTEMPTS"`
	BaseDelay             time.Duration `json:"base_delay" env:"PUSHSTREAK_WEBHOOK_BASE_DELAY"`
	Timeout               time.Duration `json:"timeout" env:"PUSHSTREAK_WEBHOOK_TIMEOUT"`
	FailFastOnClientError bool          `json:"fail_fast_client_errors" env:"PUSHSTREAK_WEBHOOK_FAIL_FAST"`
}

// Configured reports whether an outgoing URL is present.
func (w WebhookConfig) Configured() bool { return strings.TrimSpace(w.URL) != "" }

// TrackerConfig holds progress tracker settings
type TrackerConfig struct {
	// Timezone decides which calendar day a push belongs to. Empty means local time.
	Timezone string `json:"timezone" env:"PUSHSTREAK_TRACKER_TIMEZONE"`
}

// ScheduleConfig holds the periodic notification jobs
type ScheduleConfig struct {
	Enabled  bool   `json:"enabled" env:"PUSHSTREAK_SCHEDULE_ENABLED"`
	Timezone string `json:"timezone" env:"PUSHSTREAK_SCHEDULE_TIMEZONE"`
	Hourly   string `json:"hourly" env:"PUSHSTREAK_SCHEDULE_HOURLY"`
	Daily    string `json:"daily" env:"PUSHSTREAK_SCHEDULE_DAILY"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"PUSHSTREAK_LOG_LEVEL"`
	Format     string            `json:"format" env:"PUSHSTREAK_LOG_FORMAT"`
	Output     string            `json:"output" env:"PUSHSTREAK_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"PUSHSTREAK_LOG_ATTRIBUTES"`
}

// SecurityConfig holds inbound request limits
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"PUSHSTREAK_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" env:"PUSHSTREAK_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" env:"PUSHSTREAK_SECURITY_RATE_LIMIT_BURST"`
}

// Load builds the configuration from defaults and PUSHSTREAK_* variables.
func Load() (*Config, error) {
	return finish(DefaultConfig())
}

// LoadFromFile reads a JSON file over the defaults; environment variables
// still take precedence over file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return finish(cfg)
}

// finish applies the environment and validates the result.
func finish(cfg *Config) (*Config, error) {
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func validateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config file path cannot be empty")
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return fmt.Errorf("config file must be .json, got %q", ext)
	}
	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}
	if info.IsDir() {
		return errors.New("config file path is a directory")
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8000",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "file",
			File: FileConfig{
				Path: "data.json",
			},
			Redis: redis.DefaultConfig(),
		},
		Webhook: WebhookConfig{
			Username:    "StreakBot",
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Timeout:     10 * time.Second,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Hourly:  "0 * * * *",
			Daily:   "0 9 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Webhook.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhook config: %v", err))
	}

	if err := c.Tracker.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("tracker config: %v", err))
	}

	if err := c.Schedule.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("schedule config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Webhook.URL != "" {
		cfg.Webhook.URL = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}

// Location resolves an IANA zone name; empty means time.Local.
func Location(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
