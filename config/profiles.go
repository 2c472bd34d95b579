package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the defaults for a named profile with environment
// overrides applied.
func LoadProfile(name string) (*Config, error) {
	var cfg *Config
	switch name {
	case "development", "dev":
		cfg = developmentProfile()
	case "testing", "test":
		cfg = testingProfile()
	case "production", "prod":
		cfg = productionProfile()
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	return finish(cfg)
}

func developmentProfile() *Config {
	cfg := DefaultConfig()
	cfg.Profile = "development"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "text"
	return cfg
}

// testingProfile keeps state in memory and shortens every wait.
func testingProfile() *Config {
	cfg := DefaultConfig()
	cfg.Environment = EnvTesting
	cfg.Profile = "testing"
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Storage.Adapter = "memory"
	cfg.Webhook.BaseDelay = 10 * time.Millisecond
	cfg.Webhook.Timeout = 2 * time.Second
	cfg.Logging.Level = "warn"
	return cfg
}

func productionProfile() *Config {
	cfg := DefaultConfig()
	cfg.Environment = EnvProduction
	cfg.Profile = "production"
	cfg.Schedule.Enabled = true
	cfg.Security.EnableRateLimit = true
	return cfg
}
