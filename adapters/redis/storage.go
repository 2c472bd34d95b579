package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pushstreak/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"PUSHSTREAK_REDIS_ADDR"`
	Password     string        `json:"password" env:"PUSHSTREAK_REDIS_PASSWORD"`
	DB           int           `json:"db" env:"PUSHSTREAK_REDIS_DB"`
	Key          string        `json:"key" env:"PUSHSTREAK_REDIS_KEY"`
	PoolSize     int           `json:"pool_size" env:"PUSHSTREAK_REDIS_POOL_SIZE"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"PUSHSTREAK_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"PUSHSTREAK_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"PUSHSTREAK_REDIS_WRITE_TIMEOUT"`
	LockTTL      time.Duration `json:"lock_ttl" env:"PUSHSTREAK_REDIS_LOCK_TTL"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		Key:          "pushstreak:progress",
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		LockTTL:      10 * time.Second,
	}
}

// Validate checks the fields the store cannot run without.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if c.Key == "" {
		return errors.New("key cannot be empty")
	}
	if c.LockTTL <= 0 {
		return errors.New("lock_ttl must be positive")
	}
	return nil
}

const lockPollInterval = 25 * time.Millisecond

// Store keeps the progress record as one JSON value.
// Keys:
//   - {key}      -> JSON record
//   - {key}:lock -> owner token while an update is in flight
type Store struct {
	client  *redis.Client
	key     string
	lockTTL time.Duration
	log     *slog.Logger
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, key: config.Key, lockTTL: config.LockTTL, log: slog.Default()}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultConfig().Key
	}
	return &Store{client: client, key: key, lockTTL: DefaultConfig().LockTTL, log: slog.Default()}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) lockKey() string { return s.key + ":lock" }

// Load fetches the record; an absent or undecodable value yields the default.
func (s *Store) Load(ctx context.Context) (core.ProgressState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.DefaultState(), nil
		}
		return core.ProgressState{}, fmt.Errorf("failed to get progress: %w", err)
	}
	st := core.DefaultState()
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("progress record unreadable, starting from default", "key", s.key, "error", err)
		return core.DefaultState(), nil
	}
	return st, nil
}

// Save overwrites the record.
func (s *Store) Save(ctx context.Context, state core.ProgressState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Lua script releasing the lock only if we still own it
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Lock acquires {key}:lock with SET NX and a TTL, polling until ctx is done.
// The TTL bounds how long a crashed holder can block other writers.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := s.client.SetNX(ctx, s.lockKey(), token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			return func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				return releaseLockScript.Run(ctx, s.client, []string{s.lockKey()}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
