package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"pushstreak/core"
)

const lockRetryDelay = 50 * time.Millisecond

// Store persists the progress record to a single JSON file.
// Writes go to a temporary file in the same directory and are renamed into
// place, so a crash never leaves a half-written record behind.
type Store struct {
	path     string
	lockPath string
	lock     *flock.Flock
	log      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLockPath overrides the advisory lock file (defaults to path + ".lock").
func WithLockPath(p string) Option {
	return func(s *Store) {
		if strings.TrimSpace(p) != "" {
			s.lockPath = p
		}
	}
}

// WithLogger overrides the logger used to report recovered records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("jsonfile: path cannot be empty")
	}
	s := &Store{path: filepath.Clean(path), log: slog.Default()}
	s.lockPath = s.path + ".lock"
	for _, opt := range opts {
		opt(s)
	}
	s.lock = flock.New(s.lockPath)
	return s, nil
}

// Path returns the record file location.
func (s *Store) Path() string { return s.path }

// Load reads the record. A missing or undecodable file yields the default record.
func (s *Store) Load(_ context.Context) (core.ProgressState, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.DefaultState(), nil
		}
		return core.ProgressState{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	st := core.DefaultState()
	if err := json.Unmarshal(b, &st); err != nil {
		s.log.Warn("progress record unreadable, starting from default", "path", s.path, "error", err)
		return core.DefaultState(), nil
	}
	return st, nil
}

// Save atomically replaces the record.
func (s *Store) Save(_ context.Context, state core.ProgressState) error {
	b, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename into %s: %w", s.path, err)
	}
	return nil
}

// Lock takes the advisory file lock, waiting until ctx is done.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", s.lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire %s: lock not obtained", s.lockPath)
	}
	return s.lock.Unlock, nil
}
