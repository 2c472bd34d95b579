package engine

import (
	"context"

	"pushstreak/core"
)

// Storage abstracts persistence for the single progress record.
//
// Load must return core.DefaultState() with a nil error when the record is
// absent or cannot be decoded; only genuine I/O failures are errors.
type Storage interface {
	Load(ctx context.Context) (core.ProgressState, error)
	Save(ctx context.Context, state core.ProgressState) error
}

// Locker is implemented by storages that can exclude other processes for the
// duration of a load-modify-save. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}
