package memory

import (
	"context"
	"sync"

	"pushstreak/core"
)

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	mu    sync.Mutex
	state core.ProgressState
	saved bool
	saves int
}

func New() *Store { return &Store{} }

// NewWithState seeds the store as if state had already been saved.
func NewWithState(state core.ProgressState) *Store {
	return &Store{state: state, saved: true}
}

func (s *Store) Load(_ context.Context) (core.ProgressState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return core.DefaultState(), nil
	}
	return s.state, nil
}

func (s *Store) Save(_ context.Context, state core.ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.saved = true
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var _ interface {
	Load(context.Context) (core.ProgressState, error)
	Save(context.Context, core.ProgressState) error
} = (*Store)(nil)
