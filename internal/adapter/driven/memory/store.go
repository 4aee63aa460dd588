// Package memory provides an in-process SecureStorage used by tests and dry
// runs. Nothing survives the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecureStorage = (*Store)(nil)

// Store keeps blobs in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string][]byte)}
}

// Save stores a copy of data under id.
func (s *Store) Save(_ context.Context, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the bytes stored under id.
func (s *Store) Load(_ context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("load: %w", model.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes id.
func (s *Store) Delete(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("delete: %w", model.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
