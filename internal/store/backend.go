// Package store persists import sessions and field mappings.
//
// Each profile owns two keys: one holding the whole session collection as a
// JSON array, and one holding its field mapping. Every mutation loads the
// collection, modifies a copy, and writes the full collection back, so a
// failed write leaves the previous value intact.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Backend when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a byte-value key store. Put must replace the value atomically.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryBackend keeps values in process memory. Used by tests and by the
// CLI's dry-run mode.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
