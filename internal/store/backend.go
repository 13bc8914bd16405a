// Package store persists the bounded list of conversations to a single durable key-value slot.
package store

import (
	"context"
	"sync"
)

// Backend is a durable key-value slot store
type Backend interface {
	// Read returns the value stored at key, or nil if there is nothing stored at that key
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the value stored at key
	Write(ctx context.Context, key string, value []byte) error
}

// MemoryBackend implements Backend in process memory. ReadErr and WriteErr, when set, are returned by every call.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string][]byte
	writes int

	ReadErr  error
	WriteErr error
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: map[string][]byte{}}
}

func (mb *MemoryBackend) Read(_ context.Context, key string) ([]byte, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.ReadErr != nil {
		return nil, mb.ReadErr
	}
	v, ok := mb.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (mb *MemoryBackend) Write(_ context.Context, key string, value []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.WriteErr != nil {
		return mb.WriteErr
	}
	mb.values[key] = append([]byte(nil), value...)
	mb.writes++
	return nil
}

// Writes returns the number of successful writes
func (mb *MemoryBackend) Writes() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.writes
}
