package store

import (
	"context"
	"sync"
)

// DefaultSlot is the name under which the record snapshot is persisted.
const DefaultSlot = "conversation-history"

// Backend persists one slot: an opaque blob holding the encoded snapshot.
// Load returns nil, nil when the slot has never been written.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
	Close() error
}

// MemoryBackend keeps the slot in memory. Used for tests and ephemeral runs.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBackend returns an empty in-memory slot.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
