// Package storage provides the cart snapshot persisters: in-process memory,
// JSON files, redis and SQL.
package storage

import (
	"context"
	"sync"

	"github.com/phenomboxing/storefront/internal/cart"
)

// Memory keeps encoded snapshots of every session in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// For returns the persister of one session.
func (m *Memory) For(sessionID string) cart.Persister {
	return &memorySession{parent: m, sessionID: sessionID}
}

// Factory adapts Memory to a cart.PersisterFactory.
func (m *Memory) Factory() cart.PersisterFactory {
	return m.For
}

type memorySession struct {
	parent    *Memory
	sessionID string
}

func (s *memorySession) Load(ctx context.Context) (*cart.Snapshot, error) {
	s.parent.mu.RLock()
	data, ok := s.parent.data[s.sessionID]
	s.parent.mu.RUnlock()
	if !ok {
		return nil, cart.ErrSnapshotNotFound
	}
	return cart.DecodeSnapshot(data)
}

func (s *memorySession) Save(ctx context.Context, snap cart.Snapshot) error {
	data, err := cart.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.parent.mu.Lock()
	s.parent.data[s.sessionID] = data
	s.parent.mu.Unlock()
	return nil
}

func (s *memorySession) Backend() string {
	return BackendMemory
}
