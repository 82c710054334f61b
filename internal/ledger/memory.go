package ledger

import (
	"context"
	"sync"
)

type memoryKey struct {
	tenantID  int64
	messageID string
}

// Memory is an in-process Ledger for tests and single-node tooling.
type Memory struct {
	mu   sync.Mutex
	seen map[memoryKey]string
}

// NewMemory creates an empty Memory ledger.
func NewMemory() *Memory {
	return &Memory{seen: make(map[memoryKey]string)}
}

func (m *Memory) Exists(_ context.Context, tenantID int64, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[memoryKey{tenantID, messageID}]
	return ok, nil
}

func (m *Memory) Record(_ context.Context, tenantID int64, messageID, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey{tenantID, messageID}
	if _, ok := m.seen[key]; !ok {
		m.seen[key] = source
	}
	return nil
}

// Len reports how many messages were recorded.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

var _ Ledger = (*Memory)(nil)
