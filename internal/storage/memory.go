package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrQuotaExceeded simulates a full backing store.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// MemoryAdapter keeps values in process memory. It counts operations so tests
// can assert the persistence policy of a history store.
type MemoryAdapter struct {
	mu     sync.RWMutex
	values map[string][]byte

	saves  int
	clears int

	// FailSaves makes every Save return ErrQuotaExceeded while set.
	FailSaves bool
}

// NewMemoryAdapter returns an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{values: make(map[string][]byte)}
}

// Seed stores raw bytes without counting a save.
func (m *MemoryAdapter) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), data...)
}

// SetFailSaves toggles simulated save failures.
func (m *MemoryAdapter) SetFailSaves(fail bool) {
	m.mu.Lock()
	m.FailSaves = fail
	m.mu.Unlock()
}

func (m *MemoryAdapter) Load(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryAdapter) Save(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.FailSaves {
		return ErrQuotaExceeded
	}
	m.values[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryAdapter) Clear(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	delete(m.values, key)
	return nil
}

func (m *MemoryAdapter) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryAdapter) Close() error { return nil }

// Saves returns how many Save calls were made.
func (m *MemoryAdapter) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Clears returns how many Clear calls were made.
func (m *MemoryAdapter) Clears() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clears
}

// Has reports whether key currently holds a value.
func (m *MemoryAdapter) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}
