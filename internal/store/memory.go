package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is a map-backed store for tests and short-lived processes.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[key.Path()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key.Path(), ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Put(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key.Path()] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key.Path())
	return nil
}

func (m *Memory) List(_ context.Context, kind Kind) ([]Key, error) {
	m.mu.RLock()
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return filterKeys(names, kind), nil
}
