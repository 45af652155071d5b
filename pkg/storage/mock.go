package storage

import (
	"context"
	"errors"
	"sync"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	flags     map[string]bool
	pingError error
	saveError error

	// Call tracking
	SaveCalls   int
	DeleteCalls int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		snapshots: make(map[string][]byte),
		flags:     make(map[string]bool),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail every save with err
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSnapshot stores a copy of data under key
func (m *MockStorage) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	if data == nil {
		return errors.New("snapshot data cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	m.snapshots[key] = append([]byte(nil), data...)
	return nil
}

// LoadSnapshot returns the stored data or nil when absent
func (m *MockStorage) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snapshots[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// DeleteSnapshot removes key
func (m *MockStorage) DeleteSnapshot(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	delete(m.snapshots, key)
	return nil
}

// SetFlag stores a boolean flag
func (m *MockStorage) SetFlag(ctx context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = value
	return nil
}

// GetFlag reads a boolean flag, false when unset
func (m *MockStorage) GetFlag(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[key], nil
}

// PutRaw seeds a snapshot without going through SaveSnapshot (for testing)
func (m *MockStorage) PutRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[key] = data
}

// Has reports whether a snapshot exists under key (for testing)
func (m *MockStorage) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.snapshots[key]
	return ok
}
