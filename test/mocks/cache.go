package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory implementation of cache.Cache.
// Setting Err makes every operation fail with it.
type MockCache struct {
	data map[string]interface{}
	mu   sync.Mutex

	Err      error
	GetCalls int
	SetCalls int
}

// NewMockCache creates a new mock cache instance
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]interface{}),
	}
}

// Get retrieves a value from the mock cache
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.Err != nil {
		return "", m.Err
	}

	val, exists := m.data[key]
	if !exists {
		return "", nil
	}
	return fmt.Sprintf("%v", val), nil
}

// Set stores a value in the mock cache
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls++
	if m.Err != nil {
		return m.Err
	}
	// TTLs are not tracked.
	m.data[key] = value
	return nil
}

// Del deletes keys from the mock cache
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Incr increments a key's value
func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}

	var intVal int64
	if val, exists := m.data[key]; exists {
		if _, err := fmt.Sscanf(fmt.Sprintf("%v", val), "%d", &intVal); err != nil {
			intVal = 0
		}
	}

	intVal++
	m.data[key] = fmt.Sprintf("%d", intVal)
	return intVal, nil
}

// Health reports Err.
func (m *MockCache) Health(ctx context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *MockCache) Close() error {
	return nil
}

// Clear resets the mock cache.
func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]interface{})
	m.Err = nil
	m.GetCalls = 0
	m.SetCalls = 0
}
