// Package kvstore provides the durable key-value collaborator the store
// persists its settings through: a tiny Get/Set contract with a file-backed
// implementation and an in-memory one for tests.
package kvstore

import "sync"

// KV is the durable key-value contract. Values are opaque strings; the
// store keeps JSON documents in them.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set durably stores value under key.
	Set(key, value string) error
}

// Memory is a map-backed KV for tests and ephemeral runs.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements KV.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements KV.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
