package storage

import "sync"

// StateStore is a keyed table of per-chat conversation state.
type StateStore[T any] interface {
	// Get returns the state for chatID and whether one was present.
	Get(chatID int64) (T, bool, error)
	Set(chatID int64, state T) error
	Delete(chatID int64) error
}

// MemoryStateStore keeps state in a map. State is lost on restart.
type MemoryStateStore[T any] struct {
	mu     sync.RWMutex
	states map[int64]T
}

// NewMemoryStateStore creates an empty in-memory store.
func NewMemoryStateStore[T any]() *MemoryStateStore[T] {
	return &MemoryStateStore[T]{states: make(map[int64]T)}
}

func (m *MemoryStateStore[T]) Get(chatID int64) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.states[chatID]
	return v, ok, nil
}

func (m *MemoryStateStore[T]) Set(chatID int64, state T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = state
	return nil
}

func (m *MemoryStateStore[T]) Delete(chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
	return nil
}

// Len returns the number of chats with stored state.
func (m *MemoryStateStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
