// Package memory provides the working memory shared across reasoning stages,
// with per-key bounded history and snapshot persistence for crash recovery.
package memory

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrKeyNotFound indicates a key has never been set and no default was given.
var ErrKeyNotFound = errors.New("memory: key not found")

// WorkingMemory is the shared state store threaded through every reasoning
// stage. Values are arbitrary serializable structures; each tracked key keeps
// an ordered, append-only history of prior values, most recent last.
type WorkingMemory struct {
	mu        sync.RWMutex
	values    map[string]any
	history   map[string][]any
	untracked map[string]bool
	window    int
}

// Option configures a WorkingMemory.
type Option func(*WorkingMemory)

// WithHistoryWindow bounds the per-key history length. Zero means unbounded.
func WithHistoryWindow(n int) Option {
	return func(m *WorkingMemory) {
		m.window = n
	}
}

// WithoutHistory disables history tracking for the given keys.
func WithoutHistory(keys ...string) Option {
	return func(m *WorkingMemory) {
		for _, key := range keys {
			m.untracked[key] = true
		}
	}
}

// New creates an empty WorkingMemory.
func New(opts ...Option) *WorkingMemory {
	m := &WorkingMemory{
		values:    make(map[string]any),
		history:   make(map[string][]any),
		untracked: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the current value for key, or ErrKeyNotFound.
func (m *WorkingMemory) Get(key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// GetDefault returns the current value for key, or def when unset.
func (m *WorkingMemory) GetDefault(key string, def any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, ok := m.values[key]; ok {
		return value
	}
	return def
}

// Set overwrites the value for key, appending the prior value (if any) to the
// key's history first.
func (m *WorkingMemory) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value)
}

func (m *WorkingMemory) set(key string, value any) {
	if prior, ok := m.values[key]; ok && !m.untracked[key] {
		m.append(key, prior)
	}
	m.values[key] = value
}

// AppendHistory records value in key's history without touching the current
// value.
func (m *WorkingMemory) AppendHistory(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(key, value)
}

func (m *WorkingMemory) append(key string, value any) {
	entries := append(m.history[key], value)
	if m.window > 0 && len(entries) > m.window {
		entries = entries[len(entries)-m.window:]
	}
	m.history[key] = entries
}

// Recent returns the last min(k, count) history entries for key in insertion
// order. An unseen key yields an empty slice, not an error.
func (m *WorkingMemory) Recent(key string, k int) []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.history[key]
	if k < 0 {
		k = 0
	}
	if k > len(entries) {
		k = len(entries)
	}
	out := make([]any, k)
	copy(out, entries[len(entries)-k:])
	return out
}

// BulkUpdate applies Set for every entry under a single lock, so readers see
// either all of the updates or none of them.
func (m *WorkingMemory) BulkUpdate(updates map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range updates {
		m.set(key, value)
	}
}

// Keys returns the currently set keys, unordered.
func (m *WorkingMemory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	return keys
}

// Values returns a shallow copy of the current key/value mapping.
func (m *WorkingMemory) Values() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.values))
	for key, value := range m.values {
		out[key] = value
	}
	return out
}

type snapshot struct {
	Values  map[string]any   `json:"values"`
	History map[string][]any `json:"history"`
}

// Snapshot serializes the full state plus history logs.
func (m *WorkingMemory) Snapshot() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(snapshot{
		Values:  m.values,
		History: m.history,
	})
}

// Restore replaces the full state from a prior Snapshot blob.
func (m *WorkingMemory) Restore(blob []byte) error {
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Values == nil {
		snap.Values = make(map[string]any)
	}
	if snap.History == nil {
		snap.History = make(map[string][]any)
	}
	m.values = snap.Values
	m.history = snap.History
	return nil
}
