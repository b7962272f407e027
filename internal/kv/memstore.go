package kv

import "sync"

// MemStore is the session-scoped medium: it lives exactly as long as the
// process, mirroring tab-scoped storage that is cleared when the tab closes.
type MemStore struct {
	mu       sync.RWMutex
	entries  map[string]string
	disabled bool
}

const sessionMedium = "session"

// NewMemStore returns an empty session-scoped store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]string)}
}

// Disable makes every subsequent Set fail, simulating a disabled medium.
// Used by tests and by the diagnostic CLI's degraded mode.
func (m *MemStore) Disable() {
	m.mu.Lock()
	m.disabled = true
	m.mu.Unlock()
}

// Name identifies the medium in logs and metrics.
func (m *MemStore) Name() string { return sessionMedium }

// Get returns the stored JSON for key.
func (m *MemStore) Get(key string) (string, bool) {
	m.mu.RLock()
	raw, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !usable(raw) {
		if raw != Placeholder {
			corruptionRepairsTotal.WithLabelValues(sessionMedium).Inc()
			m.Set(key, Placeholder)
		}
		return "", false
	}
	return raw, true
}

// Set stores the value, reporting false when the medium is disabled.
func (m *MemStore) Set(key, valueJSON string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		writeFailuresTotal.WithLabelValues(sessionMedium).Inc()
		return false
	}
	m.entries[key] = valueJSON
	return true
}

// Remove deletes the key.
func (m *MemStore) Remove(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len reports the number of stored entries. Diagnostic use only.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
