package cache

import (
	"sync"
	"time"
)

// DefaultMemoryCapacity bounds the fast tier when the shared tier is unavailable
const DefaultMemoryCapacity = 100

type memEntry struct {
	payload   []byte
	cachedAt  time.Time
	expiresAt time.Time
}

// Memory is the bounded in-process fast tier.
// Eviction on overflow is oldest-insertion-first; expired entries are
// treated as absent and deleted lazily on lookup
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	order   []string // insertion order of live keys
	cap     int

	now func() time.Time
}

// NewMemory constructs a Memory tier with the given capacity (0 = default)
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{
		entries: make(map[string]memEntry, capacity),
		cap:     capacity,
		now:     time.Now,
	}
}

// Get returns the payload for fp, treating entries past their expiry as absent
func (m *Memory) Get(fp string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fp]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		m.deleteLocked(fp)
		return nil, false
	}
	return e.payload, true
}

// Set stores payload under fp for ttl, evicting the oldest insertion on overflow
func (m *Memory) Set(fp string, payload []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	_, exists := m.entries[fp]
	m.entries[fp] = memEntry{payload: payload, cachedAt: now, expiresAt: now.Add(ttl)}
	if exists {
		return
	}
	m.order = append(m.order, fp)
	for len(m.entries) > m.cap {
		m.deleteLocked(m.order[0])
	}
}

// Delete removes fp if present
func (m *Memory) Delete(fp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(fp)
}

// Len returns the number of live entries (expired ones included until touched)
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) deleteLocked(fp string) {
	if _, ok := m.entries[fp]; !ok {
		return
	}
	delete(m.entries, fp)
	for i, k := range m.order {
		if k == fp {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
