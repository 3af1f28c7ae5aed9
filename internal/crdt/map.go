package crdt

import "sync"

// mapEntry is a single LWW register: the current value plus the OpID that
// last wrote it. A deleted key keeps its entry with Tombstone set so a
// concurrent delete/write pair still converges under the OpID tie-break.
type mapEntry struct {
	id        OpID
	value     Value
	tombstone bool
}

// CRDTMap is a last-writer-wins map: each key is an independent register,
// so concurrent writes to different keys never conflict, and concurrent
// writes to the same key converge by picking the entry with the greater
// OpID (see OpID.Less).
type CRDTMap struct {
	mu      sync.RWMutex
	entries map[string]mapEntry
}

// NewCRDTMap returns an empty map root.
func NewCRDTMap() *CRDTMap {
	return &CRDTMap{entries: make(map[string]mapEntry)}
}

// Get returns the value at key and whether it is present (not deleted).
func (m *CRDTMap) Get(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || e.tombstone {
		return Value{}, false
	}
	return e.value, true
}

// Keys returns the set of live (non-tombstoned) keys in unspecified order.
func (m *CRDTMap) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if !e.tombstone {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of live keys.
func (m *CRDTMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if !e.tombstone {
			n++
		}
	}
	return n
}

// applySet writes value at key under id, winning only if id beats the
// current entry's id. Returns true if the entry actually changed.
func (m *CRDTMap) applySet(key string, id OpID, value Value) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[key]
	if ok && !cur.id.Less(id) {
		return false
	}
	m.entries[key] = mapEntry{id: id, value: value}
	return true
}

// applyDelete tombstones key under id, subject to the same tie-break as
// applySet so a delete can still lose to a concurrent later write.
func (m *CRDTMap) applyDelete(key string, id OpID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[key]
	if ok && !cur.id.Less(id) {
		return false
	}
	m.entries[key] = mapEntry{id: id, tombstone: true}
	return true
}
