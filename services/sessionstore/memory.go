package sessionstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store, suitable for single-node gateways and
// tests. One RWMutex guards both the byID map and the byUserID index.
type Memory struct {
	mu       sync.RWMutex
	byID     map[string]Record
	byUserID map[string]map[string]struct{}
}

// NewMemory constructs an empty in-memory session store.
func NewMemory() *Memory {
	return &Memory{
		byID:     make(map[string]Record),
		byUserID: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Create(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[rec.SessionID] = rec
	set, ok := m.byUserID[rec.UserID]
	if !ok {
		set = make(map[string]struct{})
		m.byUserID[rec.UserID] = set
	}
	set[rec.SessionID] = struct{}{}
	return nil
}

func (m *Memory) Get(ctx context.Context, sessionID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[sessionID]
	if !ok {
		return Record{}, notFound(sessionID)
	}
	return rec, nil
}

func (m *Memory) Update(ctx context.Context, sessionID string, mutate func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	mutate(&rec)
	m.byID[sessionID] = rec
	return nil
}

func (m *Memory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	delete(m.byID, sessionID)
	if set, ok := m.byUserID[rec.UserID]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.byUserID, rec.UserID)
		}
	}
	return nil
}

func (m *Memory) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return m.Update(ctx, sessionID, func(r *Record) { r.LastAccessedAt = at })
}

func (m *Memory) List(ctx context.Context, userID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byUserID[userID]
	out := make([]Record, 0, len(ids))
	for id := range ids {
		out = append(out, m.byID[id])
	}
	return out, nil
}
