package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory UserStore used when the SQLite database cannot be
// opened. Data does not survive a restart; the process keeps serving rather
// than crashing when persistence is unavailable.
type MemStore struct {
	mu    sync.RWMutex
	users map[string]UserRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{users: make(map[string]UserRecord)}
}

func (m *MemStore) GetUser(ctx context.Context, id string) (UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.users[id]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *MemStore) GetAllUsers(ctx context.Context) ([]UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]UserRecord, 0, len(m.users))
	for _, rec := range m.users {
		users = append(users, copyRecord(rec))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *MemStore) UpsertUser(ctx context.Context, rec UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.users[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.users[rec.ID] = copyRecord(rec)
	return nil
}

// copyRecord deep-copies the history slice so callers cannot mutate stored
// state through the returned record.
func copyRecord(rec UserRecord) UserRecord {
	cp := rec
	if rec.ChatHistory != nil {
		cp.ChatHistory = make([]ChatMessage, len(rec.ChatHistory))
		copy(cp.ChatHistory, rec.ChatHistory)
	}
	return cp
}
