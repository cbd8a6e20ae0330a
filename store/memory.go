package store

import (
	"context"
	"fmt"
	"sync"

	"series-tracker/models"
)

// MemoryStore keeps everything in maps guarded by a mutex
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]models.Series
	users map[string]User
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string][]models.Series),
		users: make(map[string]User),
	}
}

func (m *MemoryStore) FetchAll(ctx context.Context, collection string) ([]models.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Series, len(m.docs[collection]))
	copy(out, m.docs[collection])
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (models.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.docs[collection] {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Series{}, fmt.Errorf("get %s/%s: %w", collection, id, models.ErrNotFound)
}

func (m *MemoryStore) Insert(ctx context.Context, collection string, in models.SeriesInput) (models.Series, error) {
	s := in.WithID(NewID())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[collection] = append(m.docs[collection], s)
	return s, nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, s models.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.docs[collection]
	for i := range list {
		if list[i].ID == id {
			s.ID = id
			list[i] = s
			return nil
		}
	}
	return fmt.Errorf("update %s/%s: %w", collection, id, models.ErrNotFound)
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.docs[collection]
	for i := range list {
		if list[i].ID == id {
			m.docs[collection] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s/%s: %w", collection, id, models.ErrNotFound)
}

func (m *MemoryStore) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Email]; ok {
		return fmt.Errorf("create user %s: %w", u.Email, models.ErrConflict)
	}
	m.users[u.Email] = u
	return nil
}

func (m *MemoryStore) UserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	return u, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }
