package space

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory Store. It has no unique index on owner_id, so
// duplicate spaces are only prevented by the service's own locking.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	spaces map[int64]*Space
	// assets holds per-space asset sizes for Recount.
	assets map[int64][]int64
}

func newMemStore() *memStore {
	return &memStore{spaces: make(map[int64]*Space), assets: make(map[int64][]int64)}
}

func (m *memStore) put(s Space) *Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.spaces[s.ID] = &s
	cp := s
	return &cp
}

func (m *memStore) get(id int64) Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.spaces[id]
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetByOwner(_ context.Context, ownerID string) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.spaces {
		if s.OwnerID == ownerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ExistsForOwner(ctx context.Context, ownerID string) (bool, error) {
	_, err := m.GetByOwner(ctx, ownerID)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) Create(_ context.Context, s *Space) (*Space, error) {
	// Widen the window between the existence check and the insert.
	time.Sleep(time.Millisecond)
	return m.put(*s), nil
}

func (m *memStore) Update(_ context.Context, s *Space) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[s.ID]; !ok {
		return nil, ErrNotFound
	}
	cp := *s
	m.spaces[s.ID] = &cp
	return s, nil
}

func (m *memStore) AddUsage(_ context.Context, id, deltaBytes, deltaCount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok || s.TotalCount >= s.MaxCount || s.TotalSize > s.MaxSize {
		return false, nil
	}
	s.TotalSize += deltaBytes
	s.TotalCount += deltaCount
	return true, nil
}

func (m *memStore) SubtractUsage(_ context.Context, id, deltaBytes, deltaCount int64) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok {
		return 0, 0, ErrNotFound
	}
	s.TotalSize -= deltaBytes
	s.TotalCount -= deltaCount
	return s.TotalSize, s.TotalCount, nil
}

func (m *memStore) Recount(_ context.Context, id int64) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.TotalCount = int64(len(m.assets[id]))
	s.TotalSize = 0
	for _, size := range m.assets[id] {
		s.TotalSize += size
	}
	cp := *s
	return &cp, nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
