package apikey

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*Key
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*Key)}
}

func (s *MemoryStore) Create(_ context.Context, k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	cp.Scopes = append([]string(nil), k.Scopes...)
	s.keys[k.ID] = &cp
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *k
	cp.Scopes = append([]string(nil), k.Scopes...)
	return &cp, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Key
	for _, k := range s.keys {
		if k.UserID != userID {
			continue
		}
		cp := *k
		cp.Scopes = append([]string(nil), k.Scopes...)
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Key
	for _, k := range s.keys {
		if k.Revoked {
			continue
		}
		cp := *k
		cp.Scopes = append([]string(nil), k.Scopes...)
		res = append(res, &cp)
	}
	return res, nil
}

func (s *MemoryStore) MarkRevoked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return ErrNotFound
	}
	k.Revoked = true
	return nil
}
