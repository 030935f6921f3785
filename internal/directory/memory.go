package directory

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store in process memory. It backs tests and
// single-node deployments that run without PostgreSQL.
type MemoryStore struct {
	mu          sync.RWMutex
	orgs        map[string]*Organization
	users       map[string]*User
	services    map[string]*Service
	assignments map[string]*Assignment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:        make(map[string]*Organization),
		users:       make(map[string]*User),
		services:    make(map[string]*Service),
		assignments: make(map[string]*Assignment),
	}
}

func assignmentKey(userID, serviceID string) string { return userID + "\x00" + serviceID }

func (s *MemoryStore) CreateOrganization(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return ErrConflict
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *MemoryStore) ListOrganizations(_ context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		cp := *org
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateService(_ context.Context, svc *Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.services {
		if existing.Name == svc.Name {
			return ErrConflict
		}
	}
	cp := *svc
	s.services[svc.ID] = &cp
	return nil
}

func (s *MemoryStore) FindService(_ context.Context, id string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s *MemoryStore) FindServiceByName(_ context.Context, name string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.services {
		if svc.Name == name {
			cp := *svc
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListServices(_ context.Context) ([]*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Service, 0, len(s.services))
	for _, svc := range s.services {
		cp := *svc
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) UpsertAssignment(_ context.Context, a *Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.assignments[assignmentKey(a.UserID, a.ServiceID)] = &cp
	return nil
}

func (s *MemoryStore) FindAssignment(_ context.Context, userID, serviceID string) (*Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentKey(userID, serviceID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}
