package memory

import (
	"context"
	"sync"

	"github.com/jcline/jcline/src/internal/domain"
)

type InMemoryProfileStore struct {
	profiles map[string]domain.Profile
	mu       sync.RWMutex
}

func NewProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles: make(map[string]domain.Profile),
	}
}

func (s *InMemoryProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (s *InMemoryProfileStore) Create(ctx context.Context, userID string, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := profile.Clone()
	p.Normalize()
	s.profiles[userID] = p
	return nil
}

func (s *InMemoryProfileStore) UpdateFields(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Apply(update)
	s.profiles[userID] = p
	return nil
}
