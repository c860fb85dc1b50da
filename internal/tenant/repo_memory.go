package tenant

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu       sync.Mutex
	agencies map[string]Agency
	clients  map[string]Client
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agencies: make(map[string]Agency),
		clients:  make(map[string]Client),
	}
}

func (s *MemoryStore) PutAgency(a Agency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agencies[a.ID] = a
}

func (s *MemoryStore) PutClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

func (s *MemoryStore) GetAgency(ctx context.Context, agencyID string) (Agency, error) {
	if agencyID == "" {
		return Agency{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agencies[agencyID]
	if !ok {
		return Agency{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) GetClient(ctx context.Context, agencyID, clientID string) (Client, error) {
	if agencyID == "" || clientID == "" {
		return Client{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok || c.AgencyID != agencyID {
		return Client{}, ErrNotFound
	}
	return c, nil
}
