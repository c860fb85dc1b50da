package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[string]Call
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Call), clock: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, c Call) error {
	if c.CallID == "" || c.AgencyID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.rows[c.CallID] = c
	return nil
}

func (s *MemoryStore) GetByCallID(ctx context.Context, agencyID, callID string) (Call, error) {
	if agencyID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[callID]
	if !ok || c.AgencyID != agencyID {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, callID string, status CallStatus) error {
	if callID == "" || status == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[callID]
	if !ok {
		return ErrNotFound
	}
	if c.Status.IsTerminal() {
		return nil
	}
	c.Status = status
	c.UpdatedAt = s.clock().UTC()
	s.rows[callID] = c
	return nil
}

func (s *MemoryStore) SetControlEndpoint(ctx context.Context, callID, endpoint string) error {
	if callID == "" || endpoint == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[callID]
	if !ok {
		return ErrNotFound
	}
	c.ControlEndpoint = endpoint
	c.UpdatedAt = s.clock().UTC()
	s.rows[callID] = c
	return nil
}
