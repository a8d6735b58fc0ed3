package lease

import (
	"context"
	"maps"
	"sync"

	"github.com/matheus3301/msana/internal/model"
)

// MemoryStore is a Store kept in process memory. Several managers sharing one
// MemoryStore behave like tabs sharing one database.
type MemoryStore struct {
	mu        sync.Mutex
	accounts  map[string]model.AccountRecord
	occupancy map[string]model.OccupancyRecord

	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]model.AccountRecord),
		occupancy: make(map[string]model.OccupancyRecord),
	}
}

func (s *MemoryStore) LoadAccounts(_ context.Context) (map[string]model.AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return maps.Clone(s.accounts), nil
}

func (s *MemoryStore) SaveAccounts(_ context.Context, accounts map[string]model.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.accounts = maps.Clone(accounts)
	return nil
}

func (s *MemoryStore) LoadOccupancy(_ context.Context) (map[string]model.OccupancyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return maps.Clone(s.occupancy), nil
}

func (s *MemoryStore) SaveOccupancy(_ context.Context, occupancy map[string]model.OccupancyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.occupancy = maps.Clone(occupancy)
	return nil
}
