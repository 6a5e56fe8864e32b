package memory

import (
	"context"
	"sort"
	"sync"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[domain.AccountKey]*domain.Account
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[domain.AccountKey]*domain.Account),
	}
}

// Insert adds a new account. Returns ErrDuplicateKey if (login, server) exists.
func (s *AccountStore) Insert(_ context.Context, a *domain.Account) error {
	if !validAccount(a) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.Key()]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *a
	s.data[a.Key()] = &cp
	return nil
}

// InsertBulk adds multiple accounts atomically. Fails entire batch on any duplicate.
func (s *AccountStore) InsertBulk(_ context.Context, accounts []*domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[domain.AccountKey]struct{}, len(accounts))
	for _, a := range accounts {
		if !validAccount(a) {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[a.Key()]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[a.Key()]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[a.Key()] = struct{}{}
	}

	for _, a := range accounts {
		cp := *a
		s.data[a.Key()] = &cp
	}
	return nil
}

// GetByKey retrieves an account. Returns ErrNotFound if not exists.
func (s *AccountStore) GetByKey(_ context.Context, key domain.AccountKey) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetAll retrieves all accounts ordered by (login, server).
func (s *AccountStore) GetAll(_ context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Account, 0, len(s.data))
	for _, a := range s.data {
		cp := *a
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LoginHash != result[j].LoginHash {
			return result[i].LoginHash < result[j].LoginHash
		}
		return result[i].ServerHash < result[j].ServerHash
	})
	return result, nil
}

func validAccount(a *domain.Account) bool {
	return a != nil && a.LoginHash != "" && a.ServerHash != ""
}

var _ storage.AccountStore = (*AccountStore)(nil)
