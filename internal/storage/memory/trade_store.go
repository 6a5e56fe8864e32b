package memory

import (
	"context"
	"sort"
	"sync"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by ticket_hash
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if ticket exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TicketHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TicketHash]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.TicketHash] = copyTrade(t)
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TicketHash == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TicketHash]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TicketHash]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TicketHash] = struct{}{}
	}

	for _, t := range trades {
		s.data[t.TicketHash] = copyTrade(t)
	}
	return nil
}

// GetByAccount retrieves trades of one account ordered by (open_time, ticket).
func (s *TradeStore) GetByAccount(_ context.Context, key domain.AccountKey) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.AccountKey() == key {
			result = append(result, copyTrade(t))
		}
	}
	sortTrades(result)
	return result, nil
}

// GetAll retrieves all trades ordered by (open_time, ticket).
func (s *TradeStore) GetAll(_ context.Context) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, copyTrade(t))
	}
	sortTrades(result)
	return result, nil
}

func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].OpenTime.Equal(trades[j].OpenTime) {
			return trades[i].OpenTime.Before(trades[j].OpenTime)
		}
		return trades[i].TicketHash < trades[j].TicketHash
	})
}

// copyTrade copies nullable fields too, so callers cannot mutate stored state.
func copyTrade(t *domain.Trade) *domain.Trade {
	cp := *t
	if t.CloseTime != nil {
		ct := *t.CloseTime
		cp.CloseTime = &ct
	}
	if t.ContractSize != nil {
		cs := *t.ContractSize
		cp.ContractSize = &cs
	}
	return &cp
}

var _ storage.TradeStore = (*TradeStore)(nil)
