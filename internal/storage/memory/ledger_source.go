package memory

import (
	"context"
	"fmt"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/ledger"
	"trade-snapshot-lab/internal/storage"
)

// LedgerSource builds the cleaned ledger from in-memory account and trade stores.
type LedgerSource struct {
	accounts storage.AccountStore
	trades   storage.TradeStore
}

// NewLedgerSource creates a ledger source over the given stores.
func NewLedgerSource(accounts storage.AccountStore, trades storage.TradeStore) *LedgerSource {
	return &LedgerSource{accounts: accounts, trades: trades}
}

// LoadTradeRecords joins trades to enabled accounts and drops open or
// inverted trades.
func (s *LedgerSource) LoadTradeRecords(ctx context.Context) ([]domain.TradeRecord, error) {
	accounts, err := s.accounts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	trades, err := s.trades.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return ledger.Join(accounts, trades), nil
}

var _ storage.LedgerSource = (*LedgerSource)(nil)
