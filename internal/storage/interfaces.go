package storage

import (
	"context"

	"trade-snapshot-lab/internal/domain"
)

// AccountStore provides storage for source accounts (users table).
type AccountStore interface {
	// Insert adds a new account. Returns ErrDuplicateKey if (login, server) exists.
	Insert(ctx context.Context, a *domain.Account) error

	// InsertBulk adds multiple accounts atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, accounts []*domain.Account) error

	// GetByKey retrieves an account. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, key domain.AccountKey) (*domain.Account, error)

	// GetAll retrieves all accounts ordered by (login, server).
	GetAll(ctx context.Context) ([]*domain.Account, error)
}

// TradeStore provides storage for source trades (trades table).
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if ticket exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByAccount retrieves trades of one account ordered by (open_time, ticket).
	GetByAccount(ctx context.Context, key domain.AccountKey) ([]*domain.Trade, error)

	// GetAll retrieves all trades ordered by (open_time, ticket).
	GetAll(ctx context.Context) ([]*domain.Trade, error)
}

// LedgerSource provides the cleaned, account-joined trade ledger.
type LedgerSource interface {
	// LoadTradeRecords returns closed trades of enabled accounts ordered
	// by (close_time, ticket).
	LoadTradeRecords(ctx context.Context) ([]domain.TradeRecord, error)
}

// SnapshotSink receives a formatted snapshot.
type SnapshotSink interface {
	// WriteSnapshot stores the rows of one run. Rows of earlier runs for
	// the same report dates are replaced.
	WriteSnapshot(ctx context.Context, runID string, rows []domain.SnapshotRow) error
}

// SnapshotStore is a SnapshotSink that can be read back.
type SnapshotStore interface {
	SnapshotSink

	// GetByDate retrieves rows for one report date ordered by row_number DESC.
	GetByDate(ctx context.Context, dtReport string) ([]domain.SnapshotRow, error)

	// Lookup retrieves one row by (dt_report, account, server, instrument).
	// Returns ErrNotFound if not exists.
	Lookup(ctx context.Context, dtReport, accountID, serverID, instrument string) (*domain.SnapshotRow, error)
}
