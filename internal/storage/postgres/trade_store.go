package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using the trades table.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeSQL = `
	INSERT INTO trades (
		ticket_hash, login_hash, server_hash, symbol, digits, cmd,
		volume, open_time, close_time, open_price, contractsize
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const selectTradeSQL = `
	SELECT
		ticket_hash, login_hash, server_hash, symbol, digits, cmd,
		volume, open_time, close_time, open_price, contractsize
	FROM trades
`

func tradeArgs(t *domain.Trade) []any {
	return []any{
		t.TicketHash, t.LoginHash, t.ServerHash, t.Symbol, t.Digits, t.Cmd,
		t.Volume, t.OpenTime, t.CloseTime, t.OpenPrice, t.ContractSize,
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if ticket exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if _, err := s.pool.Exec(ctx, insertTradeSQL, tradeArgs(t)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if _, err := tx.Exec(ctx, insertTradeSQL, tradeArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByAccount retrieves trades of one account ordered by (open_time, ticket).
func (s *TradeStore) GetByAccount(ctx context.Context, key domain.AccountKey) ([]*domain.Trade, error) {
	query := selectTradeSQL + `
		WHERE login_hash = $1 AND server_hash = $2
		ORDER BY open_time ASC, ticket_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, key.LoginHash, key.ServerHash)
	if err != nil {
		return nil, fmt.Errorf("query trades by account: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetAll retrieves all trades ordered by (open_time, ticket).
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, selectTradeSQL+` ORDER BY open_time ASC, ticket_hash ASC`)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	err := row.Scan(
		&t.TicketHash, &t.LoginHash, &t.ServerHash, &t.Symbol, &t.Digits, &t.Cmd,
		&t.Volume, &t.OpenTime, &t.CloseTime, &t.OpenPrice, &t.ContractSize,
	)
	if err != nil {
		return nil, err
	}
	t.OpenTime = t.OpenTime.UTC()
	if t.CloseTime != nil {
		ct := t.CloseTime.UTC()
		t.CloseTime = &ct
	}
	return &t, nil
}

func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
