package postgres

import (
	"context"
	"fmt"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// LedgerSource loads the cleaned trade ledger with a single join.
type LedgerSource struct {
	pool *Pool
}

// NewLedgerSource creates a new LedgerSource.
func NewLedgerSource(pool *Pool) *LedgerSource {
	return &LedgerSource{pool: pool}
}

var _ storage.LedgerSource = (*LedgerSource)(nil)

// LoadTradeRecords returns closed trades of enabled accounts whose close
// time is after their open time, ordered by (close_time, ticket).
func (s *LedgerSource) LoadTradeRecords(ctx context.Context) ([]domain.TradeRecord, error) {
	query := `
		SELECT
			t.ticket_hash, t.login_hash, t.server_hash, t.symbol,
			t.volume, t.open_time, t.close_time, u.currency
		FROM trades t
		JOIN users u
			ON u.login_hash = t.login_hash AND u.server_hash = t.server_hash
		WHERE u.enable = 1
			AND t.close_time IS NOT NULL
			AND t.open_time < t.close_time
		ORDER BY t.close_time ASC, t.ticket_hash ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		err := rows.Scan(
			&r.TicketID, &r.AccountID, &r.ServerID, &r.Instrument,
			&r.Volume, &r.OpenTime, &r.CloseTime, &r.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		r.OpenTime = r.OpenTime.UTC()
		r.CloseTime = r.CloseTime.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return records, nil
}
