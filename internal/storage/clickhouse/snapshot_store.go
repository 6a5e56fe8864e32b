package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/idhash"
	"trade-snapshot-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore on the
// trading_activity_snapshot table.
type SnapshotStore struct {
	conn *Conn
	now  func() time.Time
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// WriteSnapshot deletes stored rows for the report dates covered by rows,
// then inserts rows in a single batch.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, runID string, rows []domain.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	dates := make(map[string]time.Time)
	for _, r := range rows {
		if _, ok := dates[r.DtReport]; ok {
			continue
		}
		d, err := calendar.ParseDate(r.DtReport)
		if err != nil {
			return fmt.Errorf("%w: row %d: %v", storage.ErrInvalidInput, r.RowNumber, err)
		}
		dates[r.DtReport] = d.Time()
	}

	if err := s.deleteDates(ctx, dates); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trading_activity_snapshot (
			snapshot_key, run_id, written_at, id, dt_report,
			account_id, server_id, instrument, currency,
			trailing_7d_volume, all_time_volume, volume_rank_7d, trade_count_rank_7d,
			fixed_month_volume, first_trade_time, row_number
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	writtenAt := s.now()
	for _, r := range rows {
		err := batch.Append(
			idhash.ComputeSnapshotKey(r.DtReport, r.AccountID, r.ServerID, r.Instrument),
			runID, writtenAt, uint64(r.ID), dates[r.DtReport],
			r.AccountID, r.ServerID, r.Instrument, r.Currency,
			r.Trailing7dVolume, r.AllTimeVolume, uint32(r.VolumeRank7d), uint32(r.TradeCountRank7d),
			r.FixedMonthVolume, r.FirstTradeTime, uint64(r.RowNumber),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// deleteDates removes earlier rows synchronously so reads after the
// write see only the new run.
func (s *SnapshotStore) deleteDates(ctx context.Context, dates map[string]time.Time) error {
	list := make([]string, 0, len(dates))
	for d := range dates {
		list = append(list, d)
	}

	syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))
	err := s.conn.Exec(syncCtx,
		`ALTER TABLE trading_activity_snapshot DELETE WHERE dt_report IN (?)`, list)
	if err != nil {
		return fmt.Errorf("delete previous snapshot rows: %w", err)
	}
	return nil
}

// GetByDate retrieves rows for one report date ordered by row_number DESC.
func (s *SnapshotStore) GetByDate(ctx context.Context, dtReport string) ([]domain.SnapshotRow, error) {
	if _, err := calendar.ParseDate(dtReport); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		SELECT
			id, dt_report, account_id, server_id, instrument, currency,
			trailing_7d_volume, all_time_volume, volume_rank_7d, trade_count_rank_7d,
			fixed_month_volume, first_trade_time, row_number
		FROM trading_activity_snapshot FINAL
		WHERE dt_report = toDate(?)
		ORDER BY row_number DESC
	`

	rows, err := s.conn.Query(ctx, query, dtReport)
	if err != nil {
		return nil, fmt.Errorf("query snapshot by date: %w", err)
	}
	defer rows.Close()

	return scanSnapshotRows(rows)
}

// Lookup returns a single row by its natural key. Returns ErrNotFound if absent.
func (s *SnapshotStore) Lookup(ctx context.Context, dtReport, accountID, serverID, instrument string) (*domain.SnapshotRow, error) {
	if _, err := calendar.ParseDate(dtReport); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		SELECT
			id, dt_report, account_id, server_id, instrument, currency,
			trailing_7d_volume, all_time_volume, volume_rank_7d, trade_count_rank_7d,
			fixed_month_volume, first_trade_time, row_number
		FROM trading_activity_snapshot FINAL
		WHERE dt_report = toDate(?) AND account_id = ? AND server_id = ? AND instrument = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, dtReport, accountID, serverID, instrument)
	if err != nil {
		return nil, fmt.Errorf("query snapshot row: %w", err)
	}
	defer rows.Close()

	result, err := scanSnapshotRows(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return &result[0], nil
}

func scanSnapshotRows(rows chRows) ([]domain.SnapshotRow, error) {
	var result []domain.SnapshotRow

	for rows.Next() {
		var r domain.SnapshotRow
		var id, rowNumber uint64
		var dt time.Time
		var volumeRank, countRank uint32

		err := rows.Scan(
			&id, &dt, &r.AccountID, &r.ServerID, &r.Instrument, &r.Currency,
			&r.Trailing7dVolume, &r.AllTimeVolume, &volumeRank, &countRank,
			&r.FixedMonthVolume, &r.FirstTradeTime, &rowNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		r.ID = int64(id)
		r.DtReport = calendar.DateOf(dt).String()
		r.VolumeRank7d = int(volumeRank)
		r.TradeCountRank7d = int(countRank)
		r.RowNumber = int64(rowNumber)
		if r.FirstTradeTime != nil {
			ft := r.FirstTradeTime.UTC()
			r.FirstTradeTime = &ft
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}
