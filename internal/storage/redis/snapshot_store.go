// Package redis publishes snapshot rows to Redis hashes, one hash per
// report date, for low-latency lookups by downstream services.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/idhash"
	"trade-snapshot-lab/internal/storage"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration // 0 keeps keys forever
	Prefix   string        // key prefix, defaults to "snapshot"
}

// SnapshotStore implements storage.SnapshotStore on Redis.
type SnapshotStore struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// NewSnapshotStore connects to Redis and verifies the connection.
func NewSnapshotStore(ctx context.Context, opts Options) (*SnapshotStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewSnapshotStoreWithClient(client, opts), nil
}

// NewSnapshotStoreWithClient wraps an existing client.
func NewSnapshotStoreWithClient(client *goredis.Client, opts Options) *SnapshotStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "snapshot"
	}
	return &SnapshotStore{client: client, ttl: opts.TTL, prefix: prefix}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Close closes the Redis connection.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

// row is the JSON document stored per hash field.
type row struct {
	ID               int64      `json:"id"`
	DtReport         string     `json:"dt_report"`
	AccountID        string     `json:"account_id"`
	ServerID         string     `json:"server_id"`
	Instrument       string     `json:"instrument"`
	Currency         string     `json:"currency"`
	Trailing7dVolume float64    `json:"trailing_7d_volume"`
	AllTimeVolume    float64    `json:"all_time_volume"`
	VolumeRank7d     int        `json:"volume_rank_7d"`
	TradeCountRank7d int        `json:"trade_count_rank_7d"`
	FixedMonthVolume float64    `json:"fixed_month_volume"`
	FirstTradeTime   *time.Time `json:"first_trade_time"`
	RowNumber        int64      `json:"row_number"`
	RunID            string     `json:"run_id"`
}

func fromDomain(r domain.SnapshotRow, runID string) row {
	return row{
		ID:               r.ID,
		DtReport:         r.DtReport,
		AccountID:        r.AccountID,
		ServerID:         r.ServerID,
		Instrument:       r.Instrument,
		Currency:         r.Currency,
		Trailing7dVolume: r.Trailing7dVolume,
		AllTimeVolume:    r.AllTimeVolume,
		VolumeRank7d:     r.VolumeRank7d,
		TradeCountRank7d: r.TradeCountRank7d,
		FixedMonthVolume: r.FixedMonthVolume,
		FirstTradeTime:   r.FirstTradeTime,
		RowNumber:        r.RowNumber,
		RunID:            runID,
	}
}

func (r row) toDomain() domain.SnapshotRow {
	out := domain.SnapshotRow{
		ID:               r.ID,
		DtReport:         r.DtReport,
		AccountID:        r.AccountID,
		ServerID:         r.ServerID,
		Instrument:       r.Instrument,
		Currency:         r.Currency,
		Trailing7dVolume: r.Trailing7dVolume,
		AllTimeVolume:    r.AllTimeVolume,
		VolumeRank7d:     r.VolumeRank7d,
		TradeCountRank7d: r.TradeCountRank7d,
		FixedMonthVolume: r.FixedMonthVolume,
		RowNumber:        r.RowNumber,
	}
	if r.FirstTradeTime != nil {
		ft := r.FirstTradeTime.UTC()
		out.FirstTradeTime = &ft
	}
	return out
}

func (s *SnapshotStore) dateKey(dtReport string) string {
	return fmt.Sprintf("%s:%s", s.prefix, dtReport)
}

// WriteSnapshot replaces the hash of every report date present in rows.
// Each date is rewritten in one MULTI/EXEC transaction.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, runID string, rows []domain.SnapshotRow) error {
	byDate := make(map[string]map[string]any)
	for _, r := range rows {
		doc, err := json.Marshal(fromDomain(r, runID))
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", r.RowNumber, err)
		}

		fields, ok := byDate[r.DtReport]
		if !ok {
			fields = make(map[string]any)
			byDate[r.DtReport] = fields
		}
		fields[idhash.ComputeSnapshotKey(r.DtReport, r.AccountID, r.ServerID, r.Instrument)] = doc
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		key := s.dateKey(d)
		_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, byDate[d])
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("write snapshot %s: %w", d, err)
		}
	}
	return nil
}

// GetByDate retrieves rows for one report date ordered by row_number DESC.
func (s *SnapshotStore) GetByDate(ctx context.Context, dtReport string) ([]domain.SnapshotRow, error) {
	fields, err := s.client.HGetAll(ctx, s.dateKey(dtReport)).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", dtReport, err)
	}

	result := make([]domain.SnapshotRow, 0, len(fields))
	for field, doc := range fields {
		var r row
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode field %s: %w", field, err)
		}
		result = append(result, r.toDomain())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RowNumber > result[j].RowNumber
	})
	return result, nil
}

// Lookup returns a single row by its natural key. Returns ErrNotFound if absent.
func (s *SnapshotStore) Lookup(ctx context.Context, dtReport, accountID, serverID, instrument string) (*domain.SnapshotRow, error) {
	field := idhash.ComputeSnapshotKey(dtReport, accountID, serverID, instrument)
	doc, err := s.client.HGet(ctx, s.dateKey(dtReport), field).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup snapshot row: %w", err)
	}

	var r row
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("decode snapshot row: %w", err)
	}
	out := r.toDomain()
	return &out, nil
}
