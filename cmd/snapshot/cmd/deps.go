package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"trade-snapshot-lab/internal/config"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/orchestrator"
	"trade-snapshot-lab/internal/pipeline"
	"trade-snapshot-lab/internal/reporting"
	"trade-snapshot-lab/internal/storage"
	chstore "trade-snapshot-lab/internal/storage/clickhouse"
	"trade-snapshot-lab/internal/storage/memory"
	pgstore "trade-snapshot-lab/internal/storage/postgres"
	redisstore "trade-snapshot-lab/internal/storage/redis"
)

// Sink names accepted by --sink.
const (
	sinkCSV        = "csv"
	sinkXLSX       = "xlsx"
	sinkClickHouse = "clickhouse"
	sinkRedis      = "redis"
)

// cleanups closes resources in reverse order of acquisition.
type cleanups []func()

func (c *cleanups) add(f func()) { *c = append(*c, f) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// openSource returns the ledger source: the demo fixtures in memory, or the
// Postgres users/trades tables.
func openSource(ctx context.Context, cfg *config.Config, useFixtures bool, cl *cleanups) (storage.LedgerSource, error) {
	if useFixtures {
		accounts := memory.NewAccountStore()
		trades := memory.NewTradeStore()
		if err := pipeline.LoadFixtures(ctx, accounts, trades); err != nil {
			return nil, err
		}
		log.Info().Msg("Using in-memory demo ledger")
		return memory.NewLedgerSource(accounts, trades), nil
	}

	pool, err := openPostgres(ctx, cfg, cl)
	if err != nil {
		return nil, err
	}
	return pgstore.NewLedgerSource(pool), nil
}

func openPostgres(ctx context.Context, cfg *config.Config, cl *cleanups) (*pgstore.Pool, error) {
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("%w: SNAPSHOT_POSTGRES_DSN or --postgres-dsn is required (or use --use-fixtures)",
			domain.ErrConfiguration)
	}
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	cl.add(pool.Close)
	log.Info().Int32("max_conns", cfg.Postgres.MaxConns).Msg("Connected to PostgreSQL")
	return pool, nil
}

func openClickHouse(ctx context.Context, cfg *config.Config, cl *cleanups) (*chstore.Conn, error) {
	if cfg.ClickHouse.DSN == "" {
		return nil, fmt.Errorf("%w: SNAPSHOT_CLICKHOUSE_DSN is required for the clickhouse sink", domain.ErrConfiguration)
	}
	conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	cl.add(func() { conn.Close() })
	log.Info().Msg("Connected to ClickHouse")
	return conn, nil
}

func openRedis(ctx context.Context, cfg *config.Config, cl *cleanups) (*redisstore.SnapshotStore, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("%w: SNAPSHOT_REDIS_ADDR is required for the redis sink", domain.ErrConfiguration)
	}
	store, err := redisstore.NewSnapshotStore(ctx, redisstore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		TTL:      cfg.Redis.TTL,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, err
	}
	cl.add(func() { store.Close() })
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	return store, nil
}

// openSinks resolves sink names into destinations.
func openSinks(ctx context.Context, cfg *config.Config, names []string, outputDir string, cl *cleanups) ([]orchestrator.Sink, error) {
	sinks := make([]orchestrator.Sink, 0, len(names))
	for _, name := range names {
		switch name {
		case sinkCSV, sinkXLSX:
			f, err := reporting.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, orchestrator.Sink{Name: name, SnapshotSink: reporting.NewFileSink(outputDir, f)})
		case sinkClickHouse:
			conn, err := openClickHouse(ctx, cfg, cl)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, orchestrator.Sink{Name: name, SnapshotSink: chstore.NewSnapshotStore(conn)})
		case sinkRedis:
			store, err := openRedis(ctx, cfg, cl)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, orchestrator.Sink{Name: name, SnapshotSink: store})
		default:
			return nil, fmt.Errorf("%w: unknown sink %q (csv, xlsx, clickhouse, redis)", domain.ErrConfiguration, name)
		}
	}
	return sinks, nil
}

// openStore returns a readable snapshot store by name.
func openStore(ctx context.Context, cfg *config.Config, name string, cl *cleanups) (storage.SnapshotStore, error) {
	switch name {
	case "memory":
		return memory.NewSnapshotStore(), nil
	case sinkRedis:
		return openRedis(ctx, cfg, cl)
	case sinkClickHouse:
		conn, err := openClickHouse(ctx, cfg, cl)
		if err != nil {
			return nil, err
		}
		return chstore.NewSnapshotStore(conn), nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q (memory, redis, clickhouse)", domain.ErrConfiguration, name)
	}
}
