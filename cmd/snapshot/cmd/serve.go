package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trade-snapshot-lab/internal/api"
	"trade-snapshot-lab/internal/observability"
	"trade-snapshot-lab/internal/orchestrator"
	"trade-snapshot-lab/internal/snapshot"
)

var (
	serveUseFixtures bool
	serveStore       string
	serveAddr        string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run snapshots on a schedule and serve them over HTTP",
	Long: `Recomputes the snapshot every SNAPSHOT_SERVER_INTERVAL into an in-memory
or Redis store and serves it:

  GET /health
  GET /metrics
  GET /api/snapshots/{date}
  GET /api/snapshots/{date}/{account}/{server}/{instrument}`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.BoolVar(&serveUseFixtures, "use-fixtures", false, "use the in-memory demo ledger instead of PostgreSQL")
	f.StringVar(&serveStore, "store", "memory", "snapshot store: memory or redis")
	f.StringVar(&serveAddr, "addr", "", "listen address (default SNAPSHOT_SERVER_ADDR)")
}

// runStatus tracks scheduled runs for /health.
type runStatus struct {
	mu sync.Mutex
	st api.Status
}

func (s *runStatus) get() api.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *runStatus) record(res *orchestrator.RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Runs++
	s.st.FinishedAt = time.Now().UTC()
	if err != nil {
		s.st.LastError = err.Error()
		return
	}
	s.st.LastError = ""
	s.st.RunID = res.RunID
	s.st.Rows = len(res.Rows)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appCfg

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	window, err := cfg.Window()
	if err != nil {
		return err
	}
	engine, err := snapshot.NewEngine(window)
	if err != nil {
		return err
	}

	var cl cleanups
	defer cl.run()

	source, err := openSource(ctx, cfg, serveUseFixtures, &cl)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, serveStore, &cl)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics("")
	orch := orchestrator.New(orchestrator.Options{
		Source:  source,
		Engine:  engine,
		Sinks:   []orchestrator.Sink{{Name: serveStore, SnapshotSink: store}},
		Metrics: metrics,
		Logger:  log.Logger,
	})

	status := &runStatus{}
	server := api.NewServer(api.ServerConfig{
		Addr:         addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		RPS:          cfg.Server.RPS,
		Burst:        cfg.Server.Burst,
	}, store, metrics.Handler(), status.get, log.Logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down API server")
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Server.Interval)
		defer ticker.Stop()
		for {
			res, err := orch.Run(gctx)
			status.record(res, err)

			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	log.Info().
		Str("addr", addr).
		Str("store", serveStore).
		Dur("interval", cfg.Server.Interval).
		Msg("Snapshot server started")

	return g.Wait()
}
