// Package api serves computed snapshots and run status over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// Status describes the most recent scheduled run.
type Status struct {
	RunID      string    `json:"run_id,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Rows       int       `json:"rows"`
	Runs       int       `json:"runs"`
	LastError  string    `json:"last_error,omitempty"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RPS          int // requests per second per client
	Burst        int
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	store      storage.SnapshotStore
	metrics    http.Handler
	status     func() Status
	logger     zerolog.Logger
}

// NewServer creates a new API server instance. metrics may be nil.
func NewServer(cfg ServerConfig, store storage.SnapshotStore, metrics http.Handler, status func() Status, logger zerolog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		store:   store,
		metrics: metrics,
		status:  status,
		logger:  logger,
	}

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(RateLimitMiddleware(NewRateLimiter(cfg.RPS, cfg.Burst)))
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshots/{date}", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/snapshots/{date}/{account}/{server}/{instrument}", s.handleGetPosition).Methods("GET")
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.status()
	code := http.StatusOK
	if st.Runs == 0 {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, st)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, mux.Vars(r)["date"])
	if !ok {
		return
	}

	rows, err := s.store.GetByDate(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("dt_report", date).Msg("Snapshot read failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to read snapshot")
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "no snapshot for "+date)
		return
	}

	out := make([]RowResponse, len(rows))
	for i, row := range rows {
		out[i] = toResponse(row)
	}
	respondJSON(w, http.StatusOK, SnapshotResponse{DtReport: date, Count: len(out), Rows: out})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	date, ok := parseDate(w, vars["date"])
	if !ok {
		return
	}

	row, err := s.store.Lookup(r.Context(), date, vars["account"], vars["server"], vars["instrument"])
	if errors.Is(err, storage.ErrNotFound) {
		s.respondMissingPosition(w, r, date)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("dt_report", date).Msg("Snapshot lookup failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to read snapshot")
		return
	}
	respondJSON(w, http.StatusOK, toResponse(*row))
}

// respondMissingPosition tells an unknown report date apart from an
// unknown position on a known date.
func (s *Server) respondMissingPosition(w http.ResponseWriter, r *http.Request, date string) {
	rows, err := s.store.GetByDate(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("dt_report", date).Msg("Snapshot read failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to read snapshot")
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "no snapshot for "+date)
		return
	}
	respondError(w, http.StatusNotFound, ErrCodePositionNotFound, "no row for position on "+date)
}

func parseDate(w http.ResponseWriter, s string) (string, bool) {
	d, err := calendar.ParseDate(s)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "date must be YYYY-MM-DD")
		return "", false
	}
	return d.String(), true
}

// SnapshotResponse is the body of GET /api/snapshots/{date}.
type SnapshotResponse struct {
	DtReport string        `json:"dt_report"`
	Count    int           `json:"count"`
	Rows     []RowResponse `json:"rows"`
}

// RowResponse is one snapshot row on the wire.
type RowResponse struct {
	ID               int64   `json:"id"`
	DtReport         string  `json:"dt_report"`
	AccountID        string  `json:"account_id"`
	ServerID         string  `json:"server_id"`
	Instrument       string  `json:"instrument"`
	Currency         string  `json:"currency"`
	Trailing7dVolume float64 `json:"trailing_7d_volume"`
	AllTimeVolume    float64 `json:"all_time_volume"`
	VolumeRank7d     int     `json:"volume_rank_7d"`
	TradeCountRank7d int     `json:"trade_count_rank_7d"`
	FixedMonthVolume float64 `json:"fixed_month_volume"`
	FirstTradeTime   *string `json:"first_trade_time"`
	RowNumber        int64   `json:"row_number"`
}

func toResponse(r domain.SnapshotRow) RowResponse {
	out := RowResponse{
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
		s := r.FirstTradeTime.UTC().Format(time.RFC3339)
		out.FirstTradeTime = &s
	}
	return out
}
