package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/service"
)

// Runner runs analyses with a bounded wait
type Runner interface {
	RefreshServer(ctx context.Context, serverID string) service.Outcome[*domain.ServerStats]
	GenerateSummary(ctx context.Context, channelID string) service.Outcome[*domain.ChannelSummary]
}

// SummaryReader reads the latest channel summary, placeholder included
type SummaryReader interface {
	LatestSummary(ctx context.Context, channelID string) (*domain.ChannelSummary, error)
}

// StatsReader reads stored server stats
type StatsReader interface {
	Latest(ctx context.Context, serverID string) (*domain.ServerStats, error)
	History(ctx context.Context, serverID string, limit int) ([]*domain.ServerStats, error)
}

// HealthChecker checks the upstream platform
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps contains the API dependencies
type Deps struct {
	Runner    Runner
	Summaries SummaryReader
	Stats     StatsReader
	Messages  repo.MessageRepo
	States    repo.MonitorStateRepo
	Servers   repo.ServerRepo
	Settings  repo.SettingsRepo
	Health    HealthChecker
}

// Server provides the HTTP API for on-demand analyses and stored results
type Server struct {
	deps   Deps
	addr   string
	server *http.Server
	logger zerolog.Logger
}

// ProcessingResponse is returned with 202 while a job continues in the background
type ProcessingResponse struct {
	Status            string `json:"status"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// ErrorResponse is returned with 4xx/5xx
type ErrorResponse struct {
	Error     string `json:"error"`
	Operation string `json:"operation,omitempty"`
}

// NewServer creates a new API server
func NewServer(deps Deps, addr string) *Server {
	return &Server{
		deps:   deps,
		addr:   addr,
		logger: log.With().Str("component", "api").Logger(),
	}
}

// Handler returns the request router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// On-demand analyses
	mux.HandleFunc("POST /api/servers/{id}/refresh", s.handleRefreshServer)
	mux.HandleFunc("POST /api/channels/{id}/summary", s.handleGenerateSummary)

	// Stored results
	mux.HandleFunc("GET /api/servers", s.handleListServers)
	mux.HandleFunc("GET /api/servers/{id}/channels", s.handleListChannels)
	mux.HandleFunc("GET /api/servers/{id}/stats", s.handleLatestStats)
	mux.HandleFunc("GET /api/servers/{id}/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/channels/{id}/summary", s.handleLatestSummary)
	mux.HandleFunc("GET /api/channels/{id}/messages", s.handleMessages)
	mux.HandleFunc("GET /api/monitor/states", s.handleMonitorStates)

	// Settings
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Analysis Handlers ============

func (s *Server) handleRefreshServer(w http.ResponseWriter, r *http.Request) {
	serverID := r.PathValue("id")
	out := s.deps.Runner.RefreshServer(r.Context(), serverID)
	if out.Err != nil {
		s.writeError(w, "refresh_server", out.Err)
		return
	}
	if out.Pending {
		s.writeProcessing(w, out.RetryAfter)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "completed",
		"stats":  out.Value,
	})
}

func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")
	out := s.deps.Runner.GenerateSummary(r.Context(), channelID)
	if out.Err != nil {
		s.writeError(w, "generate_summary", out.Err)
		return
	}
	if out.Pending {
		s.writeProcessing(w, out.RetryAfter)
		return
	}

	// No activity in the window of a regular channel: nothing was written
	summary := out.Value
	if summary == nil {
		summary = domain.PlaceholderSummary(channelID, time.Now())
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "completed",
		"summary": summary,
	})
}

// ============ Read Handlers ============

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.deps.Servers.ListServers(r.Context())
	if err != nil {
		s.writeError(w, "list_servers", err)
		return
	}
	if servers == nil {
		servers = []*domain.Server{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"servers": servers})
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.deps.Servers.ListChannels(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "list_channels", err)
		return
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

func (s *Server) handleLatestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Stats.Latest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "latest_stats", err)
		return
	}
	if stats == nil {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no stats yet", Operation: "latest_stats"})
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := s.deps.Stats.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, "stats_history", err)
		return
	}
	if history == nil {
		history = []*domain.ServerStats{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Summaries.LatestSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "latest_summary", err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid window", Operation: "list_messages"})
			return
		}
		window = parsed
	}

	since := time.Now().Add(-window)
	msgs, err := s.deps.Messages.List(r.Context(), r.PathValue("id"), since)
	if err != nil {
		s.writeError(w, "list_messages", err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleMonitorStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.deps.States.ListAll(r.Context())
	if err != nil {
		s.writeError(w, "monitor_states", err)
		return
	}
	if states == nil {
		states = []*domain.ChannelMonitorState{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"states": states})
}

// ============ Settings Handlers ============

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, "get_settings", err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, "update_settings", err)
		return
	}
	// Decode over the current settings so omitted fields are kept
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Operation: "update_settings"})
		return
	}
	settings = settings.Normalize()
	if err := s.deps.Settings.Save(r.Context(), settings); err != nil {
		s.writeError(w, "update_settings", err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.HealthCheck(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeProcessing(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter / time.Second)
	if secs <= 0 {
		secs = int(service.DefaultRetryAfter / time.Second)
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	s.writeJSON(w, http.StatusAccepted, ProcessingResponse{Status: "processing", RetryAfterSeconds: secs})
}

func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrServerNotFound) || errors.Is(err, domain.ErrChannelNotFound) {
		status = http.StatusNotFound
	} else {
		s.logger.Error().Err(err).Str("operation", operation).Msg("Request failed")
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Operation: operation})
}
