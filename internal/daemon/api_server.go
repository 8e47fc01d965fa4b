package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"doorman/internal/config"
	"doorman/internal/decision"
	"doorman/internal/logging"
)

// apiServer exposes the remote-control HTTP surface: status, record
// listing, and the inbound decision endpoint.
type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

type recordDTO struct {
	IdentityKey string     `json:"identity_key"`
	DisplayName string     `json:"display_name"`
	Status      string     `json:"status"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	Notified    bool       `json:"notified"`
}

func toRecordDTO(record *decision.Record) recordDTO {
	return recordDTO{
		IdentityKey: record.IdentityKey,
		DisplayName: record.DisplayName,
		Status:      string(record.Status),
		FirstSeenAt: record.FirstSeenAt,
		DecidedAt:   record.DecidedAt,
		ExecutedAt:  record.ExecutedAt,
		Notified:    record.Notified,
	}
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/requests", authMiddleware(srv.token, srv.handleRequests))
	mux.HandleFunc("/api/decisions", authMiddleware(srv.token, srv.handleDecisions))
	mux.HandleFunc("/api/pause", authMiddleware(srv.token, srv.handlePause))
	mux.HandleFunc("/api/resume", authMiddleware(srv.token, srv.handleResume))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "api"))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())

	payload := map[string]any{
		"running": status.Running,
		"paused":  status.Paused,
		"pid":     status.PID,
		"db_path": status.DBPath,
		"records": map[string]int{
			"total":      status.Records.Total,
			"pending":    status.Records.Pending,
			"actionable": status.Records.Actionable,
			"executed":   status.Records.Executed,
		},
	}
	if status.LastError != "" {
		payload["last_error"] = status.LastError
	}
	if status.LastCycle != nil {
		payload["last_cycle"] = map[string]any{
			"cycle_id":   status.LastCycle.CycleID,
			"started_at": status.LastCycle.StartedAt,
			"duration":   status.LastCycle.Duration.String(),
			"seen":       status.LastCycle.Seen,
			"notified":   status.LastCycle.Notified,
			"executed":   status.LastCycle.Executed,
			"skipped":    status.LastCycle.Skipped,
			"errors":     status.LastCycle.Errors,
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var statuses []decision.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := decision.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", part))
				return
			}
			statuses = append(statuses, status)
		}
	}

	records, err := s.daemon.ListRecords(r.Context(), statuses)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]recordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toRecordDTO(record))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"requests": dtos})
}

func (s *apiServer) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		IdentityKey string `json:"identity_key"`
		Decision    string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := s.daemon.Decide(r.Context(), payload.IdentityKey, payload.Decision)
	if err != nil {
		if errors.Is(err, decision.ErrInvalidTransition) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toRecordDTO(record))
}

func (s *apiServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.daemon.Pause()
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *apiServer) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.daemon.Resume()
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("encode response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
