// Package api exposes the daemon's HTTP surface: site CRUD, log history,
// and the capture session lifecycle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"sitelog/internal/capture"
	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/services"
	"sitelog/internal/sites"
	"sitelog/internal/store"
	logsync "sitelog/internal/sync"
	"sitelog/internal/transcription"
)

// Store is the persistence surface the API needs.
type Store interface {
	Health(ctx context.Context) error
	CreateSite(ctx context.Context, site sites.SiteContext) (*store.SiteRecord, error)
	GetSite(ctx context.Context, id int64) (*store.SiteRecord, error)
	ListSites(ctx context.Context, includeArchived bool) ([]*store.SiteRecord, error)
	UpdateSite(ctx context.Context, site sites.SiteContext) error
	ArchiveSite(ctx context.Context, id int64) error
	UnarchiveSite(ctx context.Context, id int64) error
	ListMetadata(ctx context.Context, siteID int64, limit int) ([]*store.LogMetadata, error)
	ClearMetadata(ctx context.Context, siteID int64) (int64, error)
	GetAccount(ctx context.Context) (*store.AccountRecord, error)
	PutAccount(ctx context.Context, record store.AccountRecord) error
}

// Server handles the daemon API.
type Server struct {
	store        Store
	manager      *capture.Manager
	notifier     notifications.Service
	destinations []logsync.Destination
	logger       *slog.Logger
	token        string
	mux          *http.ServeMux
}

// NewServer constructs the API server. An empty token disables authentication.
func NewServer(st Store, manager *capture.Manager, notifier notifications.Service, destinations []logsync.Destination, logger *slog.Logger, token string) *Server {
	s := &Server{
		store:        st,
		manager:      manager,
		notifier:     notifier,
		destinations: destinations,
		logger:       logging.NewComponentLogger(logger, "api"),
		token:        token,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	s.mux.HandleFunc("GET /api/sites", s.handleListSites)
	s.mux.HandleFunc("POST /api/sites", s.handleCreateSite)
	s.mux.HandleFunc("PUT /api/sites/{id}", s.handleUpdateSite)
	s.mux.HandleFunc("POST /api/sites/{id}/archive", s.handleArchiveSite)
	s.mux.HandleFunc("POST /api/sites/{id}/unarchive", s.handleUnarchiveSite)

	s.mux.HandleFunc("GET /api/logs", s.handleListLogs)
	s.mux.HandleFunc("DELETE /api/logs", s.handleClearLogs)

	s.mux.HandleFunc("GET /api/account", s.handleGetAccount)
	s.mux.HandleFunc("PUT /api/account", s.handlePutAccount)
	s.mux.HandleFunc("POST /api/account/downgrade", s.handleDowngradeAccount)

	s.mux.HandleFunc("POST /api/sessions", s.handleBeginSession)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDiscardSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/site", s.handleSelectSite)
	s.mux.HandleFunc("POST /api/sessions/{id}/text", s.handleSetText)
	s.mux.HandleFunc("POST /api/sessions/{id}/recording/start", s.handleStartRecording)
	s.mux.HandleFunc("POST /api/sessions/{id}/recording/data", s.handleRecordingData)
	s.mux.HandleFunc("POST /api/sessions/{id}/recording/finish", s.handleFinishRecording)
	s.mux.HandleFunc("POST /api/sessions/{id}/recording/cancel", s.handleCancelRecording)
	s.mux.HandleFunc("POST /api/sessions/{id}/audio", s.handleAttachAudio)
	s.mux.HandleFunc("POST /api/sessions/{id}/record", s.handleProcess)
	s.mux.HandleFunc("POST /api/sessions/{id}/edit", s.handleEditRecord)
	s.mux.HandleFunc("POST /api/sessions/{id}/start-over", s.handleStartOver)
	s.mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleSubmit)

	s.mux.HandleFunc("POST /api/test-notify", s.handleTestNotify)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.authMiddleware(s.mux))
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := services.Classify(err)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, capture.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateSite), errors.Is(err, store.ErrDuplicateMetadata):
		status = http.StatusConflict
	case errors.Is(err, capture.ErrBusy):
		status = http.StatusConflict
	case kind == services.KindEntitlement:
		status = http.StatusPaymentRequired
	case kind == services.KindValidation:
		status = http.StatusBadRequest
	case transcription.IsKind(err, transcription.KindEmptyInput),
		transcription.IsKind(err, transcription.KindTooLarge),
		transcription.IsKind(err, transcription.KindUnsupportedFormat):
		status = http.StatusBadRequest
	case kind == services.KindExternalService:
		status = http.StatusBadGateway
	}

	logging.WithContext(r.Context(), s.logger).Warn("request failed",
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
		logging.Error(err))
	s.writeJSON(w, status, errorResponse{Error: services.UserMessage(err), Kind: string(kind)})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*capture.Session, bool) {
	session, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return session, true
}

// destinationStatus summarizes one destination for /api/status.
type destinationStatus struct {
	Kind      string `json:"kind"`
	Connected bool   `json:"connected"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	storeHealthy := s.store.Health(r.Context()) == nil

	dests := make([]destinationStatus, 0, len(s.destinations))
	for _, dest := range s.destinations {
		dests = append(dests, destinationStatus{Kind: dest.Kind(), Connected: dest.Connected()})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"store_healthy": storeHealthy,
		"sessions":      len(s.manager.List()),
		"destinations":  dests,
	})
}
