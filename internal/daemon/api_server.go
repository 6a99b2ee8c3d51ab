package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"scrivener/internal/config"
	"scrivener/internal/document"
	"scrivener/internal/logging"
	"scrivener/internal/queue"
	"scrivener/internal/task"
)

// apiServer exposes the HTTP control surface: enqueue endpoints, status
// lookup, and the admission-state admin endpoint. Enqueueing is synchronous;
// processing is asynchronous, so every enqueue returns the task envelope the
// client can poll.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Route("/v1", func(r chi.Router) {
		r.Get("/test", srv.handleTest)
		r.Post("/process-scraped-doc", srv.handleProcessScrapedDoc)
		r.Post("/process-existing-document", srv.handleProcessExistingDocument)
		r.Get("/status/{task_id}", srv.handleStatus)
		r.Post("/dangerous/set-daemon-state", srv.handleSetDaemonState)
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, empty before start.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scrapedDocRequest is a ScrapeRequest plus the envelope fields the caller
// may set.
type scrapedDocRequest struct {
	task.ScrapeRequest
	Priority    *bool  `json:"priority,omitempty"`
	Interaction string `json:"database_interaction,omitempty"`
}

func (s *apiServer) handleProcessScrapedDoc(w http.ResponseWriter, r *http.Request) {
	var req scrapedDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	interaction := task.InteractInsert
	if req.Interaction != "" {
		parsed, ok := task.ParseInteraction(req.Interaction)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "unknown database_interaction "+req.Interaction)
			return
		}
		interaction = parsed
	}
	priority := false
	if req.Priority != nil {
		priority = *req.Priority
	}

	t := task.NewScrapeIngest(req.ScrapeRequest, priority, interaction, s.daemon.cfg.Daemon.StatusURLBase)
	if err := s.daemon.store.Push(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "enqueue failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// existingDocRequest is a DocumentRecord plus the envelope fields the caller
// may set.
type existingDocRequest struct {
	document.Record
	Priority    *bool  `json:"priority,omitempty"`
	Interaction string `json:"database_interaction,omitempty"`
}

func (s *apiServer) handleProcessExistingDocument(w http.ResponseWriter, r *http.Request) {
	var req existingDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	interaction := task.InteractUpdate
	if req.Interaction != "" {
		parsed, ok := task.ParseInteraction(req.Interaction)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "unknown database_interaction "+req.Interaction)
			return
		}
		interaction = parsed
	}
	priority := false
	if req.Priority != nil {
		priority = *req.Priority
	}

	t := task.NewProcessDocument(req.Record, priority, interaction, s.daemon.cfg.Daemon.StatusURLBase)
	if err := s.daemon.store.Push(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "enqueue failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "task_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	t, err := s.daemon.store.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "no task with id "+id.String())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleSetDaemonState merges a partial admission state into the stored one.
// Nil fields keep their current values; the merged state must be fully
// defined and valid or nothing is written.
func (s *apiServer) handleSetDaemonState(w http.ResponseWriter, r *http.Request) {
	var patch queue.DaemonState
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	current, err := s.daemon.store.LoadDaemonState(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if current == nil {
		defaults := queue.DefaultDaemonState(s.daemon.cfg.Daemon.MaxConcurrentTasks)
		current = &defaults
	}

	merged := current.Merge(patch)
	if err := merged.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.daemon.store.SaveDaemonState(r.Context(), merged); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
