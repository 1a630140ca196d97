package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// Service is the part of the supervisor the HTTP API needs.
type Service interface {
	Handle(ctx context.Context, req furrow.Request) furrow.Response
	Health(ctx context.Context) furrow.HealthReport
	Conversation(ctx context.Context, id, userID string) (domain.ConversationContext, error)
	DeleteConversation(ctx context.Context, id, userID string) error
	Conversations(ctx context.Context, userID string, limit, offset int) (furrow.ConversationPage, error)
}

// Server maps HTTP requests onto a Service.
type Server struct {
	svc     Service
	streams *StreamManager
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithStreams enables GET /conversations/{id}/events. Register the manager's
// Hooks on the supervisor so there is something to stream.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the supervisor.
func NewHandler(svc Service, opts ...Option) http.Handler {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/chat", s.Chat)
	r.Get("/health", s.GetHealth)
	r.Get("/workers", s.GetWorkers)
	r.Get("/conversations", s.ListConversations)
	r.Get("/conversations/{id}", s.GetConversation)
	r.Delete("/conversations/{id}", s.DeleteConversation)
	if s.streams != nil {
		r.Get("/conversations/{id}/events", s.SubscribeEvents)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body furrow.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.logger.Warn("chat: invalid request body", "err", err)
		writeJSON(w, http.StatusBadRequest, furrow.Response{
			ErrorKind: domain.ErrorInvalidRequest,
			Error:     "Invalid request body.",
		})
		return
	}
	if body.UserID == "" {
		body.UserID = r.Header.Get("X-User-ID")
	}

	resp := s.svc.Handle(r.Context(), body)
	if !resp.Success {
		s.logger.Info("chat: turn failed",
			"conversation_id", resp.ConversationID,
			"kind", resp.ErrorKind,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeJSON(w, statusFor(resp), resp)
}

func statusFor(resp furrow.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.ErrorKind {
	case domain.ErrorInvalidRequest:
		if strings.HasPrefix(resp.Error, "Access denied") {
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	case domain.ErrorNoWorkerAvailable:
		return http.StatusServiceUnavailable
	case domain.ErrorRedirectLoopExceeded:
		return http.StatusUnprocessableEntity
	case domain.ErrorCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetHealth handles GET /health. It answers 503 while no worker is healthy.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health(r.Context())
	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// GetWorkers handles GET /workers.
func (s *Server) GetWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health(r.Context()).Workers)
}

// ListConversations handles GET /conversations?user_id=&limit=&offset=.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be an integer."})
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "offset must be an integer."})
		return
	}
	page, err := s.svc.Conversations(r.Context(), owner, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetConversation handles GET /conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	conv, err := s.svc.Conversation(r.Context(), chi.URLParam(r, "id"), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation handles DELETE /conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteConversation(r.Context(), chi.URLParam(r, "id"), owner); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /conversations/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Conversation(r.Context(), id, owner); errors.Is(err, domain.ErrAccessDenied) {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Conversation not found."})
	case errors.Is(err, domain.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Access denied to conversation."})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal error."})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func userID(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return r.Header.Get("X-User-ID")
}

// requireUser answers 400 when the request carries no user id.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "user_id is required."})
		return "", false
	}
	return id, true
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
