package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/mosaic"
	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// HostFactory builds the host of a session with the shell's applications declared,
// using sessionID as its session ID (mosaic.WithSessionID).
// Hosts should be given the manager's store (mosaic.WithStore) so that every
// navigation is persisted and a session can be resumed by another replica.
type HostFactory func(ctx context.Context, sessionID string) (*mosaic.Host, error)

// StateResponse describes a session after a request.
type StateResponse struct {
	SessionID string         `json:"session_id"`
	URL       string         `json:"url"`
	Mounted   string         `json:"mounted,omitempty"`
	History   []string       `json:"history"`
	Outcome   domain.Outcome `json:"outcome,omitempty"`
	Unhandled bool           `json:"unhandled,omitempty"`
}

// NavigateRequest is the body of POST /sessions/{id}/navigate.
type NavigateRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Phase     string   `json:"phase,omitempty"`
	Locations []string `json:"locations,omitempty"`
}

// Server keeps the live host of every session handled by this process.
type Server struct {
	sessions *session.Manager
	factory  HostFactory
	logger   *slog.Logger

	mu    sync.Mutex
	hosts map[string]*mosaic.Host
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server.
func NewServer(sessions *session.Manager, factory HostFactory, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		factory:  factory,
		logger:   logging.NewNop(),
		hosts:    make(map[string]*mosaic.Host),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler returns the shell API router.
func NewHandler(sessions *session.Manager, factory HostFactory, opts ...Option) http.Handler {
	return NewServer(sessions, factory, opts...).Routes()
}

// Routes mounts the shell API on a chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/sessions", s.create)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.state)
		r.Delete("/", s.remove)
		r.Post("/navigate", s.navigate)
		r.Post("/back", s.back)
		r.Get("/document", s.document)
		r.Post("/applications/{location}/update", s.update)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	var resp StateResponse
	err := s.sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		host, err := s.factory(ctx, id)
		if err != nil {
			return err
		}
		if err := s.sessions.Store().Save(ctx, id, host.Snapshot()); err != nil {
			return err
		}
		s.mu.Lock()
		s.hosts[id] = host
		s.mu.Unlock()
		resp = stateOf(host, "")
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("session created", "session", id, "url", resp.URL)
	writeJSON(w, http.StatusCreated, resp)
}

// withHost runs fn on the session's host under the session lock. A session this
// process has not seen is resumed from its snapshot.
func (s *Server) withHost(r *http.Request, fn func(ctx context.Context, host *mosaic.Host) error) error {
	id := chi.URLParam(r, "id")
	return s.sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		s.mu.Lock()
		host, ok := s.hosts[id]
		s.mu.Unlock()

		if !ok {
			if _, err := s.sessions.Store().Load(ctx, id); err != nil {
				return err
			}
			var err error
			host, err = s.factory(ctx, id)
			if err != nil {
				return err
			}
			if _, err := host.Resume(ctx); err != nil {
				var te *domain.TransitionError
				var ce *domain.ConflictError
				if !errors.As(err, &te) && !errors.As(err, &ce) {
					return err
				}
				s.logger.Warn("session resumed with an error", "session", id, "err", err)
			}
			s.mu.Lock()
			s.hosts[id] = host
			s.mu.Unlock()
		}
		return fn(ctx, host)
	})
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	err := s.withHost(r, func(_ context.Context, host *mosaic.Host) error {
		resp = stateOf(host, "")
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		s.mu.Lock()
		delete(s.hosts, id)
		s.mu.Unlock()
		return s.sessions.Store().Delete(ctx, id)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var body NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "request body must be {\"url\": \"...\"}"})
		return
	}

	var resp StateResponse
	err := s.withHost(r, func(ctx context.Context, host *mosaic.Host) error {
		outcome, err := host.Navigate(ctx, body.URL)
		if err != nil {
			return err
		}
		resp = stateOf(host, outcome)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	err := s.withHost(r, func(ctx context.Context, host *mosaic.Host) error {
		outcome, err := host.Back(ctx)
		if err != nil {
			return err
		}
		resp = stateOf(host, outcome)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.withHost(r, func(_ context.Context, host *mosaic.Host) error {
		return host.Render(&buf)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	var resp StateResponse
	err := s.withHost(r, func(ctx context.Context, host *mosaic.Host) error {
		if err := host.UpdateApplicationSourceCode(ctx, location); err != nil {
			return err
		}
		resp = stateOf(host, "")
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("application source updated", "session", chi.URLParam(r, "id"), "app", location)
	writeJSON(w, http.StatusOK, resp)
}

func stateOf(host *mosaic.Host, outcome domain.Outcome) StateResponse {
	snap := host.Snapshot()
	return StateResponse{
		SessionID: snap.SessionID,
		URL:       snap.URL,
		Mounted:   snap.Mounted,
		History:   snap.History,
		Outcome:   outcome,
		Unhandled: outcome == domain.OutcomeUnhandled,
	}
}

// fail maps an error to a status: 404 unknown session or application, 409
// conflicting owners or an application never loaded, 502 failed transition,
// 400 nothing to go back to, 500 otherwise.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	var transition *domain.TransitionError

	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, domain.ErrApplicationNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrApplicationNotLoaded):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Locations: conflict.Locations})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), Phase: string(transition.Phase)})
	case errors.Is(err, mosaic.ErrNoHistory):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
