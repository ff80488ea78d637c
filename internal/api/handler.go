// Package api provides HTTP handlers for the Confido API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/confido/internal/agent"
	"github.com/ashureev/confido/internal/analytics"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/identity"
	"github.com/ashureev/confido/internal/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the coaching API on top of the domain services.
type Handler struct {
	profiles identity.ProfileStore
	agents   *agent.Service
	sessions *session.Lifecycle
	reader   *analytics.Reader
	progress *analytics.Recorder
}

// NewHandler creates a new Handler with its service dependencies.
func NewHandler(profiles identity.ProfileStore, agents *agent.Service, sessions *session.Lifecycle, reader *analytics.Reader, progress *analytics.Recorder) *Handler {
	return &Handler{
		profiles: profiles,
		agents:   agents,
		sessions: sessions,
		reader:   reader,
		progress: progress,
	}
}

// RegisterRoutes registers every /api route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Get("/resolve", h.ResolveAgent)
			r.Get("/{id}", h.GetAgent)
			r.Put("/{id}", h.UpdateAgent)
			r.Delete("/{id}", h.DeleteAgent)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Post("/start", h.StartSession)
			r.Get("/history", h.History)
			r.Get("/{id}", h.GetSession)
			r.Patch("/{id}", h.UpdateSession)
			r.Post("/{id}/complete", h.CompleteSession)
		})

		r.Get("/dashboard", h.Dashboard)
		r.Get("/progress", h.Progress)
		r.Get("/goals", h.ListGoals)
		r.Post("/goals", h.CreateGoal)
	})
}

// GetMe returns the caller's profile.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := identity.ActorFromContext(r.Context())
	if !actor.Authenticated() {
		WriteError(w, apperr.ErrUnauthenticated)
		return
	}

	p, err := h.profiles.GetProfile(r.Context(), actor.UserID)
	if err != nil {
		slog.Error("get profile failed", "user_id", actor.UserID, "error", err)
		WriteError(w, apperr.Internal(err))
		return
	}
	if p == nil {
		WriteError(w, apperr.NotFound("profile"))
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"profile":      p,
		"display_name": p.DisplayName(),
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, kind apperr.Kind, message string) {
	JSON(w, status, map[string]string{"error": message, "kind": string(kind)})
}

// WriteError maps err onto its HTTP status. Internal causes are not exposed.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal error"
	}
	Error(w, kind.HTTPStatus(), kind, message)
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid JSON body", err)
	}
	return nil
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Newf(apperr.KindValidation, "%s must be a non-negative integer", name)
	}
	return n, nil
}
