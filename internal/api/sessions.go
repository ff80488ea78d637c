package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/identity"
	"github.com/ashureev/confido/internal/session"
	"github.com/ashureev/confido/internal/store"
)

// ListSessions serves GET /api/sessions?limit=&status=.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	f := store.SessionFilter{Limit: limit}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseStatus(raw)
		if !ok {
			WriteError(w, apperr.Newf(apperr.KindValidation, "unknown status %q", raw))
			return
		}
		f.Status = st
	}

	records, err := h.reader.Sessions(r.Context(), identity.ActorFromContext(r.Context()), f)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, records)
}

// CreateSession serves POST /api/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), identity.ActorFromContext(r.Context()), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, sess)
}

type startRequest struct {
	Agent string `json:"agent"`
	Title string `json:"title"`
}

// StartSession serves POST /api/sessions/start. The agent reference is
// resolved against the caller's candidates before the session opens.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Agent) == "" {
		WriteError(w, apperr.Validation("agent is required"))
		return
	}

	ctx := r.Context()
	actor := identity.ActorFromContext(ctx)
	a, ok, err := h.agents.Resolve(ctx, actor, req.Agent)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !ok {
		slog.Info("no agent matched reference", "user_id", actor.UserID, "ref", req.Agent)
		WriteError(w, apperr.NotFound("agent"))
		return
	}

	sess, err := h.sessions.Start(ctx, actor, a, req.Title)
	if err != nil {
		WriteError(w, access.ConcealPrivate(err, "agent"))
		return
	}
	JSON(w, http.StatusCreated, map[string]any{
		"session": sess,
		"agent":   a,
	})
}

// GetSession serves GET /api/sessions/{id} with analytics, summary and
// agent joined.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reader.Record(r.Context(), identity.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, access.ConcealPrivate(err, "session"))
		return
	}
	JSON(w, http.StatusOK, rec)
}

// UpdateSession serves PATCH /api/sessions/{id}.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var p session.Patch
	if err := decode(r, &p); err != nil {
		WriteError(w, err)
		return
	}
	sess, err := h.sessions.Update(r.Context(), identity.ActorFromContext(r.Context()), chi.URLParam(r, "id"), p)
	if err != nil {
		WriteError(w, access.ConcealPrivate(err, "session"))
		return
	}
	JSON(w, http.StatusOK, sess)
}

type completeRequest struct {
	DurationSeconds *int `json:"duration_seconds"`
}

// CompleteSession serves POST /api/sessions/{id}/complete.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.DurationSeconds == nil {
		WriteError(w, apperr.Validation("duration_seconds is required"))
		return
	}
	sess, err := h.sessions.Complete(r.Context(), identity.ActorFromContext(r.Context()), chi.URLParam(r, "id"), *req.DurationSeconds)
	if err != nil {
		WriteError(w, access.ConcealPrivate(err, "session"))
		return
	}
	JSON(w, http.StatusOK, sess)
}
