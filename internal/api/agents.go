package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/agent"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/identity"
)

// ListAgents serves GET /api/agents?type=mine|public|featured&limit=.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	filter, err := agent.ParseListFilter(r.URL.Query().Get("type"))
	if err != nil {
		WriteError(w, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}

	agents, err := h.agents.List(r.Context(), identity.ActorFromContext(r.Context()), filter, limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, agents)
}

// CreateAgent serves POST /api/agents.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var in agent.Input
	if err := decode(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	a, err := h.agents.Create(r.Context(), identity.ActorFromContext(r.Context()), in)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, a)
}

// GetAgent serves GET /api/agents/{id}. Private agents of other users are
// reported as missing.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.agents.Get(r.Context(), identity.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, access.ConcealPrivate(err, "agent"))
		return
	}
	JSON(w, http.StatusOK, a)
}

// UpdateAgent serves PUT /api/agents/{id}.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var in agent.Input
	if err := decode(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	a, err := h.agents.Update(r.Context(), identity.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		WriteError(w, access.ConcealPrivate(err, "agent"))
		return
	}
	JSON(w, http.StatusOK, a)
}

// DeleteAgent serves DELETE /api/agents/{id}.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Delete(r.Context(), identity.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		WriteError(w, access.ConcealPrivate(err, "agent"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveAgent serves GET /api/agents/resolve?ref=, matching ref against the
// featured personas followed by the caller's own agents.
func (h *Handler) ResolveAgent(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		WriteError(w, apperr.Validation("ref is required"))
		return
	}
	a, ok, err := h.agents.Resolve(r.Context(), identity.ActorFromContext(r.Context()), ref)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !ok {
		WriteError(w, apperr.NotFound("agent"))
		return
	}
	JSON(w, http.StatusOK, a)
}
