package api

import (
	"net/http"

	"github.com/ashureev/confido/internal/analytics"
	"github.com/ashureev/confido/internal/identity"
)

// Dashboard serves GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reader.Dashboard(r.Context(), identity.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, d)
}

// History serves GET /api/sessions/history?q=&status=&period=&sort=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q, err := analytics.ParseHistoryQuery(qs.Get("q"), qs.Get("status"), qs.Get("period"), qs.Get("sort"))
	if err != nil {
		WriteError(w, err)
		return
	}
	records, err := h.reader.History(r.Context(), identity.ActorFromContext(r.Context()), q)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, records)
}

// Progress serves GET /api/progress.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	out, err := h.progress.Progress(r.Context(), identity.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, out)
}

// ListGoals serves GET /api/goals.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	out, err := h.progress.Goals(r.Context(), identity.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, out)
}

// CreateGoal serves POST /api/goals.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var in analytics.GoalInput
	if err := decode(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	g, err := h.progress.CreateGoal(r.Context(), identity.ActorFromContext(r.Context()), in)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, g)
}
