// Package session implements the practice session state machine: creation,
// pause and resume on a caller-owned view, and the single completion write
// that persists elapsed duration.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/agent"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/store"
)

// Store is the persistence surface the lifecycle needs.
type Store interface {
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	CreateSession(ctx context.Context, s *domain.Session, incrementAgentID string) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	CompleteSession(ctx context.Context, id string, durationSeconds int, at time.Time) (bool, error)
	SetSessionStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (bool, error)
	TouchSession(ctx context.Context, id string, elapsedSeconds int, at time.Time) (bool, error)
	UpdateSessionDetails(ctx context.Context, id string, d store.SessionDetails, at time.Time) error
	ListStaleSessions(ctx context.Context, before time.Time, limit int) ([]domain.Session, error)
}

// CompletionHook runs after a session is persisted as completed. Hooks must
// not fail the completion; they log their own errors.
type CompletionHook func(ctx context.Context, s domain.Session)

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithCompletionHook registers fn to run after every completion.
func WithCompletionHook(fn CompletionHook) Option {
	return func(l *Lifecycle) { l.hooks = append(l.hooks, fn) }
}

// LiveCheck reports whether a session is currently driven by an open view.
type LiveCheck func(ownerID, sessionID string) bool

// WithLiveCheck makes the reconciler skip sessions for which fn reports an
// open view.
func WithLiveCheck(fn LiveCheck) Option {
	return func(l *Lifecycle) { l.live = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// Lifecycle owns every persisted session state change.
type Lifecycle struct {
	store Store
	now   func() time.Time
	hooks []CompletionHook
	live  LiveCheck
}

// NewLifecycle creates a lifecycle backed by st.
func NewLifecycle(st Store, opts ...Option) *Lifecycle {
	l := &Lifecycle{store: st, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateRequest describes a new session.
type CreateRequest struct {
	AgentType     string         `json:"agent_type"`
	CustomAgentID string         `json:"custom_agent_id"`
	Title         string         `json:"title"`
	Metadata      map[string]any `json:"session_metadata"`
}

// Create opens a session for an explicit agent type. When a custom agent is
// referenced it must be readable by the actor, and its usage count is
// incremented with the insert.
func (l *Lifecycle) Create(ctx context.Context, actor access.Actor, req CreateRequest) (*domain.Session, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	if strings.TrimSpace(req.AgentType) == "" {
		return nil, apperr.Validation("agent type is required")
	}
	agentType, ok := domain.ParseAgentType(req.AgentType)
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "unknown agent type %q", req.AgentType)
	}

	var linked *domain.Agent
	if req.CustomAgentID != "" {
		a, err := l.readableAgent(ctx, actor, req.CustomAgentID)
		if err != nil {
			return nil, err
		}
		linked = a
	} else if agentType == domain.AgentTypeCustom {
		return nil, apperr.Validation("custom sessions require custom_agent_id")
	}

	return l.open(ctx, actor, agentType, linked, req.Title, string(agentType), req.Metadata)
}

// Start opens a session on agent after checking the actor may read it.
// Featured system personas that serve a built-in category record that
// category; every other agent records custom.
func (l *Lifecycle) Start(ctx context.Context, actor access.Actor, a domain.Agent, title string) (*domain.Session, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	if err := access.Check(actor, access.AgentResource(a), access.Read); err != nil {
		return nil, err
	}
	return l.open(ctx, actor, agentTypeFor(a), &a, title, a.Name, nil)
}

// StartByID loads an agent and starts a session on it.
func (l *Lifecycle) StartByID(ctx context.Context, actor access.Actor, agentID, title string) (*domain.Session, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	a, err := l.readableAgent(ctx, actor, agentID)
	if err != nil {
		return nil, err
	}
	return l.open(ctx, actor, agentTypeFor(*a), a, title, a.Name, nil)
}

func agentTypeFor(a domain.Agent) domain.AgentType {
	if a.IsSystem() && a.IsFeatured {
		if c, ok := agent.CategoryForPersona(a.Name); ok {
			return c
		}
	}
	return domain.AgentTypeCustom
}

func (l *Lifecycle) readableAgent(ctx context.Context, actor access.Actor, id string) (*domain.Agent, error) {
	a, err := l.store.GetAgent(ctx, id)
	if err != nil {
		return nil, internal("get agent", err, "agent_id", id)
	}
	if a == nil {
		return nil, apperr.NotFound("agent")
	}
	if err := access.Check(actor, access.AgentResource(*a), access.Read); err != nil {
		return nil, access.ConcealPrivate(err, "agent")
	}
	return a, nil
}

func (l *Lifecycle) open(ctx context.Context, actor access.Actor, agentType domain.AgentType, a *domain.Agent, title, label string, metadata map[string]any) (*domain.Session, error) {
	now := l.now()
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultTitle(label, now)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	sess := &domain.Session{
		ID:        uuid.NewString(),
		OwnerID:   actor.UserID,
		AgentType: agentType,
		Title:     title,
		Status:    domain.StatusActive,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	incrementID := ""
	if a != nil {
		id := a.ID
		sess.CustomAgentID = &id
		incrementID = id
	}

	if err := l.store.CreateSession(ctx, sess, incrementID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("agent")
		}
		return nil, internal("create session", err, "user_id", actor.UserID)
	}
	slog.Info("session started",
		"session_id", sess.ID,
		"user_id", actor.UserID,
		"agent_type", sess.AgentType,
		"agent_id", incrementID)
	return sess, nil
}

// Get returns a session the actor owns.
func (l *Lifecycle) Get(ctx context.Context, actor access.Actor, id string) (*domain.Session, error) {
	sess, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.SessionResource(*sess), access.Read); err != nil {
		return nil, err
	}
	return sess, nil
}

// Complete persists the final duration and marks the session completed.
// Repeating a completion with the same duration returns the stored session;
// a different duration fails with InvalidStateTransition.
func (l *Lifecycle) Complete(ctx context.Context, actor access.Actor, id string, elapsedSeconds int) (*domain.Session, error) {
	if elapsedSeconds < 0 {
		return nil, apperr.Validation("duration_seconds must not be negative")
	}
	sess, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.SessionResource(*sess), access.Write); err != nil {
		return nil, err
	}
	return l.complete(ctx, sess, elapsedSeconds)
}

func (l *Lifecycle) complete(ctx context.Context, sess *domain.Session, elapsedSeconds int) (*domain.Session, error) {
	if sess.Status.Terminal() {
		return alreadyCompleted(sess, elapsedSeconds)
	}

	ok, err := l.store.CompleteSession(ctx, sess.ID, elapsedSeconds, l.now())
	if err != nil {
		return nil, internal("complete session", err, "session_id", sess.ID)
	}

	stored, err := l.load(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another completion.
		return alreadyCompleted(stored, elapsedSeconds)
	}

	slog.Info("session completed",
		"session_id", stored.ID,
		"user_id", stored.OwnerID,
		"duration_seconds", stored.DurationSeconds)
	for _, hook := range l.hooks {
		hook(ctx, *stored)
	}
	return stored, nil
}

func alreadyCompleted(sess *domain.Session, elapsedSeconds int) (*domain.Session, error) {
	if sess.DurationSeconds == elapsedSeconds {
		return sess, nil
	}
	return nil, apperr.Newf(apperr.KindInvalidTransition,
		"session already completed with duration %d", sess.DurationSeconds)
}

// SetStatus moves a session between active and paused. Completion goes
// through Complete.
func (l *Lifecycle) SetStatus(ctx context.Context, actor access.Actor, id string, to domain.Status) (*domain.Session, error) {
	sess, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.SessionResource(*sess), access.Write); err != nil {
		return nil, err
	}
	return l.setStatus(ctx, sess, to)
}

func (l *Lifecycle) setStatus(ctx context.Context, sess *domain.Session, to domain.Status) (*domain.Session, error) {
	if to.Terminal() {
		return nil, apperr.Validation("use complete to finish a session")
	}
	if sess.Status.Terminal() {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "cannot move a completed session to %s", to)
	}
	if sess.Status == to {
		return sess, nil
	}

	ok, err := l.store.SetSessionStatus(ctx, sess.ID, sess.Status, to, l.now())
	if err != nil {
		return nil, internal("set session status", err, "session_id", sess.ID)
	}
	if !ok {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "session is no longer %s", sess.Status)
	}
	return l.load(ctx, sess.ID)
}

// Patch is a partial session update. Status and duration changes are routed
// through the state machine; a duration may only be written together with
// status=completed.
type Patch struct {
	Status          *string        `json:"status"`
	DurationSeconds *int           `json:"duration_seconds"`
	Title           *string        `json:"title"`
	Metadata        map[string]any `json:"session_metadata"`
}

// Update applies a partial update to a session the actor owns.
func (l *Lifecycle) Update(ctx context.Context, actor access.Actor, id string, p Patch) (*domain.Session, error) {
	sess, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.SessionResource(*sess), access.Write); err != nil {
		return nil, err
	}

	var target domain.Status
	if p.Status != nil {
		st, ok := domain.ParseStatus(*p.Status)
		if !ok {
			return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", *p.Status)
		}
		target = st
	}
	if p.DurationSeconds != nil && target != domain.StatusCompleted {
		return nil, apperr.Validation("duration_seconds can only be written when completing a session")
	}
	if target == domain.StatusCompleted && p.DurationSeconds == nil {
		return nil, apperr.Validation("duration_seconds is required to complete a session")
	}
	if p.DurationSeconds != nil && *p.DurationSeconds < 0 {
		return nil, apperr.Validation("duration_seconds must not be negative")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, apperr.Validation("title must not be empty")
	}

	if p.Title != nil || p.Metadata != nil {
		details := store.SessionDetails{Title: p.Title, Metadata: p.Metadata}
		if err := l.store.UpdateSessionDetails(ctx, id, details, l.now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("session")
			}
			return nil, internal("update session", err, "session_id", id)
		}
		if sess, err = l.load(ctx, id); err != nil {
			return nil, err
		}
	}

	switch target {
	case "":
		return sess, nil
	case domain.StatusCompleted:
		return l.complete(ctx, sess, *p.DurationSeconds)
	default:
		return l.setStatus(ctx, sess, target)
	}
}

// Heartbeat records the view's running elapsed time so an open session is
// not mistaken for an abandoned one. A completed view is a no-op.
func (l *Lifecycle) Heartbeat(ctx context.Context, actor access.Actor, v *View) error {
	if v.Status() == domain.StatusCompleted {
		return nil
	}
	sess, err := l.load(ctx, v.SessionID())
	if err != nil {
		return err
	}
	if err := access.Check(actor, access.SessionResource(*sess), access.Write); err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return nil
	}
	if _, err := l.store.TouchSession(ctx, sess.ID, v.ElapsedSeconds(), l.now()); err != nil {
		return internal("touch session", err, "session_id", sess.ID)
	}
	return nil
}

// KeepAlive sends a heartbeat for v every interval until ctx is cancelled
// or the view is completed. Failed heartbeats are logged and retried on the
// next interval.
func (l *Lifecycle) KeepAlive(ctx context.Context, actor access.Actor, v *View, interval time.Duration) {
	if interval <= 0 {
		interval = HeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.Done():
			return
		case <-ticker.C:
			if err := l.Heartbeat(ctx, actor, v); err != nil && ctx.Err() == nil {
				slog.Warn("session heartbeat failed",
					"session_id", v.SessionID(),
					"user_id", actor.UserID,
					"error", err)
			}
		}
	}
}

// CompleteView freezes the view and persists its elapsed seconds. If the
// write fails the view is reopened so the caller can retry.
func (l *Lifecycle) CompleteView(ctx context.Context, actor access.Actor, v *View) (*domain.Session, error) {
	secs, undo, err := v.finish()
	if err != nil {
		return nil, err
	}
	sess, err := l.Complete(ctx, actor, v.SessionID(), secs)
	if err != nil {
		undo()
		return nil, err
	}
	v.closeDone()
	return sess, nil
}

func (l *Lifecycle) load(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := l.store.GetSession(ctx, id)
	if err != nil {
		return nil, internal("get session", err, "session_id", id)
	}
	if sess == nil {
		return nil, apperr.NotFound("session")
	}
	return sess, nil
}

// internal logs a backend failure and hides it behind a generic error.
func internal(op string, err error, attrs ...any) error {
	slog.Error(op+" failed", append(attrs, "error", err)...)
	return apperr.Internal(err)
}
