package analytics

import (
	"context"
	"time"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/store"
)

// SessionLister reads joined session records.
type SessionLister interface {
	ListSessions(ctx context.Context, ownerID string, f store.SessionFilter) ([]domain.SessionRecord, error)
	GetSessionRecord(ctx context.Context, id string) (*domain.SessionRecord, error)
}

// Reader serves the dashboard and history views for the calling user.
type Reader struct {
	store          SessionLister
	dashboardLimit int
	now            func() time.Time
}

// NewReader creates a reader. dashboardLimit caps how many recent sessions
// the dashboard summarizes; zero uses the store default.
func NewReader(st SessionLister, dashboardLimit int) *Reader {
	return &Reader{store: st, dashboardLimit: dashboardLimit, now: time.Now}
}

// Dashboard summarizes the actor's most recent sessions.
func (r *Reader) Dashboard(ctx context.Context, actor access.Actor) (Dashboard, error) {
	records, err := r.sessions(ctx, actor, store.SessionFilter{Limit: r.dashboardLimit})
	if err != nil {
		return Dashboard{}, err
	}
	return Aggregate(records, r.now()), nil
}

// History returns the actor's sessions filtered and sorted by q.
func (r *Reader) History(ctx context.Context, actor access.Actor, q HistoryQuery) ([]domain.SessionRecord, error) {
	records, err := r.sessions(ctx, actor, store.SessionFilter{})
	if err != nil {
		return nil, err
	}
	return Query(records, q, r.now()), nil
}

// Sessions lists the actor's joined records, newest first.
func (r *Reader) Sessions(ctx context.Context, actor access.Actor, f store.SessionFilter) ([]domain.SessionRecord, error) {
	return r.sessions(ctx, actor, f)
}

// Record returns one joined session the actor owns.
func (r *Reader) Record(ctx context.Context, actor access.Actor, id string) (*domain.SessionRecord, error) {
	rec, err := r.store.GetSessionRecord(ctx, id)
	if err != nil {
		return nil, internal("get session record", err, "session_id", id)
	}
	if rec == nil {
		return nil, apperr.NotFound("session")
	}
	if err := access.Check(actor, access.SessionResource(rec.Session), access.Read); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Reader) sessions(ctx context.Context, actor access.Actor, f store.SessionFilter) ([]domain.SessionRecord, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	records, err := r.store.ListSessions(ctx, actor.UserID, f)
	if err != nil {
		return nil, internal("list sessions", err, "user_id", actor.UserID)
	}
	return records, nil
}
