// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/confido/internal/domain"
)

// ErrNotFound is returned by writes that target a row which does not exist.
// Single-row reads return (nil, nil) instead.
var ErrNotFound = errors.New("store: row not found")

// SessionFilter narrows ListSessions.
type SessionFilter struct {
	// Limit caps the number of rows; zero means DefaultSessionLimit.
	Limit int
	// Status restricts to one status; empty means any.
	Status domain.Status
}

// DefaultSessionLimit is the page size used when no limit is given.
const DefaultSessionLimit = 50

// DefaultPublicAgentLimit is the page size for public agent listings.
const DefaultPublicAgentLimit = 20

// SessionDetails carries the directly writable session fields. Nil fields
// are left unchanged.
type SessionDetails struct {
	Title    *string
	Metadata map[string]any
}

// Repository defines the interface for persisting coaching data.
type Repository interface {
	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// UpsertProfile creates a profile or refreshes its identity fields.
	UpsertProfile(ctx context.Context, p *domain.Profile) error

	// GetProfile retrieves a profile by user ID.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// CreateAgent inserts a new agent.
	CreateAgent(ctx context.Context, a *domain.Agent) error

	// GetAgent retrieves an agent by ID.
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)

	// FindSystemAgentByName retrieves an unowned agent by exact name.
	FindSystemAgentByName(ctx context.Context, name string) (*domain.Agent, error)

	// UpdateAgent overwrites the editable fields of an agent. Usage count
	// and ownership are never touched.
	UpdateAgent(ctx context.Context, a *domain.Agent) error

	// DeleteAgent removes an agent.
	DeleteAgent(ctx context.Context, id string) error

	// ListAgentsByOwner returns a user's agents, newest first.
	ListAgentsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Agent, error)

	// ListPublicAgents returns public agents by descending usage.
	ListPublicAgents(ctx context.Context, limit int) ([]domain.Agent, error)

	// ListFeaturedAgents returns featured public agents by descending usage.
	ListFeaturedAgents(ctx context.Context) ([]domain.Agent, error)

	// CreateSession inserts a session. When incrementAgentID is non-empty the
	// agent's usage count is incremented in the same transaction; a missing
	// agent aborts the insert with ErrNotFound.
	CreateSession(ctx context.Context, s *domain.Session, incrementAgentID string) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// GetSessionRecord retrieves a session joined with analytics, summary and agent.
	GetSessionRecord(ctx context.Context, id string) (*domain.SessionRecord, error)

	// ListSessions returns a user's sessions joined with analytics, summary
	// and agent, newest first.
	ListSessions(ctx context.Context, ownerID string, f SessionFilter) ([]domain.SessionRecord, error)

	// CompleteSession marks a non-completed session completed with its final
	// duration. It reports false when the session was already completed or
	// does not exist.
	CompleteSession(ctx context.Context, id string, durationSeconds int, at time.Time) (bool, error)

	// TouchSession records the running elapsed time of an unfinished
	// session and refreshes updated_at. It reports false when the session
	// is completed or does not exist.
	TouchSession(ctx context.Context, id string, elapsedSeconds int, at time.Time) (bool, error)

	// SetSessionStatus moves a session from one status to another. It
	// reports false when the session is not currently in from.
	SetSessionStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (bool, error)

	// UpdateSessionDetails writes title and metadata.
	UpdateSessionDetails(ctx context.Context, id string, d SessionDetails, at time.Time) error

	// ListStaleSessions returns unfinished sessions last touched before the cutoff.
	ListStaleSessions(ctx context.Context, before time.Time, limit int) ([]domain.Session, error)

	// SaveAnalytics records speech metrics for a session.
	SaveAnalytics(ctx context.Context, a *domain.SessionAnalytics) error

	// SaveSummary records or replaces the narrative summary of a session.
	SaveSummary(ctx context.Context, sum *domain.SessionSummary) error

	// UpsertProgress writes the rollup for one user and skill area.
	UpsertProgress(ctx context.Context, p *domain.UserProgress) error

	// ListProgress returns a user's rollups.
	ListProgress(ctx context.Context, userID string) ([]domain.UserProgress, error)

	// CreateGoal inserts a goal.
	CreateGoal(ctx context.Context, g *domain.Goal) error

	// ListGoals returns a user's goals, newest first.
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)

	// UpdateGoalProgress writes a goal's current value and status.
	UpdateGoalProgress(ctx context.Context, id string, current float64, status domain.Status, at time.Time) error
}
