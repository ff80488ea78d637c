package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/confido/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "confido.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAgent(t *testing.T, s *SQLStore, id string, owner *string, usage int64) domain.Agent {
	t.Helper()
	now := time.Now()
	a := domain.Agent{
		ID:                id,
		OwnerID:           owner,
		Name:              "Agent " + id,
		SystemPrompt:      "be helpful",
		VoiceModel:        domain.DefaultVoiceModel,
		PersonalityTraits: []string{"calm"},
		IsPublic:          owner == nil,
		IsFeatured:        owner == nil,
		UsageCount:        usage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.CreateAgent(context.Background(), &a))
	return a
}

func newSession(id, owner string, agentID *string, at time.Time) domain.Session {
	return domain.Session{
		ID:            id,
		OwnerID:       owner,
		AgentType:     domain.AgentTypeCustom,
		CustomAgentID: agentID,
		Title:         "practice",
		Status:        domain.StatusActive,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func TestRebindPostgres(t *testing.T) {
	s := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b IN ($2, $3)", s.q("SELECT 1 WHERE a = ? AND b IN (?, ?)"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.q("a = ?"))
}

func TestAgentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := "alice"
	a := seedAgent(t, s, "a1", &owner, 0)

	got, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Owner())
	assert.Equal(t, []string{"calm"}, got.PersonalityTraits)
	assert.False(t, got.IsPublic)

	got.Name = "Renamed"
	got.IsPublic = true
	require.NoError(t, s.UpdateAgent(ctx, got))

	again, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)
	assert.True(t, again.IsPublic)

	missing, err := s.GetAgent(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.DeleteAgent(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteAgent(ctx, a.ID), ErrNotFound)
}

func TestListAgentsOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAgent(t, s, "low", nil, 1)
	seedAgent(t, s, "high", nil, 9)
	owner := "alice"
	seedAgent(t, s, "mine", &owner, 0)

	featured, err := s.ListFeaturedAgents(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, "high", featured[0].ID)
	assert.Equal(t, "low", featured[1].ID)

	mine, err := s.ListAgentsByOwner(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].ID)

	sys, err := s.FindSystemAgentByName(ctx, "Agent high")
	require.NoError(t, err)
	require.NotNil(t, sys)
	assert.Equal(t, "high", sys.ID)
}

func TestCreateSessionIncrementsUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedAgent(t, s, "coach", nil, 5)

	sess := newSession("s1", "alice", &a.ID, time.Now())
	require.NoError(t, s.CreateSession(ctx, &sess, a.ID))

	got, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, got.UsageCount)
}

func TestCreateSessionMissingAgentAbortsInsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ghost := "ghost"

	sess := newSession("s1", "alice", &ghost, time.Now())
	err := s.CreateSession(ctx, &sess, ghost)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConcurrentStartsIncrementUsageExactly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedAgent(t, s, "coach", nil, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sess := newSession(id, "user-"+id, &a.ID, time.Now())
			errs[i] = s.CreateSession(ctx, &sess, a.ID)
		}(i, id)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.UsageCount)
}

func TestCompleteSessionIsConditional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newSession("s1", "alice", nil, time.Now())
	require.NoError(t, s.CreateSession(ctx, &sess, ""))

	ok, err := s.CompleteSession(ctx, "s1", 120, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompleteSession(ctx, "s1", 999, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 120, got.DurationSeconds)
}

func TestSetSessionStatusRequiresCurrentState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newSession("s1", "alice", nil, time.Now())
	require.NoError(t, s.CreateSession(ctx, &sess, ""))

	ok, err := s.SetSessionStatus(ctx, "s1", domain.StatusActive, domain.StatusPaused, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetSessionStatus(ctx, "s1", domain.StatusActive, domain.StatusPaused, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListSessionsJoinsDetails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedAgent(t, s, "coach", nil, 0)
	base := time.Now().Add(-time.Hour)

	older := newSession("older", "alice", &a.ID, base)
	newer := newSession("newer", "alice", nil, base.Add(time.Minute))
	other := newSession("other", "bob", nil, base)
	for _, sess := range []*domain.Session{&older, &newer, &other} {
		require.NoError(t, s.CreateSession(ctx, sess, ""))
	}

	first, second := 0.7, 0.9
	require.NoError(t, s.SaveAnalytics(ctx, &domain.SessionAnalytics{ID: "an1", SessionID: "older", ConfidenceScore: &first, CreatedAt: base}))
	require.NoError(t, s.SaveAnalytics(ctx, &domain.SessionAnalytics{ID: "an2", SessionID: "older", ConfidenceScore: &second, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, s.SaveSummary(ctx, &domain.SessionSummary{ID: "sum1", SessionID: "older", Summary: "good", Strengths: []string{"clarity"}, CreatedAt: base}))

	recs, err := s.ListSessions(ctx, "alice", SessionFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "newer", recs[0].ID)
	assert.Nil(t, recs[0].Agent)
	assert.Empty(t, recs[0].Analytics)

	rec := recs[1]
	assert.Equal(t, "Agent coach", rec.AgentName())
	require.Len(t, rec.Analytics, 2)
	conf, ok := rec.Confidence()
	assert.True(t, ok)
	assert.InDelta(t, 0.7, conf, 1e-9)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, []string{"clarity"}, rec.Summary.Strengths)

	limited, err := s.ListSessions(ctx, "alice", SessionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateSessionDetails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := newSession("s1", "alice", nil, time.Now())
	require.NoError(t, s.CreateSession(ctx, &sess, ""))

	title := "Mock interview"
	require.NoError(t, s.UpdateSessionDetails(ctx, "s1", SessionDetails{
		Title:    &title,
		Metadata: map[string]any{"mood": "nervous"},
	}, time.Now()))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, "nervous", got.Metadata["mood"])

	assert.ErrorIs(t, s.UpdateSessionDetails(ctx, "missing", SessionDetails{Title: &title}, time.Now()), ErrNotFound)
}

func TestListStaleSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	old := time.Now().Add(-2 * time.Hour)

	stale := newSession("stale", "alice", nil, old)
	fresh := newSession("fresh", "alice", nil, time.Now())
	done := newSession("done", "alice", nil, old)
	done.Status = domain.StatusCompleted
	for _, sess := range []*domain.Session{&stale, &fresh, &done} {
		require.NoError(t, s.CreateSession(ctx, sess, ""))
	}

	got, err := s.ListStaleSessions(ctx, time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stale", got[0].ID)
}

func TestTouchSessionRefreshesUnfinishedSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	old := time.Now().Add(-2 * time.Hour)

	open := newSession("open", "alice", nil, old)
	done := newSession("done", "alice", nil, old)
	done.Status = domain.StatusCompleted
	done.DurationSeconds = 60
	for _, sess := range []*domain.Session{&open, &done} {
		require.NoError(t, s.CreateSession(ctx, sess, ""))
	}

	ok, err := s.TouchSession(ctx, "open", 900, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TouchSession(ctx, "done", 900, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetSession(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, 900, got.LastElapsedSeconds)
	assert.Zero(t, got.DurationSeconds)

	got, err = s.GetSession(ctx, "done")
	require.NoError(t, err)
	assert.Zero(t, got.LastElapsedSeconds)

	stale, err := s.ListStaleSessions(ctx, time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestProgressAndGoals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	p := domain.UserProgress{ID: "p1", UserID: "alice", SkillArea: domain.AgentTypeInterview, TotalSessions: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.UpsertProgress(ctx, &p))
	p.ID = "p2"
	p.TotalSessions = 3
	require.NoError(t, s.UpsertProgress(ctx, &p))

	rows, err := s.ListProgress(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ID)
	assert.Equal(t, 3, rows[0].TotalSessions)

	g := domain.Goal{ID: "g1", UserID: "alice", Title: "Ten sessions", TargetMetric: domain.GoalMetricSessionCount, TargetValue: 10, Status: domain.StatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateGoal(ctx, &g))
	require.NoError(t, s.UpdateGoalProgress(ctx, "g1", 10, domain.StatusCompleted, now))

	goals, err := s.ListGoals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, domain.StatusCompleted, goals[0].Status)
	assert.InDelta(t, 10, goals[0].CurrentValue, 1e-9)
}

func TestProfileUpsertKeepsKnownFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.UpsertProfile(ctx, &domain.Profile{ID: "alice", Email: domain.StringPtr("alice@example.com"), CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.UpsertProfile(ctx, &domain.Profile{ID: "alice", FullName: domain.StringPtr("Alice"), CreatedAt: now, UpdatedAt: now}))

	p, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", *p.FullName)
	assert.Equal(t, "alice@example.com", *p.Email)
}
