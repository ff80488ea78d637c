package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/confido/internal/analytics"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/identity"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedIsIdempotent(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 of 3 personas")

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 0 of 3 personas")
}

func TestTokenVerifies(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "--user", "alice", "--email", "alice@example.com")
	require.NoError(t, err)

	claims, err := identity.NewVerifier("cli-secret", "", "").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)

	_, err = run(t, "token")
	assert.ErrorContains(t, err, "--user is required")
}

func TestPracticeWithoutUIThenHistory(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "seed")
	require.NoError(t, err)

	out, err := run(t, "practice", "-u", "alice", "--no-ui", "networking")
	require.NoError(t, err)
	assert.Contains(t, out, "with TED Talk Presentation Coach")

	_, err = run(t, "practice", "-u", "alice", "--no-ui", "underwater basket weaving")
	assert.ErrorContains(t, err, "no agent matches")

	out, err = run(t, "history", "-u", "alice", "--status", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "TED Talk Presentation Coach")

	out, err = run(t, "history", "-u", "alice", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	_, err = run(t, "history", "-u", "alice", "--sort", "volume")
	assert.Error(t, err)

	out, err = run(t, "stats", "-u", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Sessions:        1")
}

func TestReconcileRequiresThreshold(t *testing.T) {
	setupEnv(t)
	t.Setenv("SESSION_AUTOCOMPLETE_AFTER", "0")

	_, err := run(t, "reconcile")
	assert.ErrorContains(t, err, "--after must be positive")

	out, err := run(t, "reconcile", "--after", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed 0 stale sessions")
}

func TestPrintDashboard(t *testing.T) {
	var buf bytes.Buffer
	printDashboard(&buf, analytics.Dashboard{TotalSessions: 2, TotalMinutes: 7, ThisWeekSessions: 1}, []domain.UserProgress{
		{SkillArea: domain.AgentTypeInterview, TotalSessions: 2, TotalTimeMinutes: 7, AverageConfidence: 0.5},
	})
	out := buf.String()
	assert.Contains(t, out, "Minutes:         7.00")
	assert.Contains(t, out, "interview")
	assert.Contains(t, out, "50%")
}

func TestPrintHistory(t *testing.T) {
	conf := 0.81
	var buf bytes.Buffer
	printHistory(&buf, []domain.SessionRecord{{
		Session: domain.Session{
			ID:              "0123456789abcdef",
			AgentType:       domain.AgentTypeConfidence,
			Status:          domain.StatusCompleted,
			DurationSeconds: 125,
			CreatedAt:       time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC),
		},
		Analytics: []domain.SessionAnalytics{{ConfidenceScore: &conf}},
	}})
	out := buf.String()
	assert.Contains(t, out, "01234567 ")
	assert.Contains(t, out, "confidence")
	assert.Contains(t, out, "2:05")
	assert.Contains(t, out, "81%")
}
