package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
)

var now = time.Date(2026, time.June, 15, 14, 30, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

type recOpt func(*domain.SessionRecord)

func withConfidence(v *float64) recOpt {
	return func(r *domain.SessionRecord) {
		r.Analytics = []domain.SessionAnalytics{{ConfidenceScore: v}}
	}
}

func withAgent(name string) recOpt {
	return func(r *domain.SessionRecord) { r.Agent = &domain.AgentRef{Name: name} }
}

func record(id string, dur int, status domain.Status, created time.Time, opts ...recOpt) domain.SessionRecord {
	r := domain.SessionRecord{Session: domain.Session{
		ID:              id,
		AgentType:       domain.AgentTypeInterview,
		DurationSeconds: dur,
		Status:          status,
		CreatedAt:       created,
	}}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func TestAggregateScenario(t *testing.T) {
	records := []domain.SessionRecord{
		record("a", 120, domain.StatusCompleted, now),
		record("b", 300, domain.StatusActive, now.AddDate(0, 0, -10)),
	}
	d := Aggregate(records, now)
	assert.Equal(t, Dashboard{TotalSessions: 2, TotalMinutes: 7, ThisWeekSessions: 1, AverageConfidence: 0}, d)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, Dashboard{}, Aggregate(nil, now))
}

func TestAggregateRoundsMinutes(t *testing.T) {
	d := Aggregate([]domain.SessionRecord{record("a", 100, domain.StatusCompleted, now)}, now)
	assert.InDelta(t, 1.67, d.TotalMinutes, 1e-9)
}

func TestAggregateConfidenceCountsZeroSkipsMissing(t *testing.T) {
	records := []domain.SessionRecord{
		record("a", 60, domain.StatusCompleted, now, withConfidence(score(0.8))),
		record("b", 60, domain.StatusCompleted, now, withConfidence(score(0.6))),
		record("c", 60, domain.StatusCompleted, now, withConfidence(score(0))),
		record("d", 60, domain.StatusCompleted, now, withConfidence(nil)),
		record("e", 60, domain.StatusCompleted, now),
	}
	d := Aggregate(records, now)
	assert.Equal(t, 5, d.TotalSessions)
	assert.Equal(t, 47, d.AverageConfidence)

	d = Aggregate(records[3:], now)
	assert.Zero(t, d.AverageConfidence)
}

func TestAggregateWeekBoundaryIsInclusive(t *testing.T) {
	records := []domain.SessionRecord{
		record("edge", 0, domain.StatusCompleted, now.AddDate(0, 0, -7)),
		record("old", 0, domain.StatusCompleted, now.AddDate(0, 0, -7).Add(-time.Second)),
	}
	assert.Equal(t, 1, Aggregate(records, now).ThisWeekSessions)
}

func TestParseHistoryQuery(t *testing.T) {
	q, err := ParseHistoryQuery("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, HistoryQuery{Status: StatusAll, Period: PeriodAll, Sort: SortDate}, q)

	q, err = ParseHistoryQuery(" pitch ", "Completed", "WEEK", "confidence")
	require.NoError(t, err)
	assert.Equal(t, HistoryQuery{Search: "pitch", Status: "completed", Period: PeriodWeek, Sort: SortConfidence}, q)

	for _, bad := range [][4]string{
		{"", "archived", "", ""},
		{"", "", "year", ""},
		{"", "", "", "name"},
	} {
		_, err := ParseHistoryQuery(bad[0], bad[1], bad[2], bad[3])
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}

func ids(records []domain.SessionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestQueryStatusFilterNeverLeaks(t *testing.T) {
	records := []domain.SessionRecord{
		record("a", 10, domain.StatusCompleted, now),
		record("b", 10, domain.StatusActive, now),
		record("c", 10, domain.StatusPaused, now),
		record("d", 10, domain.StatusCompleted, now),
	}
	got := Query(records, HistoryQuery{Status: "completed"}, now)
	for _, r := range got {
		assert.Equal(t, domain.StatusCompleted, r.Status)
	}
	assert.Equal(t, []string{"a", "d"}, ids(got))
}

func TestQuerySearchesAgentNameAndID(t *testing.T) {
	records := []domain.SessionRecord{
		record("abc-123", 10, domain.StatusCompleted, now, withAgent("TED Talk Presentation Coach")),
		record("def-456", 10, domain.StatusCompleted, now, withAgent("Pitch Partner")),
		record("ted-789", 10, domain.StatusCompleted, now),
	}
	got := Query(records, HistoryQuery{Search: "TED"}, now)
	assert.Equal(t, []string{"abc-123", "ted-789"}, ids(got))
}

func TestQueryPeriods(t *testing.T) {
	startOfDay := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	records := []domain.SessionRecord{
		record("today", 0, domain.StatusCompleted, startOfDay),
		record("yesterday", 0, domain.StatusCompleted, startOfDay.Add(-time.Minute)),
		record("last-week", 0, domain.StatusCompleted, now.AddDate(0, 0, -8)),
		record("last-month", 0, domain.StatusCompleted, now.AddDate(0, -1, -1)),
	}

	assert.Equal(t, []string{"today"}, ids(Query(records, HistoryQuery{Period: PeriodToday}, now)))
	assert.Equal(t, []string{"today", "yesterday"}, ids(Query(records, HistoryQuery{Period: PeriodWeek}, now)))
	assert.Equal(t, []string{"today", "yesterday", "last-week"}, ids(Query(records, HistoryQuery{Period: PeriodMonth}, now)))
	assert.Len(t, Query(records, HistoryQuery{Period: PeriodAll}, now), 4)
}

func TestQuerySortsDescendingAndStable(t *testing.T) {
	records := []domain.SessionRecord{
		record("a", 30, domain.StatusCompleted, now.Add(-3*time.Hour), withConfidence(score(0.5))),
		record("b", 90, domain.StatusCompleted, now.Add(-1*time.Hour)),
		record("c", 30, domain.StatusCompleted, now.Add(-2*time.Hour), withConfidence(score(0.9))),
		record("d", 60, domain.StatusCompleted, now.Add(-4*time.Hour), withConfidence(nil)),
	}

	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(Query(records, HistoryQuery{Sort: SortDate}, now)))
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(Query(records, HistoryQuery{Sort: SortDuration}, now)))
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(Query(records, HistoryQuery{Sort: SortConfidence}, now)))

	assert.Equal(t, "a", records[0].ID, "input is not reordered")
}

func TestRollupGroupsCompletedCategories(t *testing.T) {
	records := []domain.SessionRecord{
		record("a", 120, domain.StatusCompleted, now.Add(-time.Hour), withConfidence(score(0.6))),
		record("b", 60, domain.StatusCompleted, now, withConfidence(score(0.8))),
		record("c", 600, domain.StatusActive, now),
	}
	custom := record("d", 300, domain.StatusCompleted, now)
	custom.AgentType = domain.AgentTypeCustom
	records = append(records, custom)

	got := Rollup("alice", records)
	require.Len(t, got, 1)
	p := got[0]
	assert.Equal(t, domain.AgentTypeInterview, p.SkillArea)
	assert.Equal(t, 2, p.TotalSessions)
	assert.InDelta(t, 3.0, p.TotalTimeMinutes, 1e-9)
	assert.InDelta(t, 0.7, p.AverageConfidence, 1e-9)
	require.NotNil(t, p.LastSessionDate)
	assert.Equal(t, now, *p.LastSessionDate)
}

func TestGoalValue(t *testing.T) {
	records := []domain.SessionRecord{
		record("a", 0, domain.StatusCompleted, now, withConfidence(score(0.5))),
		record("b", 0, domain.StatusCompleted, now, withConfidence(score(0.7))),
		record("c", 0, domain.StatusActive, now, withConfidence(score(1))),
	}
	assert.InDelta(t, 2, goalValue(domain.GoalMetricSessionCount, records), 1e-9)
	assert.InDelta(t, 60, goalValue(domain.GoalMetricConfidence, records), 1e-9)
	assert.InDelta(t, 0, goalValue(domain.GoalMetricPace, records), 1e-9)
}
