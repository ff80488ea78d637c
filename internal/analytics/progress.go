package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/store"
)

// rollupWindow bounds how many completed sessions a refresh reads.
const rollupWindow = 1000

// Rollup groups completed sessions by built-in skill area. Custom sessions
// have no skill area and are skipped. Averages are taken over first
// analytics rows that carry the score. The result is ordered by skill area.
func Rollup(userID string, records []domain.SessionRecord) []domain.UserProgress {
	type acc struct {
		p                      domain.UserProgress
		seconds                int
		conf, fluency, pace    float64
		nConf, nFluency, nPace int
	}
	groups := map[domain.AgentType]*acc{}

	for i := range records {
		rec := &records[i]
		if rec.Status != domain.StatusCompleted || !rec.AgentType.IsCategory() {
			continue
		}
		g, ok := groups[rec.AgentType]
		if !ok {
			g = &acc{p: domain.UserProgress{UserID: userID, SkillArea: rec.AgentType}}
			groups[rec.AgentType] = g
		}
		g.p.TotalSessions++
		g.seconds += rec.DurationSeconds
		if g.p.LastSessionDate == nil || rec.CreatedAt.After(*g.p.LastSessionDate) {
			at := rec.CreatedAt
			g.p.LastSessionDate = &at
		}

		a, ok := rec.FirstAnalytics()
		if !ok {
			continue
		}
		if a.ConfidenceScore != nil {
			g.conf += *a.ConfidenceScore
			g.nConf++
		}
		if a.FluencyScore != nil {
			g.fluency += *a.FluencyScore
			g.nFluency++
		}
		if a.PaceScore != nil {
			g.pace += *a.PaceScore
			g.nPace++
		}
	}

	out := make([]domain.UserProgress, 0, len(groups))
	for _, g := range groups {
		g.p.TotalTimeMinutes = round2(float64(g.seconds) / 60)
		g.p.AverageConfidence = mean(g.conf, g.nConf)
		g.p.AverageFluency = mean(g.fluency, g.nFluency)
		g.p.AveragePace = mean(g.pace, g.nPace)
		out = append(out, g.p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillArea < out[j].SkillArea })
	return out
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// goalValue is the current value of metric over completed records.
// Score metrics are percentages; session_count is a plain count.
func goalValue(metric domain.GoalMetric, records []domain.SessionRecord) float64 {
	var (
		count int
		sum   float64
		n     int
	)
	for i := range records {
		rec := &records[i]
		if rec.Status != domain.StatusCompleted {
			continue
		}
		count++
		a, ok := rec.FirstAnalytics()
		if !ok {
			continue
		}
		var score *float64
		switch metric {
		case domain.GoalMetricConfidence:
			score = a.ConfidenceScore
		case domain.GoalMetricFluency:
			score = a.FluencyScore
		case domain.GoalMetricPace:
			score = a.PaceScore
		}
		if score != nil {
			sum += *score
			n++
		}
	}
	if metric == domain.GoalMetricSessionCount {
		return float64(count)
	}
	return round2(mean(sum, n) * 100)
}

// ProgressStore is the persistence surface the recorder needs.
type ProgressStore interface {
	ListSessions(ctx context.Context, ownerID string, f store.SessionFilter) ([]domain.SessionRecord, error)
	UpsertProgress(ctx context.Context, p *domain.UserProgress) error
	ListProgress(ctx context.Context, userID string) ([]domain.UserProgress, error)
	CreateGoal(ctx context.Context, g *domain.Goal) error
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	UpdateGoalProgress(ctx context.Context, id string, current float64, status domain.Status, at time.Time) error
}

// Recorder keeps progress rollups and goals in step with completed sessions.
type Recorder struct {
	store ProgressStore
	now   func() time.Time
}

// NewRecorder creates a recorder backed by st.
func NewRecorder(st ProgressStore) *Recorder {
	return &Recorder{store: st, now: time.Now}
}

// Refresh recomputes userID's rollups and advances their active goals. A
// goal whose current value reaches its target becomes completed.
func (r *Recorder) Refresh(ctx context.Context, userID string) error {
	records, err := r.store.ListSessions(ctx, userID, store.SessionFilter{
		Limit:  rollupWindow,
		Status: domain.StatusCompleted,
	})
	if err != nil {
		return internal("list completed sessions", err, "user_id", userID)
	}

	now := r.now()
	for _, p := range Rollup(userID, records) {
		p.ID = uuid.NewString()
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := r.store.UpsertProgress(ctx, &p); err != nil {
			return internal("upsert progress", err, "user_id", userID, "skill_area", p.SkillArea)
		}
	}

	goals, err := r.store.ListGoals(ctx, userID)
	if err != nil {
		return internal("list goals", err, "user_id", userID)
	}
	for _, g := range goals {
		if g.Status != domain.StatusActive {
			continue
		}
		current := goalValue(g.TargetMetric, records)
		status := g.Status
		if current >= g.TargetValue {
			status = domain.StatusCompleted
		}
		if current == g.CurrentValue && status == g.Status {
			continue
		}
		if err := r.store.UpdateGoalProgress(ctx, g.ID, current, status, now); err != nil {
			return internal("update goal", err, "goal_id", g.ID)
		}
		if status == domain.StatusCompleted {
			slog.Info("goal reached", "goal_id", g.ID, "user_id", userID, "metric", g.TargetMetric)
		}
	}
	return nil
}

// OnSessionCompleted refreshes the owner's progress; failures are logged.
// It matches session.CompletionHook.
func (r *Recorder) OnSessionCompleted(ctx context.Context, s domain.Session) {
	if err := r.Refresh(ctx, s.OwnerID); err != nil {
		slog.Warn("progress refresh failed", "session_id", s.ID, "user_id", s.OwnerID, "error", err)
	}
}

// Progress returns the actor's rollups.
func (r *Recorder) Progress(ctx context.Context, actor access.Actor) ([]domain.UserProgress, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	out, err := r.store.ListProgress(ctx, actor.UserID)
	if err != nil {
		return nil, internal("list progress", err, "user_id", actor.UserID)
	}
	return out, nil
}

// Goals returns the actor's goals, newest first.
func (r *Recorder) Goals(ctx context.Context, actor access.Actor) ([]domain.Goal, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	out, err := r.store.ListGoals(ctx, actor.UserID)
	if err != nil {
		return nil, internal("list goals", err, "user_id", actor.UserID)
	}
	return out, nil
}

// GoalInput describes a new goal.
type GoalInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetMetric string     `json:"target_metric"`
	TargetValue  float64    `json:"target_value"`
	Deadline     *time.Time `json:"deadline"`
}

// CreateGoal saves an active goal for the actor.
func (r *Recorder) CreateGoal(ctx context.Context, actor access.Actor, in GoalInput) (*domain.Goal, error) {
	if !actor.Authenticated() {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	metric := domain.GoalMetric(strings.ToLower(strings.TrimSpace(in.TargetMetric)))
	if !metric.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown target metric %q", in.TargetMetric)
	}
	if in.TargetValue <= 0 {
		return nil, apperr.Validation("target_value must be positive")
	}

	now := r.now()
	g := &domain.Goal{
		ID:           uuid.NewString(),
		UserID:       actor.UserID,
		Title:        strings.TrimSpace(in.Title),
		Description:  domain.StringPtr(in.Description),
		TargetMetric: metric,
		TargetValue:  in.TargetValue,
		Deadline:     in.Deadline,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.store.CreateGoal(ctx, g); err != nil {
		return nil, internal("create goal", err, "user_id", actor.UserID)
	}
	return g, nil
}

// internal logs a backend failure and hides it behind a generic error.
func internal(op string, err error, attrs ...any) error {
	slog.Error(op+" failed", append(attrs, "error", err)...)
	return apperr.Internal(err)
}
