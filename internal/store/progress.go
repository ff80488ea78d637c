package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/confido/internal/domain"
)

// UpsertProfile creates a profile or refreshes its identity fields. Fields
// missing from p keep their stored values.
func (s *SQLStore) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	_, err := s.exec(ctx, "upsert profile", `
	INSERT INTO profiles (id, full_name, avatar_url, email, provider, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		full_name = COALESCE(excluded.full_name, profiles.full_name),
		avatar_url = COALESCE(excluded.avatar_url, profiles.avatar_url),
		email = COALESCE(excluded.email, profiles.email),
		provider = COALESCE(excluded.provider, profiles.provider),
		updated_at = excluded.updated_at`,
		p.ID, nullString(p.FullName), nullString(p.AvatarURL), nullString(p.Email),
		nullString(p.Provider), millis(p.CreatedAt), millis(p.UpdatedAt),
	)
	return err
}

// GetProfile retrieves a profile by user ID.
func (s *SQLStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, full_name, avatar_url, email, provider, created_at, updated_at
		FROM profiles WHERE id = ?`), userID)

	var (
		p                                 domain.Profile
		fullName, avatar, email, provider sql.NullString
		createdAt, updatedAt              int64
	)
	err := row.Scan(&p.ID, &fullName, &avatar, &email, &provider, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}
	p.FullName = fromNullString(fullName)
	p.AvatarURL = fromNullString(avatar)
	p.Email = fromNullString(email)
	p.Provider = fromNullString(provider)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// UpsertProgress writes the rollup for one user and skill area.
func (s *SQLStore) UpsertProgress(ctx context.Context, p *domain.UserProgress) error {
	_, err := s.exec(ctx, "upsert progress", `
	INSERT INTO user_progress (id, user_id, skill_area, total_sessions, total_time_minutes,
		average_confidence, average_fluency, average_pace, last_session_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, skill_area) DO UPDATE SET
		total_sessions = excluded.total_sessions,
		total_time_minutes = excluded.total_time_minutes,
		average_confidence = excluded.average_confidence,
		average_fluency = excluded.average_fluency,
		average_pace = excluded.average_pace,
		last_session_date = excluded.last_session_date,
		updated_at = excluded.updated_at`,
		p.ID, p.UserID, string(p.SkillArea), p.TotalSessions, p.TotalTimeMinutes,
		p.AverageConfidence, p.AverageFluency, p.AveragePace, nullMillis(p.LastSessionDate),
		millis(p.CreatedAt), millis(p.UpdatedAt),
	)
	return err
}

// ListProgress returns a user's rollups ordered by skill area.
func (s *SQLStore) ListProgress(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, user_id, skill_area, total_sessions, total_time_minutes,
		       average_confidence, average_fluency, average_pace, last_session_date,
		       created_at, updated_at
		FROM user_progress WHERE user_id = ? ORDER BY skill_area`), userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close progress rows", "error", closeErr)
		}
	}()

	out := []domain.UserProgress{}
	for rows.Next() {
		var (
			p                    domain.UserProgress
			skill                string
			last                 sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(
			&p.ID, &p.UserID, &skill, &p.TotalSessions, &p.TotalTimeMinutes,
			&p.AverageConfidence, &p.AverageFluency, &p.AveragePace, &last,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.SkillArea = domain.AgentType(skill)
		p.LastSessionDate = fromNullMillis(last)
		p.CreatedAt = fromMillis(createdAt)
		p.UpdatedAt = fromMillis(updatedAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// CreateGoal inserts a goal.
func (s *SQLStore) CreateGoal(ctx context.Context, g *domain.Goal) error {
	_, err := s.exec(ctx, "create goal", `
	INSERT INTO goals (id, user_id, title, description, target_metric, target_value,
		current_value, deadline, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, nullString(g.Description), string(g.TargetMetric),
		g.TargetValue, g.CurrentValue, nullMillis(g.Deadline), string(g.Status),
		millis(g.CreatedAt), millis(g.UpdatedAt),
	)
	return err
}

// ListGoals returns a user's goals, newest first.
func (s *SQLStore) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, user_id, title, description, target_metric, target_value,
		       current_value, deadline, status, created_at, updated_at
		FROM goals WHERE user_id = ? ORDER BY created_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close goal rows", "error", closeErr)
		}
	}()

	out := []domain.Goal{}
	for rows.Next() {
		var (
			g                    domain.Goal
			description          sql.NullString
			metric, status       string
			deadline             sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Title, &description, &metric, &g.TargetValue,
			&g.CurrentValue, &deadline, &status, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan goal row: %w", err)
		}
		g.Description = fromNullString(description)
		g.TargetMetric = domain.GoalMetric(metric)
		g.Status = domain.Status(status)
		g.Deadline = fromNullMillis(deadline)
		g.CreatedAt = fromMillis(createdAt)
		g.UpdatedAt = fromMillis(updatedAt)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// UpdateGoalProgress writes a goal's current value and status.
func (s *SQLStore) UpdateGoalProgress(ctx context.Context, id string, current float64, status domain.Status, at time.Time) error {
	n, err := s.exec(ctx, "update goal",
		`UPDATE goals SET current_value = ?, status = ?, updated_at = ? WHERE id = ?`,
		current, string(status), millis(at), id,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
