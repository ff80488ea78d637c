package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ashureev/confido/internal/domain"
)

const analyticsColumns = `id, session_id, user_speaking_time_ms, agent_speaking_time_ms,
	total_words_user, total_words_agent, words_per_minute, pause_count,
	interruption_count, filler_words_count, confidence_score, fluency_score,
	pace_score, created_at`

const summaryColumns = `id, session_id, summary, key_points, improvement_suggestions,
	strengths, areas_for_improvement, overall_rating, ai_feedback, created_at`

// SaveAnalytics records speech metrics for a session.
func (s *SQLStore) SaveAnalytics(ctx context.Context, a *domain.SessionAnalytics) error {
	_, err := s.exec(ctx, "save analytics", `
	INSERT INTO session_analytics (`+analyticsColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.UserSpeakingTimeMs, a.AgentSpeakingTimeMs,
		a.TotalWordsUser, a.TotalWordsAgent, a.WordsPerMinute, a.PauseCount,
		a.InterruptionCount, a.FillerWordsCount, nullFloat(a.ConfidenceScore),
		nullFloat(a.FluencyScore), nullFloat(a.PaceScore), millis(a.CreatedAt),
	)
	return err
}

// SaveSummary records or replaces the narrative summary of a session.
func (s *SQLStore) SaveSummary(ctx context.Context, sum *domain.SessionSummary) error {
	lists := make([]string, 4)
	for i, l := range [][]string{sum.KeyPoints, sum.ImprovementSuggestions, sum.Strengths, sum.AreasForImprovement} {
		enc, err := encodeJSON(l, "[]")
		if err != nil {
			return fmt.Errorf("encode summary list: %w", err)
		}
		lists[i] = enc
	}

	_, err := s.exec(ctx, "save summary", `
	INSERT INTO session_summaries (`+summaryColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		summary = excluded.summary,
		key_points = excluded.key_points,
		improvement_suggestions = excluded.improvement_suggestions,
		strengths = excluded.strengths,
		areas_for_improvement = excluded.areas_for_improvement,
		overall_rating = excluded.overall_rating,
		ai_feedback = excluded.ai_feedback`,
		sum.ID, sum.SessionID, sum.Summary, lists[0], lists[1], lists[2], lists[3],
		nullFloat(sum.OverallRating), nullString(sum.AIFeedback), millis(sum.CreatedAt),
	)
	return err
}

func (s *SQLStore) queryAnalytics(ctx context.Context, query string, args ...any) ([]domain.SessionAnalytics, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close analytics rows", "error", closeErr)
		}
	}()

	var out []domain.SessionAnalytics
	for rows.Next() {
		var (
			a                   domain.SessionAnalytics
			conf, fluency, pace sql.NullFloat64
			createdAt           int64
		)
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.UserSpeakingTimeMs, &a.AgentSpeakingTimeMs,
			&a.TotalWordsUser, &a.TotalWordsAgent, &a.WordsPerMinute, &a.PauseCount,
			&a.InterruptionCount, &a.FillerWordsCount, &conf, &fluency, &pace, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan analytics row: %w", err)
		}
		a.ConfidenceScore = fromNullFloat(conf)
		a.FluencyScore = fromNullFloat(fluency)
		a.PaceScore = fromNullFloat(pace)
		a.CreatedAt = fromMillis(createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics: %w", err)
	}
	return out, nil
}

func (s *SQLStore) querySummaries(ctx context.Context, query string, args ...any) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close summary rows", "error", closeErr)
		}
	}()

	var out []domain.SessionSummary
	for rows.Next() {
		var (
			sum                               domain.SessionSummary
			keyPoints, suggestions, strengths sql.NullString
			areas, feedback                   sql.NullString
			rating                            sql.NullFloat64
			createdAt                         int64
		)
		if err := rows.Scan(
			&sum.ID, &sum.SessionID, &sum.Summary, &keyPoints, &suggestions,
			&strengths, &areas, &rating, &feedback, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		for _, f := range []struct {
			raw sql.NullString
			dst *[]string
		}{
			{keyPoints, &sum.KeyPoints},
			{suggestions, &sum.ImprovementSuggestions},
			{strengths, &sum.Strengths},
			{areas, &sum.AreasForImprovement},
		} {
			if err := decodeJSON(f.raw, f.dst); err != nil {
				return nil, fmt.Errorf("decode summary list: %w", err)
			}
		}
		sum.OverallRating = fromNullFloat(rating)
		sum.AIFeedback = fromNullString(feedback)
		sum.CreatedAt = fromMillis(createdAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}
