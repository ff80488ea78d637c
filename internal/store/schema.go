package store

import (
	"context"
	"fmt"
)

// schema is written in the subset of SQL shared by SQLite and Postgres.
// Timestamps are unix milliseconds; JSON values are stored as TEXT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT,
		avatar_url TEXT,
		email TEXT,
		provider TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT NOT NULL,
		description TEXT,
		system_prompt TEXT NOT NULL,
		voice_model TEXT NOT NULL,
		personality_traits TEXT NOT NULL DEFAULT '[]',
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		usage_count BIGINT NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_owner ON agents(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_usage ON agents(is_public, usage_count)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		custom_agent_id TEXT REFERENCES agents(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		last_elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		session_metadata TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_stale ON sessions(status, updated_at)`,

	`CREATE TABLE IF NOT EXISTS session_analytics (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		user_speaking_time_ms BIGINT NOT NULL DEFAULT 0,
		agent_speaking_time_ms BIGINT NOT NULL DEFAULT 0,
		total_words_user INTEGER NOT NULL DEFAULT 0,
		total_words_agent INTEGER NOT NULL DEFAULT 0,
		words_per_minute DOUBLE PRECISION NOT NULL DEFAULT 0,
		pause_count INTEGER NOT NULL DEFAULT 0,
		interruption_count INTEGER NOT NULL DEFAULT 0,
		filler_words_count INTEGER NOT NULL DEFAULT 0,
		confidence_score DOUBLE PRECISION,
		fluency_score DOUBLE PRECISION,
		pace_score DOUBLE PRECISION,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_session ON session_analytics(session_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS session_summaries (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE REFERENCES sessions(id) ON DELETE CASCADE,
		summary TEXT NOT NULL,
		key_points TEXT NOT NULL DEFAULT '[]',
		improvement_suggestions TEXT NOT NULL DEFAULT '[]',
		strengths TEXT NOT NULL DEFAULT '[]',
		areas_for_improvement TEXT NOT NULL DEFAULT '[]',
		overall_rating DOUBLE PRECISION,
		ai_feedback TEXT,
		created_at BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		skill_area TEXT NOT NULL,
		total_sessions INTEGER NOT NULL DEFAULT 0,
		total_time_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
		average_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		average_fluency DOUBLE PRECISION NOT NULL DEFAULT 0,
		average_pace DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_session_date BIGINT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		UNIQUE (user_id, skill_area)
	)`,

	`CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		target_metric TEXT NOT NULL,
		target_value DOUBLE PRECISION NOT NULL,
		current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		deadline BIGINT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(user_id, created_at)`,
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
