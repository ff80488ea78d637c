package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/confido/internal/domain"
)

const agentColumns = `id, user_id, name, description, system_prompt, voice_model,
	personality_traits, is_public, is_featured, usage_count, created_at, updated_at`

func scanAgent(row scanner) (domain.Agent, error) {
	var (
		a                    domain.Agent
		ownerID, description sql.NullString
		traits               sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&a.ID, &ownerID, &a.Name, &description, &a.SystemPrompt, &a.VoiceModel,
		&traits, &a.IsPublic, &a.IsFeatured, &a.UsageCount, &createdAt, &updatedAt,
	); err != nil {
		return domain.Agent{}, err
	}
	a.OwnerID = fromNullString(ownerID)
	a.Description = fromNullString(description)
	if err := decodeJSON(traits, &a.PersonalityTraits); err != nil {
		return domain.Agent{}, fmt.Errorf("decode personality traits: %w", err)
	}
	if a.PersonalityTraits == nil {
		a.PersonalityTraits = []string{}
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

// CreateAgent inserts a new agent.
func (s *SQLStore) CreateAgent(ctx context.Context, a *domain.Agent) error {
	traits, err := encodeJSON(a.PersonalityTraits, "[]")
	if err != nil {
		return fmt.Errorf("encode personality traits: %w", err)
	}
	query := `
	INSERT INTO agents (` + agentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.exec(ctx, "create agent", query,
		a.ID, nullString(a.OwnerID), a.Name, nullString(a.Description),
		a.SystemPrompt, a.VoiceModel, traits, a.IsPublic, a.IsFeatured,
		a.UsageCount, millis(a.CreatedAt), millis(a.UpdatedAt),
	)
	return err
}

// GetAgent retrieves an agent by ID.
func (s *SQLStore) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+agentColumns+` FROM agents WHERE id = ?`), id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent row: %w", err)
	}
	return &a, nil
}

// FindSystemAgentByName retrieves an unowned agent by exact name.
func (s *SQLStore) FindSystemAgentByName(ctx context.Context, name string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+agentColumns+` FROM agents WHERE user_id IS NULL AND name = ? ORDER BY created_at LIMIT 1`), name)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent row: %w", err)
	}
	return &a, nil
}

// UpdateAgent overwrites the editable fields of an agent.
func (s *SQLStore) UpdateAgent(ctx context.Context, a *domain.Agent) error {
	traits, err := encodeJSON(a.PersonalityTraits, "[]")
	if err != nil {
		return fmt.Errorf("encode personality traits: %w", err)
	}
	query := `
	UPDATE agents SET
		name = ?, description = ?, system_prompt = ?, voice_model = ?,
		personality_traits = ?, is_public = ?, is_featured = ?, updated_at = ?
	WHERE id = ?`

	n, err := s.exec(ctx, "update agent", query,
		a.Name, nullString(a.Description), a.SystemPrompt, a.VoiceModel,
		traits, a.IsPublic, a.IsFeatured, millis(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAgent removes an agent. Sessions that referenced it keep their
// history with the link cleared.
func (s *SQLStore) DeleteAgent(ctx context.Context, id string) error {
	n, err := s.exec(ctx, "delete agent", `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAgentsByOwner returns a user's agents, newest first.
func (s *SQLStore) ListAgentsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAgents(ctx, "owned agents", query, args...)
}

// ListPublicAgents returns public agents by descending usage.
func (s *SQLStore) ListPublicAgents(ctx context.Context, limit int) ([]domain.Agent, error) {
	if limit <= 0 {
		limit = DefaultPublicAgentLimit
	}
	query := `SELECT ` + agentColumns + ` FROM agents WHERE is_public = ? ORDER BY usage_count DESC, created_at LIMIT ?`
	return s.queryAgents(ctx, "public agents", query, true, limit)
}

// ListFeaturedAgents returns featured public agents by descending usage.
func (s *SQLStore) ListFeaturedAgents(ctx context.Context) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE is_featured = ? AND is_public = ? ORDER BY usage_count DESC, created_at`
	return s.queryAgents(ctx, "featured agents", query, true, true)
}

func (s *SQLStore) queryAgents(ctx context.Context, what, query string, args ...any) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close agent rows", "error", closeErr)
		}
	}()

	agents := []domain.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", what, err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return agents, nil
}
