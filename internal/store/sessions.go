package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/confido/internal/domain"
)

const sessionColumns = `s.id, s.user_id, s.agent_type, s.custom_agent_id, s.title,
	s.duration_seconds, s.last_elapsed_seconds, s.status, s.session_metadata, s.created_at, s.updated_at`

func scanSession(row scanner, extra ...any) (domain.Session, error) {
	var (
		sess                 domain.Session
		agentID, metadata    sql.NullString
		agentType, status    string
		createdAt, updatedAt int64
	)
	dest := []any{
		&sess.ID, &sess.OwnerID, &agentType, &agentID, &sess.Title,
		&sess.DurationSeconds, &sess.LastElapsedSeconds, &status, &metadata, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Session{}, err
	}
	sess.AgentType = domain.AgentType(agentType)
	sess.Status = domain.Status(status)
	sess.CustomAgentID = fromNullString(agentID)
	if err := decodeJSON(metadata, &sess.Metadata); err != nil {
		return domain.Session{}, fmt.Errorf("decode session metadata: %w", err)
	}
	if sess.Metadata == nil {
		sess.Metadata = map[string]any{}
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.UpdatedAt = fromMillis(updatedAt)
	return sess, nil
}

// CreateSession inserts a session, incrementing the agent's usage count in
// the same transaction when incrementAgentID is set.
func (s *SQLStore) CreateSession(ctx context.Context, sess *domain.Session, incrementAgentID string) error {
	metadata, err := encodeJSON(sess.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("encode session metadata: %w", err)
	}
	insert := s.q(`
	INSERT INTO sessions (id, user_id, agent_type, custom_agent_id, title,
		duration_seconds, status, session_metadata, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	increment := s.q(`UPDATE agents SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`)

	err = s.retry(ctx, "create session", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if incrementAgentID != "" {
				res, err := tx.ExecContext(ctx, increment, millis(sess.CreatedAt), incrementAgentID)
				if err != nil {
					return err
				}
				n, err := res.RowsAffected()
				if err != nil {
					return err
				}
				if n == 0 {
					return ErrNotFound
				}
			}
			_, err := tx.ExecContext(ctx, insert,
				sess.ID, sess.OwnerID, string(sess.AgentType), nullString(sess.CustomAgentID),
				sess.Title, sess.DurationSeconds, string(sess.Status), metadata,
				millis(sess.CreatedAt), millis(sess.UpdatedAt),
			)
			return err
		})
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`), id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return &sess, nil
}

const recordQuery = `SELECT ` + sessionColumns + `, a.name, a.description
	FROM sessions s LEFT JOIN agents a ON a.id = s.custom_agent_id`

func scanRecord(row scanner) (domain.SessionRecord, error) {
	var agentName, agentDesc sql.NullString
	sess, err := scanSession(row, &agentName, &agentDesc)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	rec := domain.SessionRecord{Session: sess, Analytics: []domain.SessionAnalytics{}}
	if agentName.Valid {
		rec.Agent = &domain.AgentRef{Name: agentName.String, Description: fromNullString(agentDesc)}
	}
	return rec, nil
}

// GetSessionRecord retrieves a session joined with analytics, summary and agent.
func (s *SQLStore) GetSessionRecord(ctx context.Context, id string) (*domain.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, s.q(recordQuery+` WHERE s.id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session record: %w", err)
	}
	recs := []domain.SessionRecord{rec}
	if err := s.attachDetails(ctx, recs); err != nil {
		return nil, err
	}
	return &recs[0], nil
}

// ListSessions returns a user's sessions joined with analytics, summary and
// agent, newest first.
func (s *SQLStore) ListSessions(ctx context.Context, ownerID string, f SessionFilter) ([]domain.SessionRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	query := recordQuery + ` WHERE s.user_id = ?`
	args := []any{ownerID}
	if f.Status != "" {
		query += ` AND s.status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY s.created_at DESC, s.id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	recs := []domain.SessionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	if err := s.attachDetails(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// attachDetails loads analytics (oldest first) and summaries for recs.
func (s *SQLStore) attachDetails(ctx context.Context, recs []domain.SessionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]any, len(recs))
	index := make(map[string]int, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
		index[recs[i].ID] = i
	}
	in := placeholders(len(ids))

	analytics, err := s.queryAnalytics(ctx,
		`SELECT `+analyticsColumns+` FROM session_analytics WHERE session_id IN (`+in+`) ORDER BY created_at, id`, ids...)
	if err != nil {
		return err
	}
	for _, a := range analytics {
		i := index[a.SessionID]
		recs[i].Analytics = append(recs[i].Analytics, a)
	}

	summaries, err := s.querySummaries(ctx,
		`SELECT `+summaryColumns+` FROM session_summaries WHERE session_id IN (`+in+`)`, ids...)
	if err != nil {
		return err
	}
	for i := range summaries {
		sum := summaries[i]
		recs[index[sum.SessionID]].Summary = &sum
	}
	return nil
}

// CompleteSession marks a non-completed session completed.
func (s *SQLStore) CompleteSession(ctx context.Context, id string, durationSeconds int, at time.Time) (bool, error) {
	n, err := s.exec(ctx, "complete session",
		`UPDATE sessions SET status = ?, duration_seconds = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		string(domain.StatusCompleted), durationSeconds, millis(at), id, string(domain.StatusCompleted),
	)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TouchSession records the running elapsed time of an unfinished session
// and refreshes its updated_at.
func (s *SQLStore) TouchSession(ctx context.Context, id string, elapsedSeconds int, at time.Time) (bool, error) {
	n, err := s.exec(ctx, "touch session",
		`UPDATE sessions SET last_elapsed_seconds = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		elapsedSeconds, millis(at), id, string(domain.StatusCompleted),
	)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetSessionStatus moves a session from one status to another.
func (s *SQLStore) SetSessionStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (bool, error) {
	n, err := s.exec(ctx, "set session status",
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), millis(at), id, string(from),
	)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateSessionDetails writes title and metadata.
func (s *SQLStore) UpdateSessionDetails(ctx context.Context, id string, d SessionDetails, at time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{millis(at)}
	if d.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *d.Title)
	}
	if d.Metadata != nil {
		metadata, err := encodeJSON(d.Metadata, "{}")
		if err != nil {
			return fmt.Errorf("encode session metadata: %w", err)
		}
		sets = append(sets, "session_metadata = ?")
		args = append(args, metadata)
	}
	args = append(args, id)

	n, err := s.exec(ctx, "update session",
		`UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleSessions returns unfinished sessions last touched before the cutoff.
func (s *SQLStore) ListStaleSessions(ctx context.Context, before time.Time, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+sessionColumns+` FROM sessions s
		WHERE s.status IN (?, ?) AND s.updated_at < ?
		ORDER BY s.updated_at LIMIT ?`),
		string(domain.StatusActive), string(domain.StatusPaused), millis(before), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query stale sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stale session rows", "error", closeErr)
		}
	}()

	var out []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale session row: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale sessions: %w", err)
	}
	return out, nil
}
