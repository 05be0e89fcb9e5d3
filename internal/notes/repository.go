package notes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edupulse/backend/internal/models"
)

// SessionRepository implements SessionStore on PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a note session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new note session.
func (r *SessionRepository) Create(ctx context.Context, s *models.NoteSession) error {
	const query = `INSERT INTO note_sessions (title, content, created_by, subject, department_id, is_active_session, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		s.Title, s.Content, s.CreatedBy, s.Subject, s.DepartmentID, s.IsActiveSession).
		Scan(&s.ID, &s.CreatedAt)
}

// GetByID returns a non-deleted session by id, or ErrSessionNotFound.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.NoteSession, error) {
	const query = `SELECT id, title, content, created_by, subject, department_id, is_active_session, ends_at, is_active, created_at
		FROM note_sessions WHERE id = $1 AND is_active`
	var s models.NoteSession
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&s.ID, &s.Title, &s.Content, &s.CreatedBy, &s.Subject, &s.DepartmentID,
			&s.IsActiveSession, &s.EndsAt, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpdateStatus sets the session's active flag and optional end time.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id int64, isActiveSession bool, endsAt *time.Time) error {
	const query = `UPDATE note_sessions SET is_active_session = $2, ends_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, isActiveSession, endsAt)
	return err
}

// SoftDelete hides the session without touching its contributions.
func (r *SessionRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE note_sessions SET is_active = FALSE, is_active_session = FALSE, ends_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ListActive returns active, non-deleted sessions, optionally by subject.
func (r *SessionRepository) ListActive(ctx context.Context, subject string) ([]*models.NoteSession, error) {
	const query = `SELECT id, title, content, created_by, subject, department_id, is_active_session, ends_at, is_active, created_at
		FROM note_sessions WHERE is_active AND is_active_session AND ($1 = '' OR subject = $1) ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.NoteSession
	for rows.Next() {
		var s models.NoteSession
		if err := rows.Scan(&s.ID, &s.Title, &s.Content, &s.CreatedBy, &s.Subject,
			&s.DepartmentID, &s.IsActiveSession, &s.EndsAt, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// ContributionRepository implements ContributionStore on PostgreSQL.
// Contributions are append-only; there are no update or delete queries.
type ContributionRepository struct {
	pool *pgxpool.Pool
}

// NewContributionRepository creates a contribution repository.
func NewContributionRepository(pool *pgxpool.Pool) *ContributionRepository {
	return &ContributionRepository{pool: pool}
}

// Create appends a contribution row.
func (r *ContributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	const query = `INSERT INTO note_contributions (note_id, user_id, content, content_type, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, contributed_at`
	return r.pool.QueryRow(ctx, query,
		c.NoteID, c.UserID, c.Content, c.ContentType, c.Tags).
		Scan(&c.ID, &c.ContributedAt)
}

// ListByNote returns a session's contributions, oldest first.
func (r *ContributionRepository) ListByNote(ctx context.Context, noteID int64) ([]*models.Contribution, error) {
	const query = `SELECT id, note_id, user_id, content, content_type, tags, contributed_at
		FROM note_contributions WHERE note_id = $1 ORDER BY contributed_at`
	rows, err := r.pool.Query(ctx, query, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Contribution
	for rows.Next() {
		var c models.Contribution
		if err := rows.Scan(&c.ID, &c.NoteID, &c.UserID, &c.Content, &c.ContentType,
			&c.Tags, &c.ContributedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
