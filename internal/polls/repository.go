package polls

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edupulse/backend/internal/models"
)

// Repository implements PollStore and VoteStore on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new poll.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	const query = `INSERT INTO polls (title, question, options, created_by, subject, department_id, content_id, tags, timer_duration_seconds, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		p.Title, p.Question, p.Options, p.CreatedBy, p.Subject, p.DepartmentID,
		p.ContentID, p.Tags, p.TimerDurationSeconds, p.ExpiresAt).
		Scan(&p.ID, &p.CreatedAt)
}

// GetByID returns a poll by id, or ErrPollNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Poll, error) {
	const query = `SELECT id, title, question, options, created_by, subject, department_id, content_id, tags, timer_duration_seconds, expires_at, is_active, created_at
		FROM polls WHERE id = $1`
	var p models.Poll
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.Title, &p.Question, &p.Options, &p.CreatedBy, &p.Subject,
			&p.DepartmentID, &p.ContentID, &p.Tags, &p.TimerDurationSeconds,
			&p.ExpiresAt, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Close marks a poll inactive. The WHERE clause keeps the transition
// one-way even under concurrent closes.
func (r *Repository) Close(ctx context.Context, id int64) error {
	const query = `UPDATE polls SET is_active = FALSE WHERE id = $1 AND is_active`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ListActive returns active polls, newest first, optionally by subject.
func (r *Repository) ListActive(ctx context.Context, subject string) ([]*models.Poll, error) {
	const query = `SELECT id, title, question, options, created_by, subject, department_id, content_id, tags, timer_duration_seconds, expires_at, is_active, created_at
		FROM polls WHERE is_active AND ($1 = '' OR subject = $1) ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Poll
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Title, &p.Question, &p.Options, &p.CreatedBy,
			&p.Subject, &p.DepartmentID, &p.ContentID, &p.Tags, &p.TimerDurationSeconds,
			&p.ExpiresAt, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Upsert records a vote; a repeated vote by the same user overwrites the
// previous one (last vote wins).
func (r *Repository) Upsert(ctx context.Context, v *models.Vote) error {
	const query = `INSERT INTO poll_votes (poll_id, user_id, option_index, voted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (poll_id, user_id) DO UPDATE SET option_index = EXCLUDED.option_index, voted_at = NOW()`
	_, err := r.pool.Exec(ctx, query, v.PollID, v.UserID, v.OptionIndex)
	return err
}

// CountByOption returns vote counts grouped by option index.
func (r *Repository) CountByOption(ctx context.Context, pollID int64) (map[int]int, error) {
	const query = `SELECT option_index, COUNT(*) FROM poll_votes WHERE poll_id = $1 GROUP BY option_index`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var idx, n int
		if err := rows.Scan(&idx, &n); err != nil {
			return nil, err
		}
		counts[idx] = n
	}
	return counts, rows.Err()
}
