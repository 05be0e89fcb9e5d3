// Package content provides the read-only lookup of course material used to
// suggest content related to a poll by tag overlap. Content upload and
// metadata management live in a separate service.
package content

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edupulse/backend/internal/models"
)

// Repository reads course content summaries from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a content repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByTagOverlap returns content whose tags share at least one entry with
// tagList, most-recent first.
func (r *Repository) FindByTagOverlap(ctx context.Context, tagList []string, limit int) ([]*models.ContentSummary, error) {
	const query = `SELECT id, title, subject, tags, created_at
		FROM contents WHERE tags && $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, tagList, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ContentSummary
	for rows.Next() {
		var cs models.ContentSummary
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.Subject, &cs.Tags, &cs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &cs)
	}
	return out, rows.Err()
}
