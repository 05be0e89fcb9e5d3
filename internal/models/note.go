package models

import "time"

// Contribution content types.
const (
	ContributionText   = "text"
	ContributionSketch = "sketch"
)

// NoteSession is a collaborative note board opened by a faculty member.
// IsActiveSession gates new contributions; IsActive is the soft-delete flag
// and is independent of IsActiveSession.
type NoteSession struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	CreatedBy       int64      `json:"created_by"`
	Subject         string     `json:"subject"`
	DepartmentID    *int64     `json:"department_id,omitempty"`
	IsActiveSession bool       `json:"is_active_session"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Contribution is an append-only entry in a note session. Contributions are
// never edited or deleted.
type Contribution struct {
	ID            int64     `json:"id"`
	NoteID        int64     `json:"note_id"`
	UserID        int64     `json:"user_id"`
	Content       string    `json:"content"`
	ContentType   string    `json:"content_type"`
	Tags          []string  `json:"tags"`
	ContributedAt time.Time `json:"contributed_at"`
}
