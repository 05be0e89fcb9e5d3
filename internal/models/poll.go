package models

import "time"

// DefaultPollTimerSeconds is the auto-close timer applied when a poll is
// created without an explicit duration.
const DefaultPollTimerSeconds = 30

// Option is one answer choice of a poll. Index is the option's position in
// the poll's option list and is what votes reference.
type Option struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Poll represents a timed multiple-choice poll in a class.
// IsActive transitions true -> false exactly once and never back.
type Poll struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Question             string    `json:"question"`
	Options              []Option  `json:"options"`
	CreatedBy            int64     `json:"created_by"`
	Subject              string    `json:"subject"`
	DepartmentID         *int64    `json:"department_id,omitempty"`
	ContentID            *int64    `json:"content_id,omitempty"`
	Tags                 []string  `json:"tags"`
	TimerDurationSeconds int       `json:"timer_duration_seconds"`
	ExpiresAt            time.Time `json:"expires_at"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// Vote is a user's answer to a poll. At most one row exists per
// (poll_id, user_id); a repeated vote overwrites the previous one.
type Vote struct {
	PollID      int64     `json:"poll_id"`
	UserID      int64     `json:"user_id"`
	OptionIndex int       `json:"option_index"`
	VotedAt     time.Time `json:"voted_at"`
}

// PollResults is the tally for a poll, keyed by option text for display.
// Options sharing the same text collapse into one counter.
type PollResults struct {
	Poll        *Poll          `json:"poll"`
	Votes       map[string]int `json:"votes"`
	Total       int            `json:"total"`
	Percentages map[string]int `json:"percentages"`
}
