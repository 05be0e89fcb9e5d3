package models

import "time"

// ContentSummary is the read model returned when looking up course material
// related to a poll by tag overlap.
type ContentSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}
