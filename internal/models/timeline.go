package models

import "time"

// TimelineEntry is an append-only per-user activity feed record, written
// in the same transaction as the mutation it describes.
type TimelineEntry struct {
	ID        string    `json:"id" db:"id"` // uuid
	UserID    int       `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"` // "gift.sent", "discussion.created", ...
	Target    string    `json:"target" db:"target"`
	TargetID  int       `json:"target_id" db:"target_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
