package models

import "time"

// Channel is a named sub-forum of an App's discussion space. Moderators
// are user references, not owners.
type Channel struct {
	ID           int       `json:"id" db:"id"`
	AppID        int       `json:"app_id" db:"app_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	ModeratorIDs []int     `json:"moderator_ids,omitempty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Discussion struct {
	ID         int       `json:"id" db:"id"`
	ChannelID  int       `json:"channel_id" db:"channel_id"`
	UserID     int       `json:"user_id" db:"user_id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	IsSticky   bool      `json:"is_sticky" db:"is_sticky"`
	IsClosed   bool      `json:"is_closed" db:"is_closed"`
	LastPostID *int      `json:"last_post_id" db:"last_post_id"` // display only, weak reference
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type Post struct {
	ID           int       `json:"id" db:"id"`
	DiscussionID int       `json:"discussion_id" db:"discussion_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Content      string    `json:"content" db:"content"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
