package models

import "time"

type User struct {
	ID        int        `json:"id" example:"1"`                   // User ID
	Email     string     `json:"email" example:"user@example.com"` // User email
	Username  string     `json:"username" example:"playerone"`     // Display name
	AvatarURL string     `json:"avatarUrl"`                        // Avatar image path
	Bio       string     `json:"bio"`                              // Profile bio
	IsAdmin   bool       `json:"isAdmin"`                          // Site administrator flag
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
