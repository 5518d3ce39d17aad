package models

import "time"

// AchievementProgress is the per-(user, achievement) counter row. It is
// created lazily on the first qualifying event and never deleted.
// UnlockedAt is write-once: once non-null it never changes.
type AchievementProgress struct {
	UserID        int        `json:"user_id" db:"user_id"`
	AchievementID string     `json:"achievement_id" db:"achievement_id"`
	Accumulation  int        `json:"accumulation" db:"accumulation"`
	UnlockedAt    *time.Time `json:"unlocked_at" db:"unlocked_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
