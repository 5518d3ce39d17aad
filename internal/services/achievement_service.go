package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gamehive/backend/internal/events"
	"github.com/gamehive/backend/internal/models"
)

// AchievementID is the stable identifier of an achievement definition.
type AchievementID string

const (
	AchievementFirstLogin      AchievementID = "first-login"
	AchievementFirstReview     AchievementID = "first-review"
	AchievementTenReviews      AchievementID = "ten-reviews"
	AchievementFirstDiscussion AchievementID = "first-discussion"
	AchievementTenDiscussions  AchievementID = "ten-discussions"
	AchievementFirstSticky     AchievementID = "first-sticky"
)

// AchievementDefinition is static reference data: criteria is the
// accumulation threshold that unlocks the achievement.
type AchievementDefinition struct {
	ID       AchievementID
	Name     string
	Criteria int
	Message  string
}

var achievementDefinitions = []AchievementDefinition{
	{AchievementFirstLogin, "Welcome Aboard", 1, "You joined the hive!"},
	{AchievementFirstReview, "First Take", 1, "You published your first review."},
	{AchievementTenReviews, "Seasoned Critic", 10, "Ten reviews published."},
	{AchievementFirstDiscussion, "Conversation Starter", 1, "You opened your first discussion."},
	{AchievementTenDiscussions, "Regular", 10, "Ten discussions opened."},
	{AchievementFirstSticky, "Pinned!", 1, "A moderator pinned your discussion."},
}

func definitionByID(id AchievementID) (AchievementDefinition, bool) {
	for _, def := range achievementDefinitions {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDefinition{}, false
}

// AchievementService maintains per-user progress counters and unlocks
// achievements idempotently. It consumes domain events from the bus; its
// failures are contained by the bus and never surface to the publisher.
type AchievementService struct {
	db       *sql.DB
	notifier *NotificationService
}

func NewAchievementService(db *sql.DB, notifier *NotificationService) *AchievementService {
	return &AchievementService{db: db, notifier: notifier}
}

// Register subscribes the engine to the domain events it cares about.
func (s *AchievementService) Register(bus *events.Bus) {
	bus.Subscribe(events.UserRegistered, s.onUserRegistered)
	bus.Subscribe(events.ReviewCreated, s.onReviewCreated)
	bus.Subscribe(events.DiscussionCreated, s.onDiscussionCreated)
	bus.Subscribe(events.DiscussionSticky, s.onDiscussionSticky)
}

func (s *AchievementService) onUserRegistered(payload any) error {
	user, ok := payload.(models.User)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, events.UserRegistered)
	}
	return s.progress(user.ID, AchievementFirstLogin)
}

func (s *AchievementService) onReviewCreated(payload any) error {
	review, ok := payload.(models.Review)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, events.ReviewCreated)
	}
	return s.progress(review.UserID, AchievementFirstReview, AchievementTenReviews)
}

func (s *AchievementService) onDiscussionCreated(payload any) error {
	discussion, ok := payload.(models.Discussion)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, events.DiscussionCreated)
	}
	return s.progress(discussion.UserID, AchievementFirstDiscussion, AchievementTenDiscussions)
}

func (s *AchievementService) onDiscussionSticky(payload any) error {
	discussion, ok := payload.(models.Discussion)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, events.DiscussionSticky)
	}
	// The pinned discussion's owner earns the achievement, not the
	// moderator who pinned it.
	return s.progress(discussion.UserID, AchievementFirstSticky)
}

func (s *AchievementService) progress(userID int, ids ...AchievementID) error {
	var firstErr error
	for _, id := range ids {
		if err := s.advance(userID, id); err != nil {
			log.Printf("[ACHIEVEMENT] Failed to advance %s for user %d: %v", id, userID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// advance increments the (user, achievement) counter and, when the
// counter crosses the criteria, attempts the null-to-non-null unlock
// transition. The unlock UPDATE is conditioned on unlocked_at IS NULL so
// two concurrent crossings cannot both win; only the winner notifies.
// Accumulation keeps counting past the threshold for progress display.
func (s *AchievementService) advance(userID int, id AchievementID) error {
	def, ok := definitionByID(id)
	if !ok {
		return fmt.Errorf("unknown achievement %q", id)
	}

	unlockAt := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var accumulation int
	var unlockedAt *time.Time
	err = tx.QueryRow(`
		INSERT INTO achievement_progress (user_id, achievement_id, accumulation, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id, achievement_id)
		DO UPDATE SET accumulation = achievement_progress.accumulation + 1, updated_at = NOW()
		RETURNING accumulation, unlocked_at`,
		userID, string(id)).Scan(&accumulation, &unlockedAt)
	if err != nil {
		return fmt.Errorf("progress upsert failed: %w", err)
	}

	unlocked := false
	if accumulation >= def.Criteria && unlockedAt == nil {
		result, err := tx.Exec(`
			UPDATE achievement_progress
			SET unlocked_at = $3
			WHERE user_id = $1 AND achievement_id = $2 AND unlocked_at IS NULL`,
			userID, string(id), unlockAt)
		if err != nil {
			return fmt.Errorf("unlock update failed: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		// Zero rows means a concurrent event won the transition; that
		// caller sends the notification, not this one.
		unlocked = rowsAffected == 1
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if unlocked {
		log.Printf("[ACHIEVEMENT] User %d unlocked %s", userID, def.Name)
		s.notifier.AddSystemNotification(SystemNotification{
			UserID:  userID,
			Title:   fmt.Sprintf("Achievement unlocked: %s", def.Name),
			Content: def.Message,
		})
	}

	return nil
}

// UserProgress pairs a progress row with its static definition.
type UserProgress struct {
	Definition AchievementDefinition      `json:"definition"`
	Progress   models.AchievementProgress `json:"progress"`
}

// ListProgress returns the user's progress for every achievement they
// have touched, newest activity first.
func (s *AchievementService) ListProgress(userID int) ([]UserProgress, error) {
	rows, err := s.db.Query(`
		SELECT user_id, achievement_id, accumulation, unlocked_at, updated_at
		FROM achievement_progress
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("progress query failed: %w", err)
	}
	defer rows.Close()

	progress := []UserProgress{}
	for rows.Next() {
		var p models.AchievementProgress
		if err := rows.Scan(&p.UserID, &p.AchievementID, &p.Accumulation, &p.UnlockedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		def, ok := definitionByID(AchievementID(p.AchievementID))
		if !ok {
			// Row for a retired definition; skip rather than fail the
			// whole listing.
			continue
		}
		progress = append(progress, UserProgress{Definition: def, Progress: p})
	}
	return progress, rows.Err()
}
