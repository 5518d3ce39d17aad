package services

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gamehive/backend/internal/events"
	"github.com/gamehive/backend/internal/models"
	"github.com/gamehive/backend/internal/moderation"
)

// ReviewService owns reviews and their comments. Reviews follow the same
// lifecycle shape as discussions: owner-scoped content, timeline entry in
// the creation transaction, event after commit, cascading cleanup on
// delete. Reviews have no channel, so deletion is owner-or-admin.
type ReviewService struct {
	db       *sql.DB
	bus      *events.Bus
	notifier *NotificationService
	sanitize Sanitizer
}

func NewReviewService(db *sql.DB, bus *events.Bus, notifier *NotificationService, sanitize Sanitizer) *ReviewService {
	if sanitize == nil {
		sanitize = DefaultSanitizer
	}
	return &ReviewService{
		db:       db,
		bus:      bus,
		notifier: notifier,
		sanitize: sanitize,
	}
}

// CreateReview publishes a review for an App and writes the author's
// timeline entry in the same transaction.
func (s *ReviewService) CreateReview(appID, userID int, title, content string, rating int) (models.Review, error) {
	if rating < 1 || rating > 5 {
		return models.Review{}, fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	review := models.Review{
		AppID:   appID,
		UserID:  userID,
		Title:   s.sanitize(title),
		Content: s.sanitize(content),
		Rating:  rating,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Review{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
		INSERT INTO reviews (app_id, user_id, title, content, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		review.AppID, review.UserID, review.Title, review.Content, review.Rating).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return models.Review{}, fmt.Errorf("review insert failed: %w", err)
	}

	if err := insertTimelineEntry(tx, userID, "review.created", "review", review.ID); err != nil {
		return models.Review{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Review{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[REVIEW] User %d reviewed app %d (review %d)", userID, appID, review.ID)

	s.bus.Publish(events.ReviewCreated, review)
	s.notifier.AddFollowingNotification(FollowingNotification{
		Action:   "review.created",
		Target:   "review",
		TargetID: review.ID,
		Title:    review.Title,
		Content:  review.Content,
		URL:      fmt.Sprintf("/reviews/%d", review.ID),
	})

	return review, nil
}

// UpdateReview edits a review. Owner-or-admin.
func (s *ReviewService) UpdateReview(id int, operator moderation.Operator, title, content string, rating int) error {
	review, err := s.GetReview(id)
	if err != nil {
		return err
	}
	if !operator.IsAdmin && operator.ID != review.UserID {
		return ErrForbidden
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	if _, err := s.db.Exec(`
		UPDATE reviews SET title = $1, content = $2, rating = $3, updated_at = NOW()
		WHERE id = $4`,
		s.sanitize(title), s.sanitize(content), rating, id); err != nil {
		return fmt.Errorf("review update failed: %w", err)
	}
	return nil
}

// DeleteReview removes a review, its comments, its dependent
// reports/thumbs/gift relations and the owner's timeline entry,
// atomically. Owner-or-admin.
func (s *ReviewService) DeleteReview(id int, operator moderation.Operator) error {
	review, err := s.GetReview(id)
	if err != nil {
		return err
	}
	if !operator.IsAdmin && operator.ID != review.UserID {
		return ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteContentDependents(tx, "review", id); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM comments WHERE review_id = $1`, id); err != nil {
		return fmt.Errorf("comment cascade failed: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("review delete failed: %w", err)
	}

	if err := deleteTimelineEntry(tx, review.UserID, "review", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[REVIEW] Operator %d deleted review %d", operator.ID, id)
	return nil
}

// CreateComment adds a comment to a review and notifies the review's
// owner.
func (s *ReviewService) CreateComment(reviewID, userID int, content string) (models.Comment, error) {
	review, err := s.GetReview(reviewID)
	if err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{
		ReviewID: reviewID,
		UserID:   userID,
		Content:  s.sanitize(content),
	}

	err = s.db.QueryRow(`
		INSERT INTO comments (review_id, user_id, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`,
		comment.ReviewID, comment.UserID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("comment insert failed: %w", err)
	}

	if userID != review.UserID {
		s.notifier.AddReactionNotification(ReactionNotification{
			Action:   "comment",
			UserID:   review.UserID,
			Target:   "review",
			TargetID: reviewID,
			Content:  comment.Content,
			URL:      fmt.Sprintf("/reviews/%d", reviewID),
		})
	}

	return comment, nil
}

// DeleteComment removes one comment. Owner-or-admin.
func (s *ReviewService) DeleteComment(id int, operator moderation.Operator) error {
	var ownerID int
	err := s.db.QueryRow(`SELECT user_id FROM comments WHERE id = $1`, id).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("comment lookup failed: %w", err)
	}
	if !operator.IsAdmin && operator.ID != ownerID {
		return ErrForbidden
	}

	if _, err := s.db.Exec(`DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("comment delete failed: %w", err)
	}
	return nil
}

// GetReview fetches one review.
func (s *ReviewService) GetReview(id int) (models.Review, error) {
	var r models.Review
	err := s.db.QueryRow(`
		SELECT id, app_id, user_id, title, content, rating, created_at, updated_at
		FROM reviews WHERE id = $1`, id).
		Scan(&r.ID, &r.AppID, &r.UserID, &r.Title, &r.Content, &r.Rating, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Review{}, ErrNotFound
	}
	if err != nil {
		return models.Review{}, fmt.Errorf("review lookup failed: %w", err)
	}
	return r, nil
}

// ListReviews returns an App's reviews, newest first.
func (s *ReviewService) ListReviews(appID, limit int) ([]models.Review, error) {
	rows, err := s.db.Query(`
		SELECT id, app_id, user_id, title, content, rating, created_at, updated_at
		FROM reviews
		WHERE app_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, appID, limit)
	if err != nil {
		return nil, fmt.Errorf("review query failed: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.AppID, &r.UserID, &r.Title, &r.Content, &r.Rating, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
