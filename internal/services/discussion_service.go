package services

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"github.com/gamehive/backend/internal/events"
	"github.com/gamehive/backend/internal/models"
	"github.com/gamehive/backend/internal/moderation"
)

// Sanitizer cleans user-supplied content before it is persisted. The real
// implementation lives outside this core; the default just trims.
type Sanitizer func(html string) string

func DefaultSanitizer(html string) string {
	return strings.TrimSpace(html)
}

// DiscussionService owns the discussion/post lifecycle: creation, the
// open/closed and sticky transitions, and deletion with cascading
// cleanup. Authorization is consulted synchronously before any mutation;
// domain events are published only after the transaction commits.
type DiscussionService struct {
	db       *sql.DB
	bus      *events.Bus
	notifier *NotificationService
	sanitize Sanitizer
}

func NewDiscussionService(db *sql.DB, bus *events.Bus, notifier *NotificationService, sanitize Sanitizer) *DiscussionService {
	if sanitize == nil {
		sanitize = DefaultSanitizer
	}
	return &DiscussionService{
		db:       db,
		bus:      bus,
		notifier: notifier,
		sanitize: sanitize,
	}
}

// CreateDiscussion opens a new discussion in the channel and writes the
// author's timeline entry in the same transaction.
func (s *DiscussionService) CreateDiscussion(channelID, userID int, title, content string) (models.Discussion, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM channels WHERE id = $1)`, channelID).Scan(&exists); err != nil {
		return models.Discussion{}, fmt.Errorf("channel lookup failed: %w", err)
	}
	if !exists {
		return models.Discussion{}, ErrChannelNotFound
	}

	discussion := models.Discussion{
		ChannelID: channelID,
		UserID:    userID,
		Title:     s.sanitize(title),
		Content:   s.sanitize(content),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Discussion{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
		INSERT INTO discussions (channel_id, user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		discussion.ChannelID, discussion.UserID, discussion.Title, discussion.Content).
		Scan(&discussion.ID, &discussion.CreatedAt, &discussion.UpdatedAt)
	if err != nil {
		return models.Discussion{}, fmt.Errorf("discussion insert failed: %w", err)
	}

	if err := insertTimelineEntry(tx, userID, "discussion.created", "discussion", discussion.ID); err != nil {
		return models.Discussion{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Discussion{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[FORUM] User %d created discussion %d in channel %d", userID, discussion.ID, channelID)

	s.bus.Publish(events.DiscussionCreated, discussion)
	s.notifier.AddFollowingNotification(FollowingNotification{
		Action:   "discussion.created",
		Target:   "discussion",
		TargetID: discussion.ID,
		Title:    discussion.Title,
		Content:  discussion.Content,
		URL:      fmt.Sprintf("/discussions/%d", discussion.ID),
	})

	return discussion, nil
}

// CloseDiscussion sets or clears the closed flag. Moderators and the
// owner may close; posts are untouched.
func (s *DiscussionService) CloseDiscussion(id int, operator moderation.Operator, isClosed bool) error {
	subject, _, err := s.loadDiscussionSubject(id)
	if err != nil {
		return err
	}
	if !moderation.CanOperate(subject, operator, moderation.OpClose) {
		return ErrForbidden
	}

	if _, err := s.db.Exec(`UPDATE discussions SET is_closed = $1, updated_at = NOW() WHERE id = $2`, isClosed, id); err != nil {
		return fmt.Errorf("close update failed: %w", err)
	}

	log.Printf("[FORUM] Operator %d set discussion %d closed=%t", operator.ID, id, isClosed)
	return nil
}

// StickyDiscussion sets or clears the sticky flag. Moderator-only, even
// for the owner. The discussion.sticky event fires only on the
// false-to-true transition.
func (s *DiscussionService) StickyDiscussion(id int, operator moderation.Operator, isSticky bool) error {
	subject, discussion, err := s.loadDiscussionSubject(id)
	if err != nil {
		return err
	}
	if !moderation.CanOperate(subject, operator, moderation.OpSticky) {
		return ErrForbidden
	}

	wasSticky := discussion.IsSticky
	if _, err := s.db.Exec(`UPDATE discussions SET is_sticky = $1, updated_at = NOW() WHERE id = $2`, isSticky, id); err != nil {
		return fmt.Errorf("sticky update failed: %w", err)
	}

	log.Printf("[FORUM] Operator %d set discussion %d sticky=%t", operator.ID, id, isSticky)

	if isSticky && !wasSticky {
		discussion.IsSticky = true
		s.bus.Publish(events.DiscussionSticky, discussion)
	}
	return nil
}

// CreatePost appends a post to an open discussion, maintaining the
// discussion's last_post_id pointer and the author's timeline entry in
// one transaction.
func (s *DiscussionService) CreatePost(discussionID, userID int, content string) (models.Post, error) {
	discussion, err := s.GetDiscussion(discussionID)
	if err != nil {
		return models.Post{}, err
	}
	if discussion.IsClosed {
		return models.Post{}, ErrDiscussionClosed
	}

	post := models.Post{
		DiscussionID: discussionID,
		UserID:       userID,
		Content:      s.sanitize(content),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-check under a row lock so a concurrent close cannot admit the post.
	var isClosed bool
	err = tx.QueryRow(`SELECT is_closed FROM discussions WHERE id = $1 FOR UPDATE`, discussionID).Scan(&isClosed)
	if err == sql.ErrNoRows {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("discussion lock failed: %w", err)
	}
	if isClosed {
		return models.Post{}, ErrDiscussionClosed
	}

	err = tx.QueryRow(`
		INSERT INTO posts (discussion_id, user_id, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`,
		post.DiscussionID, post.UserID, post.Content).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return models.Post{}, fmt.Errorf("post insert failed: %w", err)
	}

	if _, err := tx.Exec(`UPDATE discussions SET last_post_id = $1, updated_at = NOW() WHERE id = $2`, post.ID, discussionID); err != nil {
		return models.Post{}, fmt.Errorf("last post update failed: %w", err)
	}

	if err := insertTimelineEntry(tx, userID, "post.created", "post", post.ID); err != nil {
		return models.Post{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Post{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[FORUM] User %d posted %d in discussion %d", userID, post.ID, discussionID)

	s.bus.Publish(events.PostCreated, post)
	s.notifier.AddFollowingNotification(FollowingNotification{
		Action:   "post.created",
		Target:   "post",
		TargetID: post.ID,
		Title:    discussion.Title,
		Content:  post.Content,
		URL:      fmt.Sprintf("/discussions/%d", discussionID),
	})
	if userID != discussion.UserID {
		s.notifier.AddReactionNotification(ReactionNotification{
			Action:   "reply",
			UserID:   discussion.UserID,
			Target:   "discussion",
			TargetID: discussionID,
			Content:  post.Content,
			URL:      fmt.Sprintf("/discussions/%d", discussionID),
		})
	}

	return post, nil
}

// DeletePost removes a post with its dependent reports, thumbs and gift
// relations, recomputes the discussion's last_post_id, and removes the
// author's timeline entry, all in one transaction.
func (s *DiscussionService) DeletePost(postID int, operator moderation.Operator) error {
	subject, post, err := s.loadPostSubject(postID)
	if err != nil {
		return err
	}
	if !moderation.CanOperate(subject, operator, moderation.OpDelete) {
		return ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The most recent remaining post, or null when this was the last one.
	var newLastPostID *int
	err = tx.QueryRow(`
		SELECT id FROM posts
		WHERE discussion_id = $1 AND id <> $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, post.DiscussionID, postID).Scan(&newLastPostID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("last post recompute failed: %w", err)
	}

	if _, err := tx.Exec(`UPDATE discussions SET last_post_id = $1, updated_at = NOW() WHERE id = $2`, newLastPostID, post.DiscussionID); err != nil {
		return fmt.Errorf("last post update failed: %w", err)
	}

	if err := deleteContentDependents(tx, "post", postID); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM posts WHERE id = $1`, postID); err != nil {
		return fmt.Errorf("post delete failed: %w", err)
	}

	if err := deleteTimelineEntry(tx, post.UserID, "post", postID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[FORUM] Operator %d deleted post %d", operator.ID, postID)
	return nil
}

// DeleteDiscussion removes a discussion, every post under it and all
// post-level dependents, and the owner's timeline entry, atomically.
func (s *DiscussionService) DeleteDiscussion(id int, operator moderation.Operator) error {
	subject, discussion, err := s.loadDiscussionSubject(id)
	if err != nil {
		return err
	}
	if !moderation.CanOperate(subject, operator, moderation.OpDelete) {
		return ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"reports", "thumbs", "gift_relations"} {
		query := fmt.Sprintf(`
			DELETE FROM %s
			WHERE target = 'post' AND target_id IN (SELECT id FROM posts WHERE discussion_id = $1)`, table)
		if _, err := tx.Exec(query, id); err != nil {
			return fmt.Errorf("%s cascade failed: %w", table, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM posts WHERE discussion_id = $1`, id); err != nil {
		return fmt.Errorf("posts delete failed: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM discussions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("discussion delete failed: %w", err)
	}

	if err := deleteTimelineEntry(tx, discussion.UserID, "discussion", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[FORUM] Operator %d deleted discussion %d", operator.ID, id)
	return nil
}

// GetDiscussion fetches one discussion.
func (s *DiscussionService) GetDiscussion(id int) (models.Discussion, error) {
	var d models.Discussion
	err := s.db.QueryRow(`
		SELECT id, channel_id, user_id, title, content, is_sticky, is_closed, last_post_id, created_at, updated_at
		FROM discussions WHERE id = $1`, id).
		Scan(&d.ID, &d.ChannelID, &d.UserID, &d.Title, &d.Content, &d.IsSticky, &d.IsClosed, &d.LastPostID, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Discussion{}, ErrNotFound
	}
	if err != nil {
		return models.Discussion{}, fmt.Errorf("discussion lookup failed: %w", err)
	}
	return d, nil
}

// ListDiscussions returns a channel's discussions, sticky first, newest
// activity next.
func (s *DiscussionService) ListDiscussions(channelID, limit int) ([]models.Discussion, error) {
	rows, err := s.db.Query(`
		SELECT id, channel_id, user_id, title, content, is_sticky, is_closed, last_post_id, created_at, updated_at
		FROM discussions
		WHERE channel_id = $1
		ORDER BY is_sticky DESC, updated_at DESC
		LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("discussion query failed: %w", err)
	}
	defer rows.Close()

	discussions := []models.Discussion{}
	for rows.Next() {
		var d models.Discussion
		if err := rows.Scan(&d.ID, &d.ChannelID, &d.UserID, &d.Title, &d.Content, &d.IsSticky, &d.IsClosed, &d.LastPostID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		discussions = append(discussions, d)
	}
	return discussions, rows.Err()
}

// ListPosts returns a discussion's posts in posting order.
func (s *DiscussionService) ListPosts(discussionID, limit int) ([]models.Post, error) {
	rows, err := s.db.Query(`
		SELECT id, discussion_id, user_id, content, created_at
		FROM posts
		WHERE discussion_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`, discussionID, limit)
	if err != nil {
		return nil, fmt.Errorf("post query failed: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.DiscussionID, &p.UserID, &p.Content, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ThumbCount returns the thumb aggregate for one piece of content.
func (s *DiscussionService) ThumbCount(target string, targetID int) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM thumbs WHERE target = $1 AND target_id = $2`, target, targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("thumb count query failed: %w", err)
	}
	return count, nil
}

// loadDiscussionSubject hydrates the authorization subject for a
// discussion: owner plus the channel's moderator set, in one query.
func (s *DiscussionService) loadDiscussionSubject(id int) (moderation.Subject, models.Discussion, error) {
	discussion, err := s.GetDiscussion(id)
	if err != nil {
		return moderation.Subject{}, models.Discussion{}, err
	}

	moderatorIDs, err := channelModeratorIDs(s.db, discussion.ChannelID)
	if err != nil {
		return moderation.Subject{}, models.Discussion{}, err
	}

	return moderation.Subject{
		Kind:         moderation.KindDiscussion,
		OwnerID:      discussion.UserID,
		ModeratorIDs: moderatorIDs,
	}, discussion, nil
}

// loadPostSubject hydrates the authorization subject for a post: the
// post's author plus the owning discussion's channel moderators.
func (s *DiscussionService) loadPostSubject(postID int) (moderation.Subject, models.Post, error) {
	var post models.Post
	var channelID int
	err := s.db.QueryRow(`
		SELECT p.id, p.discussion_id, p.user_id, p.content, p.created_at, d.channel_id
		FROM posts p
		JOIN discussions d ON d.id = p.discussion_id
		WHERE p.id = $1`, postID).
		Scan(&post.ID, &post.DiscussionID, &post.UserID, &post.Content, &post.CreatedAt, &channelID)
	if err == sql.ErrNoRows {
		return moderation.Subject{}, models.Post{}, ErrNotFound
	}
	if err != nil {
		return moderation.Subject{}, models.Post{}, fmt.Errorf("post lookup failed: %w", err)
	}

	moderatorIDs, err := channelModeratorIDs(s.db, channelID)
	if err != nil {
		return moderation.Subject{}, models.Post{}, err
	}

	return moderation.Subject{
		Kind:         moderation.KindPost,
		OwnerID:      post.UserID,
		ModeratorIDs: moderatorIDs,
	}, post, nil
}

func channelModeratorIDs(db *sql.DB, channelID int) ([]int, error) {
	var ids pq.Int64Array
	err := db.QueryRow(`
		SELECT COALESCE(ARRAY_AGG(user_id), '{}')
		FROM channel_moderators
		WHERE channel_id = $1`, channelID).Scan(&ids)
	if err != nil {
		return nil, fmt.Errorf("moderator lookup failed: %w", err)
	}

	moderatorIDs := make([]int, 0, len(ids))
	for _, id := range ids {
		moderatorIDs = append(moderatorIDs, int(id))
	}
	return moderatorIDs, nil
}

// LoadOperator hydrates the moderation operator for a user id.
func LoadOperator(db *sql.DB, userID int) (moderation.Operator, error) {
	var isAdmin bool
	err := db.QueryRow(`SELECT is_admin FROM users WHERE id = $1`, userID).Scan(&isAdmin)
	if err == sql.ErrNoRows {
		return moderation.Operator{}, ErrNotFound
	}
	if err != nil {
		return moderation.Operator{}, fmt.Errorf("operator lookup failed: %w", err)
	}
	return moderation.Operator{ID: userID, IsAdmin: isAdmin}, nil
}

func deleteContentDependents(tx *sql.Tx, target string, targetID int) error {
	for _, table := range []string{"reports", "thumbs", "gift_relations"} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE target = $1 AND target_id = $2`, table)
		if _, err := tx.Exec(query, target, targetID); err != nil {
			return fmt.Errorf("%s cascade failed: %w", table, err)
		}
	}
	return nil
}
