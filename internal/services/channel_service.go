package services

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gamehive/backend/internal/models"
	"github.com/gamehive/backend/internal/moderation"
)

// ChannelService manages an App's discussion channels and their
// moderator links.
type ChannelService struct {
	db *sql.DB
}

func NewChannelService(db *sql.DB) *ChannelService {
	return &ChannelService{db: db}
}

// CreateChannel adds a channel to an App. Admin-only.
func (s *ChannelService) CreateChannel(appID int, name, description string, operator moderation.Operator) (models.Channel, error) {
	if !operator.IsAdmin {
		return models.Channel{}, ErrForbidden
	}

	channel := models.Channel{AppID: appID, Name: name, Description: description}
	err := s.db.QueryRow(`
		INSERT INTO channels (app_id, name, description, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`,
		appID, name, description).Scan(&channel.ID, &channel.CreatedAt)
	if err != nil {
		return models.Channel{}, fmt.Errorf("channel insert failed: %w", err)
	}

	log.Printf("[CHANNEL] Admin %d created channel %d for app %d", operator.ID, channel.ID, appID)
	return channel, nil
}

// UpdateChannel renames or re-describes a channel. Moderator-only:
// channels carry no owner-based permission.
func (s *ChannelService) UpdateChannel(channelID int, operator moderation.Operator, name, description string) error {
	subject, err := s.loadChannelSubject(channelID)
	if err != nil {
		return err
	}
	if !moderation.CanOperate(subject, operator, moderation.OpUpdate) {
		return ErrForbidden
	}

	if _, err := s.db.Exec(`UPDATE channels SET name = $1, description = $2 WHERE id = $3`, name, description, channelID); err != nil {
		return fmt.Errorf("channel update failed: %w", err)
	}
	return nil
}

// AddModerator grants a user moderation authority over a channel.
// Admin-only.
func (s *ChannelService) AddModerator(channelID, userID int, operator moderation.Operator) error {
	if !operator.IsAdmin {
		return ErrForbidden
	}

	if _, err := s.db.Exec(`
		INSERT INTO channel_moderators (channel_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (channel_id, user_id) DO NOTHING`,
		channelID, userID); err != nil {
		return fmt.Errorf("moderator insert failed: %w", err)
	}

	log.Printf("[CHANNEL] Admin %d made user %d a moderator of channel %d", operator.ID, userID, channelID)
	return nil
}

// RemoveModerator revokes a user's moderation authority. Admin-only.
func (s *ChannelService) RemoveModerator(channelID, userID int, operator moderation.Operator) error {
	if !operator.IsAdmin {
		return ErrForbidden
	}

	if _, err := s.db.Exec(`DELETE FROM channel_moderators WHERE channel_id = $1 AND user_id = $2`, channelID, userID); err != nil {
		return fmt.Errorf("moderator delete failed: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel. When sibling channels exist, the
// channel's discussions are migrated to destinationChannelID first; when
// the channel is the App's only one, deletion is allowed only once no
// discussion references it. Everything happens in one transaction.
func (s *ChannelService) DeleteChannel(channelID, appID int, destinationChannelID *int, operator moderation.Operator) error {
	if !operator.IsAdmin {
		return ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM channels WHERE id = $1 AND app_id = $2)`, channelID, appID).Scan(&exists); err != nil {
		return fmt.Errorf("channel lookup failed: %w", err)
	}
	if !exists {
		return ErrChannelNotFound
	}

	var siblingCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM channels WHERE app_id = $1 AND id <> $2`, appID, channelID).Scan(&siblingCount); err != nil {
		return fmt.Errorf("sibling count failed: %w", err)
	}

	if siblingCount == 0 {
		// Every App keeps at least one channel while discussions exist.
		var discussionCount int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM discussions WHERE channel_id = $1`, channelID).Scan(&discussionCount); err != nil {
			return fmt.Errorf("discussion count failed: %w", err)
		}
		if discussionCount > 0 {
			return ErrLastChannelIsNotEmpty
		}
	} else {
		if destinationChannelID == nil {
			return ErrChannelNotFound
		}
		var destExists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM channels WHERE id = $1 AND app_id = $2)`, *destinationChannelID, appID).Scan(&destExists); err != nil {
			return fmt.Errorf("destination lookup failed: %w", err)
		}
		if !destExists || *destinationChannelID == channelID {
			return ErrChannelNotFound
		}

		if _, err := tx.Exec(`UPDATE discussions SET channel_id = $1, updated_at = NOW() WHERE channel_id = $2`, *destinationChannelID, channelID); err != nil {
			return fmt.Errorf("discussion migration failed: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM channel_moderators WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("moderator cascade failed: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM channels WHERE id = $1`, channelID); err != nil {
		return fmt.Errorf("channel delete failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[CHANNEL] Admin %d deleted channel %d (app %d)", operator.ID, channelID, appID)
	return nil
}

// ListChannels returns an App's channels with their moderator sets.
func (s *ChannelService) ListChannels(appID int) ([]models.Channel, error) {
	rows, err := s.db.Query(`
		SELECT id, app_id, name, description, created_at
		FROM channels
		WHERE app_id = $1
		ORDER BY id ASC`, appID)
	if err != nil {
		return nil, fmt.Errorf("channel query failed: %w", err)
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var c models.Channel
		if err := rows.Scan(&c.ID, &c.AppID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range channels {
		moderatorIDs, err := channelModeratorIDs(s.db, channels[i].ID)
		if err != nil {
			return nil, err
		}
		channels[i].ModeratorIDs = moderatorIDs
	}
	return channels, nil
}

func (s *ChannelService) loadChannelSubject(channelID int) (moderation.Subject, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM channels WHERE id = $1)`, channelID).Scan(&exists); err != nil {
		return moderation.Subject{}, fmt.Errorf("channel lookup failed: %w", err)
	}
	if !exists {
		return moderation.Subject{}, ErrChannelNotFound
	}

	moderatorIDs, err := channelModeratorIDs(s.db, channelID)
	if err != nil {
		return moderation.Subject{}, err
	}

	return moderation.Subject{
		Kind:         moderation.KindChannel,
		ModeratorIDs: moderatorIDs,
	}, nil
}
