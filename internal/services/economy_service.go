package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/gamehive/backend/internal/config"
	"github.com/gamehive/backend/internal/models"
)

// Target kinds a gift can be attached to.
const (
	TargetPost   = "post"
	TargetReview = "review"
	TargetUser   = "user"
)

const giftCatalogCacheKey = "gifts:catalog"

// EconomyService owns every balance mutation. Balances change only here,
// inside one SQL transaction together with the ledger entry and any
// dependent relation rows, so a failure in any step persists nothing.
type EconomyService struct {
	db       *sql.DB
	redis    *redis.Client
	notifier *NotificationService
	audit    *AuditLogger
	cfg      *config.EconomyConfig
}

func NewEconomyService(db *sql.DB, redisClient *redis.Client, notifier *NotificationService, cfg *config.EconomyConfig) *EconomyService {
	return &EconomyService{
		db:       db,
		redis:    redisClient,
		notifier: notifier,
		audit:    NewAuditLogger(),
		cfg:      cfg,
	}
}

// GiftCount is the aggregate of one gift kind attached to a piece of
// content.
type GiftCount struct {
	GiftID  int    `json:"gift_id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
	Count   int    `json:"count"`
}

// SendGift debits the sender by the gift's price and records the ledger
// entry, the gift relation and the sender's timeline entry in one
// transaction. The debit statement itself enforces balance >= 0: the
// UPDATE only matches when the sender can afford the gift, so a negative
// balance can never persist, not even transiently.
func (s *EconomyService) SendGift(senderUserID, giftID int, target string, targetID int) error {
	if target != TargetPost && target != TargetReview {
		return fmt.Errorf("%w: unsupported gift target %q", ErrNotFound, target)
	}

	var gift models.Gift
	err := s.db.QueryRow(`SELECT id, name, icon_url, price FROM gifts WHERE id = $1`, giftID).
		Scan(&gift.ID, &gift.Name, &gift.IconURL, &gift.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrGiftNotFound
		}
		return fmt.Errorf("gift lookup failed: %w", err)
	}

	ownerID, err := s.contentOwner(target, targetID)
	if err != nil {
		return err
	}

	transactionID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The balance check and decrement are one statement. Zero rows
	// affected means the sender cannot afford the gift.
	result, err := tx.Exec(`
		UPDATE balances
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1`,
		gift.Price, senderUserID)
	if err != nil {
		return fmt.Errorf("balance debit failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		s.audit.LogError(transactionID, senderUserID, ErrInsufficientBalance)
		return ErrInsufficientBalance
	}

	if err := insertLedgerEntry(tx, transactionID, senderUserID, target, targetID, gift.Price, models.LedgerKindDebitPurchase); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO gift_relations (user_id, gift_id, target, target_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		senderUserID, gift.ID, target, targetID); err != nil {
		return fmt.Errorf("gift relation insert failed: %w", err)
	}

	if err := insertTimelineEntry(tx, senderUserID, "gift.sent", target, targetID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.audit.LogDebit(transactionID, senderUserID, target, targetID, gift.Price)
	log.Printf("[ECONOMY] User %d sent gift %d (%s) to %s %d", senderUserID, gift.ID, gift.Name, target, targetID)

	if senderUserID != ownerID {
		s.notifier.AddReactionNotification(ReactionNotification{
			Action:   "gift",
			UserID:   ownerID,
			Target:   target,
			TargetID: targetID,
			Content:  gift.Name,
			URL:      fmt.Sprintf("/%ss/%d", target, targetID),
		})
	}

	return nil
}

// GrantBalance credits a user, creating the balance row when absent, and
// appends the matching credit-grant ledger entry atomically. Used for
// registration bonuses and admin adjustments; the configured system
// actor is recorded as the entry's acting user.
func (s *EconomyService) GrantBalance(targetUserID int, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	transactionID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO balances (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET balance = balances.balance + EXCLUDED.balance, updated_at = NOW()`,
		targetUserID, amount); err != nil {
		return fmt.Errorf("balance credit failed: %w", err)
	}

	if err := insertLedgerEntry(tx, transactionID, s.cfg.SystemActorID, TargetUser, targetUserID, amount, models.LedgerKindCreditGrant); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.audit.LogGrant(transactionID, targetUserID, amount)
	log.Printf("[ECONOMY] Granted %d coins to user %d", amount, targetUserID)
	return nil
}

// GetBalance returns the user's current balance. Users without a balance
// row have never been credited and read as zero.
func (s *EconomyService) GetBalance(userID int) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM balances WHERE user_id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance lookup failed: %w", err)
	}
	return balance, nil
}

// ListLedgerEntries returns a user's ledger, newest first. Both sides of
// the user's activity are included: debits they initiated and grants
// issued to them by the system actor.
func (s *EconomyService) ListLedgerEntries(userID, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, transaction_id, user_id, target, target_id, amount, kind, created_at
		FROM ledger_entries
		WHERE user_id = $1 OR (target = $2 AND target_id = $1)
		ORDER BY created_at DESC
		LIMIT $3`, userID, TargetUser, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger query failed: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.UserID, &e.Target, &e.TargetID, &e.Amount, &e.Kind, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GiftCounts returns the per-gift aggregate for one piece of content.
func (s *EconomyService) GiftCounts(target string, targetID int) ([]GiftCount, error) {
	rows, err := s.db.Query(`
		SELECT g.id, g.name, g.icon_url, COUNT(*) AS count
		FROM gift_relations gr
		JOIN gifts g ON g.id = gr.gift_id
		WHERE gr.target = $1 AND gr.target_id = $2
		GROUP BY g.id, g.name, g.icon_url
		ORDER BY count DESC`, target, targetID)
	if err != nil {
		return nil, fmt.Errorf("gift count query failed: %w", err)
	}
	defer rows.Close()

	counts := []GiftCount{}
	for rows.Next() {
		var c GiftCount
		if err := rows.Scan(&c.GiftID, &c.Name, &c.IconURL, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ListGifts returns the gift catalog, served from the Redis cache when
// available. The catalog is reference data and changes rarely.
func (s *EconomyService) ListGifts() ([]models.Gift, error) {
	ctx := context.Background()

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, giftCatalogCacheKey).Result(); err == nil {
			var gifts []models.Gift
			if err := json.Unmarshal([]byte(cached), &gifts); err == nil {
				return gifts, nil
			}
		}
	}

	rows, err := s.db.Query(`SELECT id, name, icon_url, price FROM gifts ORDER BY price ASC`)
	if err != nil {
		return nil, fmt.Errorf("gift catalog query failed: %w", err)
	}
	defer rows.Close()

	gifts := []models.Gift{}
	for rows.Next() {
		var g models.Gift
		if err := rows.Scan(&g.ID, &g.Name, &g.IconURL, &g.Price); err != nil {
			return nil, err
		}
		gifts = append(gifts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(gifts); err == nil {
			if err := s.redis.Set(ctx, giftCatalogCacheKey, data, s.cfg.GiftCacheTTL).Err(); err != nil {
				log.Printf("[ECONOMY] Failed to cache gift catalog: %v", err)
			}
		}
	}

	return gifts, nil
}

func (s *EconomyService) contentOwner(target string, targetID int) (int, error) {
	var query string
	switch target {
	case TargetPost:
		query = `SELECT user_id FROM posts WHERE id = $1`
	case TargetReview:
		query = `SELECT user_id FROM reviews WHERE id = $1`
	default:
		return 0, fmt.Errorf("%w: unsupported gift target %q", ErrNotFound, target)
	}

	var ownerID int
	err := s.db.QueryRow(query, targetID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("content owner lookup failed: %w", err)
	}
	return ownerID, nil
}

func insertLedgerEntry(tx *sql.Tx, transactionID string, userID int, target string, targetID int, amount int64, kind string) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (transaction_id, user_id, target, target_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		transactionID, userID, target, targetID, amount, kind)
	if err != nil {
		return fmt.Errorf("ledger entry insert failed: %w", err)
	}
	return nil
}

func insertTimelineEntry(tx *sql.Tx, userID int, action, target string, targetID int) error {
	_, err := tx.Exec(`
		INSERT INTO timelines (id, user_id, action, target, target_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.NewString(), userID, action, target, targetID)
	if err != nil {
		return fmt.Errorf("timeline insert failed: %w", err)
	}
	return nil
}

func deleteTimelineEntry(tx *sql.Tx, userID int, target string, targetID int) error {
	_, err := tx.Exec(`
		DELETE FROM timelines
		WHERE user_id = $1 AND target = $2 AND target_id = $3`,
		userID, target, targetID)
	if err != nil {
		return fmt.Errorf("timeline delete failed: %w", err)
	}
	return nil
}
