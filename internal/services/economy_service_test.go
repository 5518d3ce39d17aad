package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/gamehive/backend/internal/config"
	"github.com/gamehive/backend/internal/models"
)

func newEconomyTestService(t *testing.T) (*EconomyService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := config.LoadEconomyConfig()
	notifier := NewNotificationService(nil, cfg)
	service := NewEconomyService(db, nil, notifier, cfg)

	return service, mock, func() { db.Close() }
}

func TestEconomyService_SendGift(t *testing.T) {
	service, mock, cleanup := newEconomyTestService(t)
	defer cleanup()

	t.Run("successful gift", func(t *testing.T) {
		senderID := 7
		ownerID := 12
		postID := 42
		price := int64(200)

		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts WHERE id = \\$1").
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", price))

		mock.ExpectQuery("SELECT user_id FROM posts WHERE id = \\$1").
			WithArgs(postID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(ownerID))

		mock.ExpectBegin()

		// Conditional debit, one row affected means the sender could afford it
		mock.ExpectExec("UPDATE balances").
			WithArgs(price, senderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), senderID, TargetPost, postID, price, models.LedgerKindDebitPurchase).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO gift_relations").
			WithArgs(senderID, 3, TargetPost, postID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO timelines").
			WithArgs(sqlmock.AnyArg(), senderID, "gift.sent", TargetPost, postID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.SendGift(senderID, 3, TargetPost, postID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rolls back everything", func(t *testing.T) {
		senderID := 7
		postID := 42
		price := int64(5000)

		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts WHERE id = \\$1").
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(9, "Golden Crown", "/static/gift-images/crown.svg", price))

		mock.ExpectQuery("SELECT user_id FROM posts WHERE id = \\$1").
			WithArgs(postID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(12))

		mock.ExpectBegin()

		// Zero rows affected, the balance was below the price
		mock.ExpectExec("UPDATE balances").
			WithArgs(price, senderID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		err := service.SendGift(senderID, 9, TargetPost, postID)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown gift", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts WHERE id = \\$1").
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}))

		err := service.SendGift(7, 999, TargetPost, 42)
		assert.ErrorIs(t, err, ErrGiftNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown target content", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts WHERE id = \\$1").
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", 200))

		mock.ExpectQuery("SELECT user_id FROM reviews WHERE id = \\$1").
			WithArgs(404).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		err := service.SendGift(7, 3, TargetReview, 404)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsupported target kind", func(t *testing.T) {
		err := service.SendGift(7, 3, "channel", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEconomyService_GrantBalance(t *testing.T) {
	service, mock, cleanup := newEconomyTestService(t)
	defer cleanup()

	t.Run("credits and records the system actor on the ledger entry", func(t *testing.T) {
		userID := 21
		amount := int64(1000)
		cfg := config.LoadEconomyConfig()

		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO balances").
			WithArgs(userID, amount).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), cfg.SystemActorID, TargetUser, userID, amount, models.LedgerKindCreditGrant).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.GrantBalance(userID, amount)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		err := service.GrantBalance(21, 0)
		assert.Error(t, err)

		err = service.GrantBalance(21, -50)
		assert.Error(t, err)
	})
}

func TestEconomyService_GetBalance(t *testing.T) {
	service, mock, cleanup := newEconomyTestService(t)
	defer cleanup()

	t.Run("existing balance", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM balances WHERE user_id = \\$1").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(800))

		balance, err := service.GetBalance(7)
		assert.NoError(t, err)
		assert.Equal(t, int64(800), balance)
	})

	t.Run("missing balance row reads as zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM balances WHERE user_id = \\$1").
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		balance, err := service.GetBalance(99)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})
}

func TestEconomyService_ListLedgerEntries(t *testing.T) {
	service, mock, cleanup := newEconomyTestService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT id, transaction_id, user_id, target, target_id, amount, kind, created_at").
		WithArgs(7, TargetUser, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "user_id", "target", "target_id", "amount", "kind", "created_at"}).
			AddRow(2, "tx-2", 7, TargetPost, 42, 200, models.LedgerKindDebitPurchase, now).
			AddRow(1, "tx-1", 7, TargetUser, 7, 1000, models.LedgerKindCreditGrant, now.Add(-time.Hour)))

	entries, err := service.ListLedgerEntries(7, 50)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, models.LedgerKindDebitPurchase, entries[0].Kind)
	assert.Equal(t, int64(1000), entries[1].Amount)
}

func TestEconomyService_GiftCounts(t *testing.T) {
	service, mock, cleanup := newEconomyTestService(t)
	defer cleanup()

	mock.ExpectQuery("SELECT g.id, g.name, g.icon_url, COUNT").
		WithArgs(TargetPost, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "count"}).
			AddRow(3, "Rose", "/static/gift-images/rose.svg", 5).
			AddRow(9, "Golden Crown", "/static/gift-images/crown.svg", 1))

	counts, err := service.GiftCounts(TargetPost, 42)
	assert.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, "Rose", counts[0].Name)
	assert.Equal(t, 5, counts[0].Count)
}

func TestEconomyService_ListGifts(t *testing.T) {
	t.Run("cache miss falls through to database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		cfg := config.LoadEconomyConfig()
		service := NewEconomyService(db, redisClient, NewNotificationService(nil, cfg), cfg)

		redisMock.ExpectGet(giftCatalogCacheKey).RedisNil()

		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts ORDER BY price ASC").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", 200))

		redisMock.Regexp().ExpectSet(giftCatalogCacheKey, `.*`, cfg.GiftCacheTTL).SetVal("OK")

		gifts, err := service.ListGifts()
		assert.NoError(t, err)
		assert.Len(t, gifts, 1)
		assert.Equal(t, "Rose", gifts[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		cfg := config.LoadEconomyConfig()
		service := NewEconomyService(db, redisClient, NewNotificationService(nil, cfg), cfg)

		redisMock.ExpectGet(giftCatalogCacheKey).
			SetVal(`[{"id":3,"name":"Rose","icon_url":"/static/gift-images/rose.svg","price":200}]`)

		gifts, err := service.ListGifts()
		assert.NoError(t, err)
		assert.Len(t, gifts, 1)
		assert.Equal(t, int64(200), gifts[0].Price)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no redis client queries the database directly", func(t *testing.T) {
		service, mock, cleanup := newEconomyTestService(t)
		defer cleanup()

		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts ORDER BY price ASC").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", 200).
				AddRow(9, "Golden Crown", "/static/gift-images/crown.svg", 5000))

		gifts, err := service.ListGifts()
		assert.NoError(t, err)
		assert.Len(t, gifts, 2)
	})
}
