package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/gamehive/backend/internal/config"
	"github.com/gamehive/backend/internal/events"
	"github.com/gamehive/backend/internal/models"
)

func newAchievementTestService(t *testing.T) (*AchievementService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := config.LoadEconomyConfig()
	service := NewAchievementService(db, NewNotificationService(nil, cfg))

	return service, mock, func() { db.Close() }
}

func expectProgressUpsert(mock sqlmock.Sqlmock, userID int, id AchievementID, accumulation int, unlockedAt *time.Time) {
	mock.ExpectQuery("INSERT INTO achievement_progress").
		WithArgs(userID, string(id)).
		WillReturnRows(sqlmock.NewRows([]string{"accumulation", "unlocked_at"}).
			AddRow(accumulation, unlockedAt))
}

func TestAchievementService_Advance(t *testing.T) {
	service, mock, cleanup := newAchievementTestService(t)
	defer cleanup()

	t.Run("crossing the threshold unlocks once", func(t *testing.T) {
		userID := 7

		mock.ExpectBegin()
		expectProgressUpsert(mock, userID, AchievementTenReviews, 10, nil)
		mock.ExpectExec("UPDATE achievement_progress").
			WithArgs(userID, string(AchievementTenReviews), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.advance(userID, AchievementTenReviews)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("below the threshold only accumulates", func(t *testing.T) {
		userID := 7

		mock.ExpectBegin()
		expectProgressUpsert(mock, userID, AchievementTenReviews, 4, nil)
		mock.ExpectCommit()

		err := service.advance(userID, AchievementTenReviews)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already unlocked keeps counting without a second unlock", func(t *testing.T) {
		userID := 7
		unlockedAt := time.Now().Add(-24 * time.Hour)

		mock.ExpectBegin()
		expectProgressUpsert(mock, userID, AchievementTenReviews, 15, &unlockedAt)
		mock.ExpectCommit()

		err := service.advance(userID, AchievementTenReviews)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing the unlock race stays silent", func(t *testing.T) {
		userID := 7

		mock.ExpectBegin()
		expectProgressUpsert(mock, userID, AchievementFirstReview, 1, nil)
		// Another event unlocked between the upsert and this update
		mock.ExpectExec("UPDATE achievement_progress").
			WithArgs(userID, string(AchievementFirstReview), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := service.advance(userID, AchievementFirstReview)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown achievement id", func(t *testing.T) {
		err := service.advance(7, AchievementID("retired-badge"))
		assert.Error(t, err)
	})
}

func TestAchievementService_EventHandlers(t *testing.T) {
	service, mock, cleanup := newAchievementTestService(t)
	defer cleanup()

	t.Run("review advances both review achievements", func(t *testing.T) {
		userID := 7

		mock.ExpectBegin()
		expectProgressUpsert(mock, userID, AchievementFirstReview, 1, nil)
		mock.ExpectExec("UPDATE achievement_progress").
			WithArgs(userID, string(AchievementFirstReview), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		mock.ExpectBegin()
		expectProgressUpsert(mock, userID, AchievementTenReviews, 1, nil)
		mock.ExpectCommit()

		err := service.onReviewCreated(models.Review{ID: 1, UserID: userID})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sticky credits the discussion owner", func(t *testing.T) {
		ownerID := 12

		mock.ExpectBegin()
		expectProgressUpsert(mock, ownerID, AchievementFirstSticky, 1, nil)
		mock.ExpectExec("UPDATE achievement_progress").
			WithArgs(ownerID, string(AchievementFirstSticky), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.onDiscussionSticky(models.Discussion{ID: 5, UserID: ownerID, IsSticky: true})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong payload type is rejected", func(t *testing.T) {
		err := service.onReviewCreated("not a review")
		assert.Error(t, err)
	})
}

func TestAchievementService_Register(t *testing.T) {
	service, mock, cleanup := newAchievementTestService(t)
	defer cleanup()

	bus := events.NewBus()
	service.Register(bus)

	userID := 3

	mock.ExpectBegin()
	expectProgressUpsert(mock, userID, AchievementFirstLogin, 1, nil)
	mock.ExpectExec("UPDATE achievement_progress").
		WithArgs(userID, string(AchievementFirstLogin), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bus.Publish(events.UserRegistered, models.User{ID: userID})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementService_ListProgress(t *testing.T) {
	service, mock, cleanup := newAchievementTestService(t)
	defer cleanup()

	now := time.Now()
	unlocked := now.Add(-time.Hour)

	mock.ExpectQuery("SELECT user_id, achievement_id, accumulation, unlocked_at, updated_at").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "achievement_id", "accumulation", "unlocked_at", "updated_at"}).
			AddRow(7, string(AchievementFirstReview), 3, unlocked, now).
			AddRow(7, string(AchievementTenReviews), 3, nil, now).
			AddRow(7, "retired-badge", 1, nil, now))

	progress, err := service.ListProgress(7)
	assert.NoError(t, err)
	// The retired definition's row is skipped
	assert.Len(t, progress, 2)
	assert.Equal(t, AchievementFirstReview, progress[0].Definition.ID)
	assert.NotNil(t, progress[0].Progress.UnlockedAt)
	assert.Nil(t, progress[1].Progress.UnlockedAt)
}
