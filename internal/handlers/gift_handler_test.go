package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/gamehive/backend/internal/config"
	"github.com/gamehive/backend/internal/models"
	"github.com/gamehive/backend/internal/services"
)

func newGiftHandlerTest(t *testing.T) (*GiftHandler, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := config.LoadEconomyConfig()
	economy := services.NewEconomyService(db, nil, services.NewNotificationService(nil, cfg), cfg)

	return NewGiftHandler(economy), mock, func() { db.Close() }
}

func withUser(r *http.Request, userID int) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), "userID", userID))
}

func TestGiftHandler_SendGift(t *testing.T) {
	handler, mock, cleanup := newGiftHandlerTest(t)
	defer cleanup()

	t.Run("missing auth context", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"giftId": 3, "target": "post", "targetId": 42})
		r := httptest.NewRequest("POST", "/gifts/send", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.SendGift(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		body := []byte(`{"giftId":3,"target":"post","targetId":42,"amount":999}`)
		r := withUser(httptest.NewRequest("POST", "/gifts/send", bytes.NewBuffer(body)), 7)
		w := httptest.NewRecorder()

		handler.SendGift(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects invalid target kind", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"giftId": 3, "target": "channel", "targetId": 42})
		r := withUser(httptest.NewRequest("POST", "/gifts/send", bytes.NewBuffer(body)), 7)
		w := httptest.NewRecorder()

		handler.SendGift(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response services.ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "Validation failed", response.Error)
	})

	t.Run("insufficient balance maps to 400", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts").
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", 200))
		mock.ExpectQuery("SELECT user_id FROM posts").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(12))
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE balances").
			WithArgs(int64(200), 7).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		body, _ := json.Marshal(map[string]any{"giftId": 3, "target": "post", "targetId": 42})
		r := withUser(httptest.NewRequest("POST", "/gifts/send", bytes.NewBuffer(body)), 7)
		w := httptest.NewRecorder()

		handler.SendGift(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response services.ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "Insufficient balance", response.Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("successful send", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, icon_url, price FROM gifts").
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "price"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", 200))
		mock.ExpectQuery("SELECT user_id FROM posts").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(12))
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE balances").
			WithArgs(int64(200), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), 7, "post", 42, int64(200), models.LedgerKindDebitPurchase).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO gift_relations").
			WithArgs(7, 3, "post", 42).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO timelines").
			WithArgs(sqlmock.AnyArg(), 7, "gift.sent", "post", 42).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(map[string]any{"giftId": 3, "target": "post", "targetId": 42})
		r := withUser(httptest.NewRequest("POST", "/gifts/send", bytes.NewBuffer(body)), 7)
		w := httptest.NewRecorder()

		handler.SendGift(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGiftHandler_GiftCounts(t *testing.T) {
	handler, mock, cleanup := newGiftHandlerTest(t)
	defer cleanup()

	t.Run("rejects bad target", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/gifts/counts?target=channel&targetId=1", nil)
		w := httptest.NewRecorder()

		handler.GiftCounts(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing target id", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/gifts/counts?target=post", nil)
		w := httptest.NewRecorder()

		handler.GiftCounts(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns counts", func(t *testing.T) {
		mock.ExpectQuery("SELECT g.id, g.name, g.icon_url, COUNT").
			WithArgs("post", 42).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon_url", "count"}).
				AddRow(3, "Rose", "/static/gift-images/rose.svg", 5))

		r := httptest.NewRequest("GET", "/gifts/counts?target=post&targetId=42", nil)
		w := httptest.NewRecorder()

		handler.GiftCounts(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string][]services.GiftCount
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Len(t, response["counts"], 1)
		assert.Equal(t, 5, response["counts"][0].Count)
	})
}
