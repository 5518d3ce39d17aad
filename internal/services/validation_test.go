package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sendGiftRequest struct {
	GiftID   int    `validate:"required,gt=0"`
	Target   string `validate:"required,oneof=post review"`
	TargetID int    `validate:"required,gt=0"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := sendGiftRequest{
			GiftID:   3,
			Target:   "post",
			TargetID: 42,
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("missing and out-of-range fields", func(t *testing.T) {
		invalid := sendGiftRequest{
			GiftID: -1,
			// Target missing
			TargetID: 0,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3)
	})

	t.Run("unsupported target kind", func(t *testing.T) {
		invalid := sendGiftRequest{
			GiftID:   3,
			Target:   "channel",
			TargetID: 42,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Target", validationErrors[0].Field())
		assert.Equal(t, "oneof", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		invalid := sendGiftRequest{GiftID: -1, Target: "channel"}

		validationErr := vh.ValidateStruct(&invalid)
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.NotNil(t, response.Details)
		assert.Contains(t, response.Details, "GiftID")
		assert.Contains(t, response.Details, "Target")
		assert.Contains(t, response.Details, "TargetID")
	})
}

func TestSendDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient balance", ErrInsufficientBalance, http.StatusBadRequest},
		{"gift not found", ErrGiftNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"channel not found", ErrChannelNotFound, http.StatusNotFound},
		{"last channel not empty", ErrLastChannelIsNotEmpty, http.StatusConflict},
		{"discussion closed", ErrDiscussionClosed, http.StatusConflict},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SendDomainError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	t.Run("wrapped domain error keeps its status", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendDomainError(w, errors.Join(errors.New("context"), ErrInsufficientBalance))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNewValidationHelper(t *testing.T) {
	vh := NewValidationHelper()
	assert.NotNil(t, vh)
	assert.NotNil(t, vh.validator)
}
