package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gamehive/backend/internal/moderation"
	"github.com/gamehive/backend/internal/services"
)

// decodeJSON reads a single JSON object into dst and optionally validates it.
// Writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, v *services.ValidationHelper) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if v != nil {
		if err := v.ValidateStruct(dst); err != nil {
			services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
			return false
		}
	}

	return true
}

// requireOperator resolves the authenticated user into a moderation operator.
func requireOperator(db *sql.DB, w http.ResponseWriter, r *http.Request) (moderation.Operator, bool) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return moderation.Operator{}, false
	}

	operator, err := services.LoadOperator(db, userID)
	if err != nil {
		services.SendDomainError(w, err)
		return moderation.Operator{}, false
	}

	return operator, true
}

func requireIntParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

func (h *DiscussionHandler) operatorAndID(w http.ResponseWriter, r *http.Request, param string) (moderation.Operator, int, bool) {
	id, ok := requireIntParam(w, r, param)
	if !ok {
		return moderation.Operator{}, 0, false
	}
	operator, ok := requireOperator(h.db, w, r)
	if !ok {
		return moderation.Operator{}, 0, false
	}
	return operator, id, true
}
