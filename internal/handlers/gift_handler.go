package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gamehive/backend/internal/services"
)

type GiftHandler struct {
	economy   *services.EconomyService
	validator *services.ValidationHelper
}

func NewGiftHandler(economy *services.EconomyService) *GiftHandler {
	return &GiftHandler{
		economy:   economy,
		validator: services.NewValidationHelper(),
	}
}

// ListGifts returns the gift catalog
// @Summary List gifts
// @Description Get the purchasable gift catalog
// @Tags gifts
// @Produce json
// @Success 200 {object} object{gifts=[]models.Gift}
// @Failure 500 {object} services.ErrorResponse
// @Router /gifts [get]
func (h *GiftHandler) ListGifts(w http.ResponseWriter, r *http.Request) {
	gifts, err := h.economy.ListGifts()
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"gifts": gifts})
}

// SendGift sends a gift to a post or review
// @Summary Send a gift
// @Description Debit the sender and attach a gift to a post or review
// @Tags gifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{giftId=int,target=string,targetId=int} true "Gift request"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /gifts/send [post]
func (h *GiftHandler) SendGift(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		GiftID   int    `json:"giftId" validate:"required,gt=0"`
		Target   string `json:"target" validate:"required,oneof=post review"`
		TargetID int    `json:"targetId" validate:"required,gt=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.economy.SendGift(userID, req.GiftID, req.Target, req.TargetID); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// GiftCounts returns the gift aggregate for one piece of content
// @Summary Gift counts
// @Description Per-gift counts for a post or review
// @Tags gifts
// @Produce json
// @Param target query string true "Content kind (post or review)"
// @Param targetId query int true "Content ID"
// @Success 200 {object} object{counts=[]services.GiftCount}
// @Failure 400 {object} services.ErrorResponse
// @Router /gifts/counts [get]
func (h *GiftHandler) GiftCounts(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target != services.TargetPost && target != services.TargetReview {
		services.SendErrorResponse(w, "target must be post or review", http.StatusBadRequest, nil)
		return
	}

	targetID, err := strconv.Atoi(r.URL.Query().Get("targetId"))
	if err != nil || targetID <= 0 {
		services.SendErrorResponse(w, "invalid targetId", http.StatusBadRequest, nil)
		return
	}

	counts, err := h.economy.GiftCounts(target, targetID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"counts": counts})
}

// ListLedger returns the authenticated user's ledger entries
// @Summary List ledger entries
// @Description Get the authenticated user's ledger, newest first
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries (default 50, max 100)"
// @Success 200 {object} object{entries=[]models.LedgerEntry}
// @Failure 401 {object} services.ErrorResponse
// @Router /ledger [get]
func (h *GiftHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	entries, err := h.economy.ListLedgerEntries(userID, limit)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": entries})
}
