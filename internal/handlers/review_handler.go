package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gamehive/backend/internal/moderation"
	"github.com/gamehive/backend/internal/services"
)

type ReviewHandler struct {
	db        *sql.DB
	reviews   *services.ReviewService
	validator *services.ValidationHelper
}

func NewReviewHandler(db *sql.DB, reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		db:        db,
		reviews:   reviews,
		validator: services.NewValidationHelper(),
	}
}

func (h *ReviewHandler) operatorAndID(w http.ResponseWriter, r *http.Request, param string) (moderation.Operator, int, bool) {
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

// CreateReview publishes a review for an app
// @Summary Create review
// @Description Publish a rated review for an app
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param appId path int true "App ID"
// @Param request body object{title=string,content=string,rating=int} true "Review body"
// @Success 201 {object} models.Review
// @Failure 400 {object} services.ErrorResponse
// @Router /apps/{appId}/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	appID, ok := requireIntParam(w, r, "appId")
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title" validate:"required,min=1,max=200"`
		Content string `json:"content" validate:"required,min=1"`
		Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	review, err := h.reviews.CreateReview(appID, userID, req.Title, req.Content, req.Rating)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(review)
}

// ListReviews lists an app's reviews
// @Summary List reviews
// @Description List reviews for an app, newest first
// @Tags reviews
// @Produce json
// @Param appId path int true "App ID"
// @Param limit query int false "Number of reviews (default 50)"
// @Success 200 {object} object{reviews=[]models.Review}
// @Router /apps/{appId}/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	appID, ok := requireIntParam(w, r, "appId")
	if !ok {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	reviews, err := h.reviews.ListReviews(appID, limit)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"reviews": reviews})
}

// GetReview fetches one review
// @Summary Get review
// @Description Get a single review
// @Tags reviews
// @Produce json
// @Param reviewId path int true "Review ID"
// @Success 200 {object} models.Review
// @Failure 404 {object} services.ErrorResponse
// @Router /reviews/{reviewId} [get]
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIntParam(w, r, "reviewId")
	if !ok {
		return
	}

	review, err := h.reviews.GetReview(id)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(review)
}

// UpdateReview edits a review
// @Summary Update review
// @Description Update a review's title, content and rating (owner or admin)
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reviewId path int true "Review ID"
// @Param request body object{title=string,content=string,rating=int} true "Review body"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /reviews/{reviewId} [put]
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "reviewId")
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title" validate:"required,min=1,max=200"`
		Content string `json:"content" validate:"required,min=1"`
		Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	if err := h.reviews.UpdateReview(id, operator, req.Title, req.Content, req.Rating); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// DeleteReview removes a review and its comments
// @Summary Delete review
// @Description Delete a review with its comments and dependents (owner or admin)
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param reviewId path int true "Review ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /reviews/{reviewId} [delete]
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "reviewId")
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(id, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// CreateComment adds a comment to a review
// @Summary Create comment
// @Description Comment on a review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reviewId path int true "Review ID"
// @Param request body object{content=string} true "Comment body"
// @Success 201 {object} models.Comment
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /reviews/{reviewId}/comments [post]
func (h *ReviewHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	reviewID, ok := requireIntParam(w, r, "reviewId")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" validate:"required,min=1"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	comment, err := h.reviews.CreateComment(reviewID, userID, req.Content)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comment)
}

// DeleteComment removes a comment
// @Summary Delete comment
// @Description Delete a review comment (owner or admin)
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /comments/{commentId} [delete]
func (h *ReviewHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "commentId")
	if !ok {
		return
	}

	if err := h.reviews.DeleteComment(id, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
