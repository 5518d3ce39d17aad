package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gamehive/backend/internal/services"
)

type DiscussionHandler struct {
	db         *sql.DB
	discussion *services.DiscussionService
	validator  *services.ValidationHelper
}

func NewDiscussionHandler(db *sql.DB, discussion *services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{
		db:         db,
		discussion: discussion,
		validator:  services.NewValidationHelper(),
	}
}

// CreateDiscussion opens a new discussion
// @Summary Create discussion
// @Description Open a new discussion in a channel
// @Tags discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param channelId path int true "Channel ID"
// @Param request body object{title=string,content=string} true "Discussion body"
// @Success 201 {object} models.Discussion
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /channels/{channelId}/discussions [post]
func (h *DiscussionHandler) CreateDiscussion(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	channelID, err := strconv.Atoi(chi.URLParam(r, "channelId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid channel id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Title   string `json:"title" validate:"required,min=1,max=200"`
		Content string `json:"content" validate:"required,min=1"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	discussion, err := h.discussion.CreateDiscussion(channelID, userID, req.Title, req.Content)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(discussion)
}

// ListDiscussions lists a channel's discussions
// @Summary List discussions
// @Description List a channel's discussions, sticky first
// @Tags discussions
// @Produce json
// @Param channelId path int true "Channel ID"
// @Param limit query int false "Number of discussions (default 50)"
// @Success 200 {object} object{discussions=[]models.Discussion}
// @Router /channels/{channelId}/discussions [get]
func (h *DiscussionHandler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.Atoi(chi.URLParam(r, "channelId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid channel id", http.StatusBadRequest, nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	discussions, err := h.discussion.ListDiscussions(channelID, limit)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"discussions": discussions})
}

// GetDiscussion fetches one discussion with its posts
// @Summary Get discussion
// @Description Get a discussion and its posts
// @Tags discussions
// @Produce json
// @Param discussionId path int true "Discussion ID"
// @Success 200 {object} object{discussion=models.Discussion,posts=[]models.Post}
// @Failure 404 {object} services.ErrorResponse
// @Router /discussions/{discussionId} [get]
func (h *DiscussionHandler) GetDiscussion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "discussionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid discussion id", http.StatusBadRequest, nil)
		return
	}

	discussion, err := h.discussion.GetDiscussion(id)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	posts, err := h.discussion.ListPosts(id, 100)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"discussion": discussion,
		"posts":      posts,
	})
}

// CloseDiscussion toggles the closed flag
// @Summary Close or reopen discussion
// @Description Set a discussion's closed flag (moderator or owner)
// @Tags discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param discussionId path int true "Discussion ID"
// @Param request body object{isClosed=bool} true "Closed flag"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /discussions/{discussionId}/close [put]
func (h *DiscussionHandler) CloseDiscussion(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "discussionId")
	if !ok {
		return
	}

	var req struct {
		IsClosed bool `json:"isClosed"`
	}
	if !decodeJSON(w, r, &req, nil) {
		return
	}

	if err := h.discussion.CloseDiscussion(id, operator, req.IsClosed); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// StickyDiscussion toggles the sticky flag
// @Summary Pin or unpin discussion
// @Description Set a discussion's sticky flag (moderator only)
// @Tags discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param discussionId path int true "Discussion ID"
// @Param request body object{isSticky=bool} true "Sticky flag"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /discussions/{discussionId}/sticky [put]
func (h *DiscussionHandler) StickyDiscussion(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "discussionId")
	if !ok {
		return
	}

	var req struct {
		IsSticky bool `json:"isSticky"`
	}
	if !decodeJSON(w, r, &req, nil) {
		return
	}

	if err := h.discussion.StickyDiscussion(id, operator, req.IsSticky); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// CreatePost appends a post to a discussion
// @Summary Create post
// @Description Add a post to an open discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param discussionId path int true "Discussion ID"
// @Param request body object{content=string} true "Post body"
// @Success 201 {object} models.Post
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /discussions/{discussionId}/posts [post]
func (h *DiscussionHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	discussionID, err := strconv.Atoi(chi.URLParam(r, "discussionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid discussion id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Content string `json:"content" validate:"required,min=1"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	post, err := h.discussion.CreatePost(discussionID, userID, req.Content)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(post)
}

// DeletePost removes a post
// @Summary Delete post
// @Description Delete a post with its dependents (moderator or owner)
// @Tags discussions
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /posts/{postId} [delete]
func (h *DiscussionHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "postId")
	if !ok {
		return
	}

	if err := h.discussion.DeletePost(id, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// DeleteDiscussion removes a discussion and its posts
// @Summary Delete discussion
// @Description Delete a discussion with all posts and dependents (moderator or owner)
// @Tags discussions
// @Produce json
// @Security BearerAuth
// @Param discussionId path int true "Discussion ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /discussions/{discussionId} [delete]
func (h *DiscussionHandler) DeleteDiscussion(w http.ResponseWriter, r *http.Request) {
	operator, id, ok := h.operatorAndID(w, r, "discussionId")
	if !ok {
		return
	}

	if err := h.discussion.DeleteDiscussion(id, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
