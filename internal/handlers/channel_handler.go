package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gamehive/backend/internal/moderation"
	"github.com/gamehive/backend/internal/services"
)

type ChannelHandler struct {
	db        *sql.DB
	channels  *services.ChannelService
	validator *services.ValidationHelper
}

func NewChannelHandler(db *sql.DB, channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{
		db:        db,
		channels:  channels,
		validator: services.NewValidationHelper(),
	}
}

func (h *ChannelHandler) operatorAndID(w http.ResponseWriter, r *http.Request, param string) (moderation.Operator, int, bool) {
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

// ListChannels lists an app's discussion channels
// @Summary List channels
// @Description List the discussion channels of an app
// @Tags channels
// @Produce json
// @Param appId path int true "App ID"
// @Success 200 {object} object{channels=[]models.Channel}
// @Router /apps/{appId}/channels [get]
func (h *ChannelHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	appID, ok := requireIntParam(w, r, "appId")
	if !ok {
		return
	}

	channels, err := h.channels.ListChannels(appID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"channels": channels})
}

// CreateChannel adds a channel to an app
// @Summary Create channel
// @Description Create a discussion channel (admin only)
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param appId path int true "App ID"
// @Param request body object{name=string,description=string} true "Channel body"
// @Success 201 {object} models.Channel
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /apps/{appId}/channels [post]
func (h *ChannelHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	operator, appID, ok := h.operatorAndID(w, r, "appId")
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=1,max=100"`
		Description string `json:"description" validate:"max=500"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	channel, err := h.channels.CreateChannel(appID, req.Name, req.Description, operator)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(channel)
}

// UpdateChannel renames a channel
// @Summary Update channel
// @Description Update a channel's name and description (moderator only)
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param channelId path int true "Channel ID"
// @Param request body object{name=string,description=string} true "Channel body"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /channels/{channelId} [put]
func (h *ChannelHandler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	operator, channelID, ok := h.operatorAndID(w, r, "channelId")
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=1,max=100"`
		Description string `json:"description" validate:"max=500"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	if err := h.channels.UpdateChannel(channelID, operator, req.Name, req.Description); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// DeleteChannel removes a channel, migrating discussions if needed
// @Summary Delete channel
// @Description Delete a channel (admin only). When deleting the last channel of an app its discussions must be empty, otherwise a destinationChannelId is required.
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param channelId path int true "Channel ID"
// @Param appId query int true "App ID"
// @Param destinationChannelId query int false "Channel receiving migrated discussions"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /channels/{channelId} [delete]
func (h *ChannelHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	operator, channelID, ok := h.operatorAndID(w, r, "channelId")
	if !ok {
		return
	}

	appID, err := strconv.Atoi(r.URL.Query().Get("appId"))
	if err != nil || appID <= 0 {
		services.SendErrorResponse(w, "invalid appId", http.StatusBadRequest, nil)
		return
	}

	var destination *int
	if destStr := r.URL.Query().Get("destinationChannelId"); destStr != "" {
		dest, err := strconv.Atoi(destStr)
		if err != nil || dest <= 0 {
			services.SendErrorResponse(w, "invalid destinationChannelId", http.StatusBadRequest, nil)
			return
		}
		destination = &dest
	}

	if err := h.channels.DeleteChannel(channelID, appID, destination, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// AddModerator grants moderator rights on a channel
// @Summary Add moderator
// @Description Add a user as a channel moderator (admin only)
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param channelId path int true "Channel ID"
// @Param request body object{userId=int} true "User to add"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Router /channels/{channelId}/moderators [post]
func (h *ChannelHandler) AddModerator(w http.ResponseWriter, r *http.Request) {
	operator, channelID, ok := h.operatorAndID(w, r, "channelId")
	if !ok {
		return
	}

	var req struct {
		UserID int `json:"userId" validate:"required,gt=0"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	if err := h.channels.AddModerator(channelID, req.UserID, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// RemoveModerator revokes moderator rights on a channel
// @Summary Remove moderator
// @Description Remove a user from a channel's moderators (admin only)
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param channelId path int true "Channel ID"
// @Param userId path int true "User ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Router /channels/{channelId}/moderators/{userId} [delete]
func (h *ChannelHandler) RemoveModerator(w http.ResponseWriter, r *http.Request) {
	operator, channelID, ok := h.operatorAndID(w, r, "channelId")
	if !ok {
		return
	}

	userID, ok := requireIntParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.channels.RemoveModerator(channelID, userID, operator); err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
