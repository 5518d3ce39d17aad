package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gamehive/backend/internal/services"
)

type AchievementHandler struct {
	achievements *services.AchievementService
}

func NewAchievementHandler(achievements *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

// ListProgress returns the caller's achievement progress
// @Summary List achievements
// @Description Achievement definitions with the caller's accumulation and unlock state
// @Tags achievements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{achievements=[]services.UserProgress}
// @Failure 401 {object} services.ErrorResponse
// @Router /achievements [get]
func (h *AchievementHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := services.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	progress, err := h.achievements.ListProgress(userID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"achievements": progress})
}
