// Package handlers — ChannelPermissionHandler: per-channel permission
// override endpoints.
//
// - GET    /api/channels/{id}/permissions                       → ListOverrides
// - PUT    /api/channels/{channelId}/permissions                → SetOverride (UPSERT, body carries target)
// - DELETE /api/channels/{channelId}/permissions/{targetType}/{targetId} → DeleteOverride
//
// PUT and DELETE require ManageChannels, enforced at the middleware level;
// GET (ListOverrides) needs only authentication.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/services"
)

// ChannelPermissionHandler serves channel permission override endpoints.
type ChannelPermissionHandler struct {
	service services.ChannelPermissionService
}

// NewChannelPermissionHandler is the constructor.
func NewChannelPermissionHandler(service services.ChannelPermissionService) *ChannelPermissionHandler {
	return &ChannelPermissionHandler{service: service}
}

// ListOverrides godoc
// GET /api/channels/{id}/permissions
func (h *ChannelPermissionHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	overrides, err := h.service.GetOverrides(r.Context(), channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, overrides)
}

// SetOverride godoc
// PUT /api/channels/{channelId}/permissions
// Body: { "target_type": "role"|"member", "target_id": "...", "allow": 32, "deny": 2048 }
//
// allow=0, deny=0 deletes the override (back to inherit).
func (h *ChannelPermissionHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")

	var req models.SetOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetOverride(r.Context(), channelID, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "override updated"})
}

// DeleteOverride godoc
// DELETE /api/channels/{channelId}/permissions/{targetType}/{targetId}
func (h *ChannelPermissionHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")
	targetType := models.OverrideTargetType(r.PathValue("targetType"))
	targetID := r.PathValue("targetId")

	if err := h.service.DeleteOverride(r.Context(), channelID, targetType, targetID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "override deleted"})
}
