// Package handlers, voice (ses) HTTP endpoint'lerini yönetir.
//
// Handler'lar "ince" olmalıdır:
// - Request parse et
// - Service çağır
// - Response yaz
//
// İş mantığı (permission kontrolü, token oluşturma) burada değil,
// VoiceService'te yaşar. Handler sadece HTTP request/response köprüsüdür.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/services"
)

// VoiceHandler, ses kanalı HTTP endpoint'lerini yönetir.
type VoiceHandler struct {
	voiceService services.VoiceService
}

// NewVoiceHandler, yeni bir VoiceHandler oluşturur.
// Constructor injection: VoiceService interface'i parametre olarak alınır.
func NewVoiceHandler(voiceService services.VoiceService) *VoiceHandler {
	return &VoiceHandler{voiceService: voiceService}
}

// Token, ses kanalına katılmak için LiveKit JWT token oluşturur.
//
//	POST /api/voice/token
//	Request:  { "channel_id": "abc123" }
//	Response: { "token": "eyJ...", "url": "ws://localhost:7880", "channel_id": "abc123" }
//
// Permission kontrolü (PermConnect, PermSpeak)
// VoiceService.GenerateToken içinde yapılır — handler sadece iletir.
func (h *VoiceHandler) Token(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.VoiceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ChannelID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "channel_id is required")
		return
	}

	// display_name varsa onu tercih et, yoksa username kullanılır (service katmanında).
	var displayName string
	if user.DisplayName != nil {
		displayName = *user.DisplayName
	}
	resp, err := h.voiceService.GenerateToken(r.Context(), user.ID, user.Username, displayName, req.ChannelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, resp)
}

// VoiceStates, tüm aktif ses durumlarını döner.
// İlk bağlantı veya reconnect sonrası frontend bu endpoint'i çağırarak
// hangi kullanıcıların hangi ses kanallarında olduğunu öğrenir.
//
//	GET /api/voice/states
//	Response: [ { "user_id": "...", "channel_id": "...", ... } ]
func (h *VoiceHandler) VoiceStates(w http.ResponseWriter, r *http.Request) {
	states := h.voiceService.GetAllVoiceStates()
	pkg.JSON(w, http.StatusOK, states)
}

type joinVoiceRequest struct {
	ChannelID string `json:"channel_id"`
}

// Join godoc
// POST /api/voice/join
// Kullanıcıyı ses kanalına kaydeder. LiveKit'e token ile bağlandıktan
// sonra client bu endpoint'i çağırarak kendi occupancy durumunu
// diğer üyelere duyurur.
func (h *VoiceHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req joinVoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var displayName, avatarURL string
	if user.DisplayName != nil {
		displayName = *user.DisplayName
	}
	if user.AvatarURL != nil {
		avatarURL = *user.AvatarURL
	}

	if err := h.voiceService.JoinChannel(user.ID, user.Username, displayName, avatarURL, req.ChannelID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// Leave godoc
// POST /api/voice/leave
// Kullanıcıyı mevcut ses kanalından çıkarır.
func (h *VoiceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.voiceService.LeaveChannel(user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "left"})
}

type updateVoiceStateRequest struct {
	IsMuted     *bool `json:"is_muted"`
	IsDeafened  *bool `json:"is_deafened"`
	IsStreaming *bool `json:"is_streaming"`
}

// UpdateState godoc
// PATCH /api/voice/state
// Kullanıcının kendi mute/deafen/streaming durumunu günceller.
func (h *VoiceHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req updateVoiceStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.voiceService.UpdateState(user.ID, req.IsMuted, req.IsDeafened, req.IsStreaming); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type adminUpdateVoiceStateRequest struct {
	IsServerMuted    *bool `json:"is_server_muted"`
	IsServerDeafened *bool `json:"is_server_deafened"`
}

// AdminUpdateState godoc
// PATCH /api/voice/users/{userId}/state
// Yetkili bir kullanıcının başka bir kullanıcıyı server mute/deafen
// yapmasını sağlar. MuteMembers/DeafenMembers yetkisi gerekir.
func (h *VoiceHandler) AdminUpdateState(w http.ResponseWriter, r *http.Request) {
	targetUserID := r.PathValue("userId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req adminUpdateVoiceStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.voiceService.AdminUpdateState(r.Context(), user.ID, targetUserID, req.IsServerMuted, req.IsServerDeafened); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type moveVoiceUserRequest struct {
	ChannelID string `json:"channel_id"`
}

// MoveUser godoc
// POST /api/voice/users/{userId}/move
// Bir kullanıcıyı başka bir ses kanalına taşır. Taşıyanın her iki
// kanalda da MoveMembers yetkisi olmalıdır.
func (h *VoiceHandler) MoveUser(w http.ResponseWriter, r *http.Request) {
	targetUserID := r.PathValue("userId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req moveVoiceUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.voiceService.MoveUser(r.Context(), user.ID, targetUserID, req.ChannelID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// AdminDisconnectUser godoc
// DELETE /api/voice/users/{userId}
// Bir kullanıcıyı ses kanalından atar. Atanın hedef kullanıcının
// kanalında MoveMembers yetkisi olmalıdır.
func (h *VoiceHandler) AdminDisconnectUser(w http.ResponseWriter, r *http.Request) {
	targetUserID := r.PathValue("userId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.voiceService.AdminDisconnectUser(r.Context(), user.ID, targetUserID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
