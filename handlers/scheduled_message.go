package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/services"
)

// ScheduledMessageHandler, zamanlanmış mesaj kuyruğu endpoint'lerini
// yöneten struct.
//
// Thin handler pattern: sadece HTTP request parse + response yazımı yapar.
// Tüm iş mantığı ScheduledMessageService'de.
type ScheduledMessageHandler struct {
	scheduledMessageService services.ScheduledMessageService
}

// NewScheduledMessageHandler, constructor.
func NewScheduledMessageHandler(scheduledMessageService services.ScheduledMessageService) *ScheduledMessageHandler {
	return &ScheduledMessageHandler{scheduledMessageService: scheduledMessageService}
}

// Create godoc
// POST /api/channels/{channelId}/scheduled-messages
// Bir kanalda ileri bir tarihte gönderilmek üzere mesaj kuyruğa alır.
func (h *ScheduledMessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreateScheduledMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.scheduledMessageService.Create(r.Context(), user.ID, channelID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// List godoc
// GET /api/channels/{channelId}/scheduled-messages
// Bir kanalın henüz gönderilmemiş zamanlanmış mesajlarını listeler.
func (h *ScheduledMessageHandler) List(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	msgs, err := h.scheduledMessageService.GetByChannelID(r.Context(), user.ID, channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msgs)
}

// Cancel godoc
// DELETE /api/scheduled-messages/{id}
// Kuyruktaki bir mesajı gönderilmeden önce iptal eder — sadece yazarı.
func (h *ScheduledMessageHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	scheduledID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.scheduledMessageService.Cancel(r.Context(), user.ID, scheduledID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "scheduled message cancelled"})
}
