package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/services"
)

// PollHandler, oylama endpoint'lerini yöneten struct.
//
// Thin handler pattern: sadece HTTP request parse + response yazımı yapar.
// Tüm iş mantığı PollService'de.
type PollHandler struct {
	pollService services.PollService
}

// NewPollHandler, constructor.
func NewPollHandler(pollService services.PollService) *PollHandler {
	return &PollHandler{pollService: pollService}
}

// Create godoc
// POST /api/channels/{channelId}/polls
// Bir kanalda yeni bir oylama başlatır.
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poll, err := h.pollService.Create(r.Context(), user.ID, channelID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, poll)
}

// Get godoc
// GET /api/polls/{id}
// Bir oylamayı güncel oy döküm bilgisiyle birlikte döner.
func (h *PollHandler) Get(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	poll, err := h.pollService.Get(r.Context(), user.ID, pollID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, poll)
}

// CastVote godoc
// POST /api/polls/{id}/votes
// Oylamaya oy verir — önceki oyları silip yenilerini yazar.
func (h *PollHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poll, err := h.pollService.CastVote(r.Context(), user.ID, pollID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, poll)
}

// RetractVote godoc
// DELETE /api/polls/{id}/votes
// Kullanıcının bu oylamadaki oylarını geri çeker.
func (h *PollHandler) RetractVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	poll, err := h.pollService.RetractVote(r.Context(), user.ID, pollID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, poll)
}

// Close godoc
// POST /api/polls/{id}/close
// Oylamayı elle kapatır — poll sahibi veya ManageMessages yetkisi gerekir.
func (h *PollHandler) Close(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	poll, err := h.pollService.Close(r.Context(), user.ID, pollID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, poll)
}
