// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: JWT token doğrulaması
//   - authPerm: auth + belirli permission kontrolü (rol bazlı, tek sunucu)
//   - authPermLoad: auth + permission'ları context'e yükler, kontrolü handler yapar
//     (ör. mesaj silme: sahibi VEYA MANAGE_MESSAGES yetkisi olan silebilir)
//
// Tek sunucu mimarisinde ayrı bir üyelik middleware'ine gerek yoktur —
// kayıt olmak zaten tek sunucuya üye olmaktır (bkz. AuthService.Register).
package main

import (
	"net/http"

	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/middleware"
	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/repository"
	"github.com/akinalp/mqvi/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE tanımlanmalı.
// Örnek: "/api/channels/reorder" → "/api/channels/{id}" öncesinde,
// yoksa Go router ilgili path segmentini bir path param olarak yorumlar.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	ws *gateway.Handler,
	authService services.AuthService,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	permMw := middleware.NewPermissionMiddleware(roleRepo)

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}
	authPerm := func(perm models.Permission, handler http.HandlerFunc) http.Handler {
		return authMw.Require(permMw.Require(perm, http.HandlerFunc(handler)))
	}
	authPermLoad := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(permMw.Load(http.HandlerFunc(handler)))
	}

	// ╔══════════════════════════════════════════╗
	// ║  AUTH & USER                              ║
	// ╚══════════════════════════════════════════╝

	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.Handle("POST /api/auth/logout", auth(h.Auth.Logout))

	mux.Handle("GET /api/users/me", auth(h.Auth.Me))
	mux.Handle("PATCH /api/users/me/profile", auth(h.Member.UpdateProfile))
	mux.Handle("POST /api/users/me/password", auth(h.Auth.ChangePassword))

	// ╔══════════════════════════════════════════╗
	// ║  SERVER                                   ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/server", auth(h.Server.Get))
	mux.Handle("PATCH /api/server", authPerm(models.PermManageServer, h.Server.Update))

	// ╔══════════════════════════════════════════╗
	// ║  CATEGORIES                               ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/categories", auth(h.Category.List))
	mux.Handle("POST /api/categories", authPerm(models.PermManageChannels, h.Category.Create))
	mux.Handle("PATCH /api/categories/{id}", authPerm(models.PermManageChannels, h.Category.Update))
	mux.Handle("DELETE /api/categories/{id}", authPerm(models.PermManageChannels, h.Category.Delete))

	// ╔══════════════════════════════════════════╗
	// ║  CHANNELS                                 ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/channels", auth(h.Channel.List))
	mux.Handle("POST /api/channels", authPerm(models.PermManageChannels, h.Channel.Create))
	// "reorder" literal path'i {id} parametresinden ÖNCE tanımlanmalı.
	mux.Handle("PATCH /api/channels/reorder", authPerm(models.PermManageChannels, h.Channel.Reorder))
	mux.Handle("PATCH /api/channels/{id}", authPerm(models.PermManageChannels, h.Channel.Update))
	mux.Handle("DELETE /api/channels/{id}", authPerm(models.PermManageChannels, h.Channel.Delete))

	// Channel permission override'ları — liste herkese açık, yazma işlemleri
	// ManageChannels gerektirir.
	mux.Handle("GET /api/channels/{id}/permissions", auth(h.ChannelPermission.ListOverrides))
	mux.Handle("PUT /api/channels/{channelId}/permissions", authPerm(models.PermManageChannels, h.ChannelPermission.SetOverride))
	mux.Handle("DELETE /api/channels/{channelId}/permissions/{targetType}/{targetId}", authPerm(models.PermManageChannels, h.ChannelPermission.DeleteOverride))

	// ╔══════════════════════════════════════════╗
	// ║  MESSAGES, REACTIONS, PINS, READ STATE    ║
	// ║  (yetki kontrolü kanal bazlı, service      ║
	// ║  katmanında ChannelPermResolver ile yapılır) ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/channels/{id}/messages", auth(h.Message.List))
	mux.Handle("POST /api/channels/{id}/messages", auth(h.Message.Create))
	mux.Handle("PATCH /api/messages/{id}", auth(h.Message.Update))
	// Delete: mesaj sahibi VEYA ManageMessages yetkisi olan silebilir —
	// kontrolü handler service'e devreder, middleware sadece permission'ları yükler.
	mux.Handle("DELETE /api/messages/{id}", authPermLoad(h.Message.Delete))

	mux.Handle("POST /api/messages/{messageId}/reactions", auth(h.Reaction.Toggle))

	mux.Handle("GET /api/channels/{id}/pins", auth(h.Pin.ListPins))
	mux.Handle("POST /api/channels/{channelId}/messages/{messageId}/pin", auth(h.Pin.Pin))
	mux.Handle("DELETE /api/channels/{channelId}/messages/{messageId}/pin", auth(h.Pin.Unpin))

	mux.Handle("POST /api/channels/{id}/read", auth(h.ReadState.MarkRead))
	mux.Handle("GET /api/channels/unread", auth(h.ReadState.GetUnreads))

	// ╔══════════════════════════════════════════╗
	// ║  POLLS & SCHEDULED MESSAGES                ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("POST /api/channels/{channelId}/polls", auth(h.Poll.Create))
	mux.Handle("GET /api/polls/{id}", auth(h.Poll.Get))
	mux.Handle("POST /api/polls/{id}/votes", auth(h.Poll.CastVote))
	mux.Handle("DELETE /api/polls/{id}/votes", auth(h.Poll.RetractVote))
	mux.Handle("POST /api/polls/{id}/close", auth(h.Poll.Close))

	mux.Handle("POST /api/channels/{channelId}/scheduled-messages", auth(h.ScheduledMessage.Create))
	mux.Handle("GET /api/channels/{channelId}/scheduled-messages", auth(h.ScheduledMessage.List))
	mux.Handle("DELETE /api/scheduled-messages/{id}", auth(h.ScheduledMessage.Cancel))

	// ╔══════════════════════════════════════════╗
	// ║  MEMBERS, BANS, ROLES                     ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/members", auth(h.Member.List))
	mux.Handle("GET /api/members/{id}", auth(h.Member.Get))
	mux.Handle("PATCH /api/members/{id}/roles", authPerm(models.PermManageRoles, h.Member.ModifyRoles))
	mux.Handle("DELETE /api/members/{id}", authPerm(models.PermKickMembers, h.Member.Kick))
	mux.Handle("POST /api/members/{id}/ban", authPerm(models.PermBanMembers, h.Member.Ban))

	mux.Handle("GET /api/bans", authPerm(models.PermBanMembers, h.Member.GetBans))
	mux.Handle("DELETE /api/bans/{id}", authPerm(models.PermBanMembers, h.Member.Unban))

	mux.Handle("GET /api/roles", auth(h.Role.List))
	mux.Handle("POST /api/roles", authPerm(models.PermManageRoles, h.Role.Create))
	// "reorder" literal path'i {id} parametresinden ÖNCE tanımlanmalı.
	mux.Handle("PATCH /api/roles/reorder", authPerm(models.PermManageRoles, h.Role.Reorder))
	mux.Handle("PATCH /api/roles/{id}", authPerm(models.PermManageRoles, h.Role.Update))
	mux.Handle("DELETE /api/roles/{id}", authPerm(models.PermManageRoles, h.Role.Delete))

	// ╔══════════════════════════════════════════╗
	// ║  INVITES                                  ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/invites", authPerm(models.PermCreateInstantInvite, h.Invite.List))
	mux.Handle("POST /api/invites", authPerm(models.PermCreateInstantInvite, h.Invite.Create))
	mux.Handle("DELETE /api/invites/{code}", authPerm(models.PermCreateInstantInvite, h.Invite.Delete))

	// ╔══════════════════════════════════════════╗
	// ║  VOICE                                    ║
	// ║  (admin alt-endpoint'ler kendi yetki        ║
	// ║  kontrolünü VoiceService içinde yapar)    ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("POST /api/voice/token", auth(h.Voice.Token))
	mux.Handle("GET /api/voice/states", auth(h.Voice.VoiceStates))
	mux.Handle("POST /api/voice/join", auth(h.Voice.Join))
	mux.Handle("POST /api/voice/leave", auth(h.Voice.Leave))
	mux.Handle("PATCH /api/voice/state", auth(h.Voice.UpdateState))
	mux.Handle("PATCH /api/voice/users/{userId}/state", auth(h.Voice.AdminUpdateState))
	mux.Handle("POST /api/voice/users/{userId}/move", auth(h.Voice.MoveUser))
	mux.Handle("DELETE /api/voice/users/{userId}", auth(h.Voice.AdminDisconnectUser))

	// ╔══════════════════════════════════════════╗
	// ║  DIRECT MESSAGES                          ║
	// ╚══════════════════════════════════════════╝

	mux.Handle("GET /api/dms", auth(h.DM.ListChannels))
	mux.Handle("POST /api/dms", auth(h.DM.CreateOrGetChannel))
	mux.Handle("GET /api/dms/{channelId}/messages", auth(h.DM.GetMessages))
	mux.Handle("POST /api/dms/{channelId}/messages", auth(h.DM.SendMessage))
	mux.Handle("PATCH /api/dms/messages/{id}", auth(h.DM.EditMessage))
	mux.Handle("DELETE /api/dms/messages/{id}", auth(h.DM.DeleteMessage))

	// ╔══════════════════════════════════════════╗
	// ║  WEBSOCKET                                ║
	// ╚══════════════════════════════════════════╝

	// Token query parametre olarak gönderilir — WS upgrade sırasında
	// tarayıcılar custom header ekleyemez. Kimlik doğrulama ve el sıkışma
	// (Hello/Identify/Resume) gateway.Connection içinde yürütülür.
	mux.Handle("GET /ws", ws)
}
