// Package main — Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Her handler, ihtiyaç duyduğu service interface'lerini constructor'dan alır.
// Handler'lar "thin" dir — sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/mqvi/handlers"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth              *handlers.AuthHandler
	Channel           *handlers.ChannelHandler
	Category          *handlers.CategoryHandler
	Message           *handlers.MessageHandler
	Member            *handlers.MemberHandler
	Role              *handlers.RoleHandler
	Voice             *handlers.VoiceHandler
	Server            *handlers.ServerHandler
	Invite            *handlers.InviteHandler
	Pin               *handlers.PinHandler
	ReadState         *handlers.ReadStateHandler
	DM                *handlers.DMHandler
	Reaction          *handlers.ReactionHandler
	ChannelPermission *handlers.ChannelPermissionHandler
	Poll              *handlers.PollHandler
	ScheduledMessage  *handlers.ScheduledMessageHandler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(svcs *Services, limiters *RateLimiters) *Handlers {
	return &Handlers{
		Auth:              handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Channel:           handlers.NewChannelHandler(svcs.Channel),
		Category:          handlers.NewCategoryHandler(svcs.Category),
		Message:           handlers.NewMessageHandler(svcs.Message),
		Member:            handlers.NewMemberHandler(svcs.Member),
		Role:              handlers.NewRoleHandler(svcs.Role),
		Voice:             handlers.NewVoiceHandler(svcs.Voice),
		Server:            handlers.NewServerHandler(svcs.Server),
		Invite:            handlers.NewInviteHandler(svcs.Invite),
		Pin:               handlers.NewPinHandler(svcs.Pin),
		ReadState:         handlers.NewReadStateHandler(svcs.ReadState),
		DM:                handlers.NewDMHandler(svcs.DM),
		Reaction:          handlers.NewReactionHandler(svcs.Reaction),
		ChannelPermission: handlers.NewChannelPermissionHandler(svcs.ChannelPermission),
		Poll:              handlers.NewPollHandler(svcs.Poll),
		ScheduledMessage:  handlers.NewScheduledMessageHandler(svcs.ScheduledMessage),
	}
}
