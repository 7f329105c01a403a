// Package main — Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// ÖNEMLİ sıralama kuralları:
// 1. channelPermService → ChannelService, VoiceService, MessageService, PollService,
//    ReadStateService ve ScheduledMessageService'den ÖNCE (hepsi onun ürettiği
//    ChannelPermResolver/Broadcaster arayüzlerine bağımlı)
// 2. inviteService → authService'den ÖNCE (Register sırasında davet kodu doğrulaması)
package main

import (
	"database/sql"
	"time"

	"github.com/akinalp/mqvi/config"
	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/pkg/ratelimit"
	"github.com/akinalp/mqvi/services"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth              services.AuthService
	Server            services.ServerService
	Channel           services.ChannelService
	Category          services.CategoryService
	Message           services.MessageService
	Member            services.MemberService
	Role              services.RoleService
	Voice             services.VoiceService
	Invite            services.InviteService
	Pin               services.PinService
	ReadState         services.ReadStateService
	DM                services.DMService
	Reaction          services.ReactionService
	ChannelPermission services.ChannelPermissionService
	Poll              services.PollService
	ScheduledMessage  services.ScheduledMessageService
	Scheduler         services.SchedulerService
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login   *ratelimit.LoginRateLimiter
	Message *ratelimit.MessageRateLimiter
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
//
// Sıralama kritiktir — bkz. dosya başı yorum. hub (fan-out'a ihtiyaç duyan
// service'ler için) ve router (sunucu-filtreli dağıtıma ihtiyaç duyanlar için)
// ile encryptionKey service'ler arası paylaşılan dependency'lerdir.
func initServices(db *sql.DB, repos *Repositories, hub *gateway.Hub, router *gateway.Router, cfg *config.Config, encryptionKey []byte) (*Services, *RateLimiters, error) {
	// ─── Sıralama-kritik service'ler ───

	// ChannelPermissionService — ChannelService/VoiceService/MessageService'den ÖNCE
	channelPermService := services.NewChannelPermissionService(
		repos.ChannelPermission, repos.Role, repos.Channel, repos.Server, hub,
	)

	// VoiceService
	voiceService := services.NewVoiceService(
		repos.Channel, repos.LiveKit, channelPermService, hub, encryptionKey,
	)

	// InviteService — AuthService'den ÖNCE (Register sırasında davet kodu doğrulaması)
	inviteService := services.NewInviteService(repos.Invite, repos.Server)

	// ─── Diğer service'ler ───
	authService := services.NewAuthService(
		repos.User, repos.Session, repos.Role, repos.Ban, repos.Server, inviteService,
		cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry,
	)

	channelService := services.NewChannelService(repos.Channel, repos.Category, repos.Server, channelPermService, hub)
	categoryService := services.NewCategoryService(repos.Category, repos.Server, hub)
	messageService := services.NewMessageService(
		repos.Message, repos.Attachment, repos.Channel, repos.User,
		repos.Mention, repos.Reaction, repos.ReadState, router, channelPermService,
	)
	memberService := services.NewMemberService(repos.User, repos.Role, repos.Ban, hub)
	roleService := services.NewRoleService(repos.Role, repos.User, hub)
	serverService := services.NewServerService(repos.Server, hub)
	pinService := services.NewPinService(repos.Pin, repos.Message, hub)
	readStateService := services.NewReadStateService(repos.ReadState, channelPermService)
	dmService := services.NewDMService(repos.DM, repos.User, hub)
	reactionService := services.NewReactionService(repos.Reaction, repos.Message, hub)
	pollService := services.NewPollService(repos.Poll, repos.Message, repos.Channel, channelPermService, router)
	scheduledMessageService := services.NewScheduledMessageService(repos.ScheduledMessage, repos.Channel, channelPermService)

	schedulerService, err := services.NewSchedulerService(repos.ScheduledMessage, messageService, pollService)
	if err != nil {
		return nil, nil, err
	}

	// ─── Rate Limiters ───
	loginLimiter := ratelimit.NewLoginRateLimiter(5, 2*time.Minute)
	messageLimiter := ratelimit.NewMessageRateLimiter(5, 5*time.Second, 15*time.Second)

	svcs := &Services{
		Auth:              authService,
		Server:            serverService,
		Channel:           channelService,
		Category:          categoryService,
		Message:           messageService,
		Member:            memberService,
		Role:              roleService,
		Voice:             voiceService,
		Invite:            inviteService,
		Pin:               pinService,
		ReadState:         readStateService,
		DM:                dmService,
		Reaction:          reactionService,
		ChannelPermission: channelPermService,
		Poll:              pollService,
		ScheduledMessage:  scheduledMessageService,
		Scheduler:         schedulerService,
	}

	limiters := &RateLimiters{
		Login:   loginLimiter,
		Message: messageLimiter,
	}

	return svcs, limiters, nil
}
