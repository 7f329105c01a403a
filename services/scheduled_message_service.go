// Package services — ScheduledMessageService: user-facing CRUD over the
// Deferred-Work Loop's send queue. No donor equivalent; grounded on
// message_service.go's own SendMessages permission check (scheduling a
// message that will post without further review still needs the
// channel's send permission at schedule time) and on poll_service.go's
// Interface Segregation style for its dependencies.
package services

import (
	"context"
	"fmt"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/repository"
)

// ScheduledMessageService manages a channel's queue of not-yet-sent
// scheduled messages.
type ScheduledMessageService interface {
	Create(ctx context.Context, userID, channelID string, req *models.CreateScheduledMessageRequest) (*models.ScheduledMessage, error)
	GetByChannelID(ctx context.Context, userID, channelID string) ([]models.ScheduledMessage, error)
	Cancel(ctx context.Context, userID, scheduledID string) error
}

type scheduledMessageService struct {
	scheduledMessageRepo repository.ScheduledMessageRepository
	channelGetter        ChannelGetter
	permResolver         ChannelPermResolver
}

// NewScheduledMessageService, constructor — interface döner.
func NewScheduledMessageService(
	scheduledMessageRepo repository.ScheduledMessageRepository,
	channelGetter ChannelGetter,
	permResolver ChannelPermResolver,
) ScheduledMessageService {
	return &scheduledMessageService{
		scheduledMessageRepo: scheduledMessageRepo,
		channelGetter:        channelGetter,
		permResolver:         permResolver,
	}
}

// Create queues a message to be sent at req.SendAt. Requires the same
// SendMessages permission that sending immediately would — a scheduled
// message is a promise to post later, not a way around the permission
// check.
func (s *scheduledMessageService) Create(ctx context.Context, userID, channelID string, req *models.CreateScheduledMessageRequest) (*models.ScheduledMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if _, err := s.channelGetter.GetByID(ctx, channelID); err != nil {
		return nil, err
	}

	perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermSendMessages) {
		return nil, fmt.Errorf("%w: missing send messages permission for this channel", pkg.ErrForbidden)
	}

	msg := &models.ScheduledMessage{
		ChannelID: channelID,
		AuthorID:  userID,
		Content:   req.Content,
		SendAt:    req.SendAt,
	}
	if req.ReplyToID != "" {
		msg.ReplyToID = &req.ReplyToID
	}

	if err := s.scheduledMessageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to schedule message: %w", err)
	}

	return msg, nil
}

// GetByChannelID lists a channel's not-yet-sent scheduled messages.
// Requires ReadMessageHistory — the same visibility the channel's
// already-sent messages require.
func (s *scheduledMessageService) GetByChannelID(ctx context.Context, userID, channelID string) ([]models.ScheduledMessage, error) {
	perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermReadMessageHistory) {
		return nil, fmt.Errorf("%w: missing read message history permission for this channel", pkg.ErrForbidden)
	}

	msgs, err := s.scheduledMessageRepo.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.ScheduledMessage{}
	}
	return msgs, nil
}

// Cancel removes a queued message before it sends. Only the author can
// cancel their own scheduled message — there is no moderator override,
// since a scheduled message has no visible presence for anyone else to
// moderate until it actually posts.
func (s *scheduledMessageService) Cancel(ctx context.Context, userID, scheduledID string) error {
	msg, err := s.scheduledMessageRepo.GetByID(ctx, scheduledID)
	if err != nil {
		return err
	}
	if msg.AuthorID != userID {
		return fmt.Errorf("%w: you can only cancel your own scheduled messages", pkg.ErrForbidden)
	}
	return s.scheduledMessageRepo.Delete(ctx, scheduledID)
}
