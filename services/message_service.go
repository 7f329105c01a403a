package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/repository"
)

// mentionUsernameRegex, mesaj içeriğindeki @username kalıplarını bulur.
//
// @        — literal @ karakteri (mention başlangıcı)
// (\w+)    — bir veya daha fazla kelime karakteri (harf, rakam, _)
//
// Örnekler:
//
//	"merhaba @ali nasılsın"  → ["ali"]
//	"@ali ve @veli"           → ["ali", "veli"]
//	"email@test.com"          → ["test"] — false positive, username lookup
//	                            başarısız olursa sessizce atlanır
var mentionUsernameRegex = regexp.MustCompile(`@(\w+)`)

// mentionIDRegex, istemcinin otomatik tamamlama ile yazdığı <@userID>
// formunu bulur — kullanıcı adı değiştiğinde bile mention'ın doğru
// kişiyi işaret etmeye devam etmesini sağlayan kararlı biçim.
var mentionIDRegex = regexp.MustCompile(`<@([0-9A-Za-z_-]+)>`)

// MessageBroadcaster is the narrow gateway surface MessageService needs:
// server-scoped filtered delivery so a hidden channel doesn't leak
// MESSAGE_CREATE/UPDATE/DELETE to members who can't view it, plus
// direct dispatch to an explicit participant list for direct/group_direct
// channels, which have no server-wide subscription to filter.
type MessageBroadcaster interface {
	BroadcastToServerFiltered(serverID, event string, data any, allow func(userID string) bool)
	DispatchToUsers(userIDs []string, event string, data any)
}

// MessageService, mesaj iş mantığı interface'i.
type MessageService interface {
	GetByChannelID(ctx context.Context, channelID string, userID string, beforeID string, limit int) (*models.MessagePage, error)
	Create(ctx context.Context, channelID string, userID string, req *models.CreateMessageRequest) (*models.Message, error)
	BroadcastCreate(ctx context.Context, message *models.Message)
	Update(ctx context.Context, id string, userID string, req *models.UpdateMessageRequest) (*models.Message, error)
	Delete(ctx context.Context, id string, userID string, userPermissions models.Permission) error
}

type messageService struct {
	messageRepo   repository.MessageRepository
	attachmentRepo repository.AttachmentRepository
	channelRepo   repository.ChannelRepository
	userRepo      repository.UserRepository
	mentionRepo   repository.MentionRepository
	reactionRepo  repository.ReactionRepository
	readStateRepo repository.ReadStateRepository
	hub           MessageBroadcaster
	permResolver  ChannelPermResolver
}

// NewMessageService, constructor.
// reactionRepo: Mesajlar listelenirken reaction'ları batch yüklemek için gerekir.
// readStateRepo: Mention edilen kullanıcıların kanal bazlı mention sayacını artırmak için gerekir.
// permResolver: Kanal bazlı permission override kontrolü (SendMessages, ReadMessageHistory).
func NewMessageService(
	messageRepo repository.MessageRepository,
	attachmentRepo repository.AttachmentRepository,
	channelRepo repository.ChannelRepository,
	userRepo repository.UserRepository,
	mentionRepo repository.MentionRepository,
	reactionRepo repository.ReactionRepository,
	readStateRepo repository.ReadStateRepository,
	hub MessageBroadcaster,
	permResolver ChannelPermResolver,
) MessageService {
	return &messageService{
		messageRepo:    messageRepo,
		attachmentRepo: attachmentRepo,
		channelRepo:    channelRepo,
		userRepo:       userRepo,
		mentionRepo:    mentionRepo,
		reactionRepo:   reactionRepo,
		readStateRepo:  readStateRepo,
		hub:            hub,
		permResolver:   permResolver,
	}
}

// GetByChannelID, belirli bir kanalın mesajlarını cursor-based pagination ile döner.
//
// Kanal bazlı ReadMessageHistory permission kontrolü yapılır.
// Override ile deny edilmişse kullanıcı bu kanalın mesajlarını göremez.
func (s *messageService) GetByChannelID(ctx context.Context, channelID string, userID string, beforeID string, limit int) (*models.MessagePage, error) {
	channelPerms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel permissions: %w", err)
	}
	if !channelPerms.Has(models.PermReadMessageHistory) {
		return nil, fmt.Errorf("%w: missing read message history permission for this channel", pkg.ErrForbidden)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// limit + 1 iste — fazladan 1 satır gelirse "daha var" anlamına gelir
	messages, err := s.messageRepo.GetByChannelID(ctx, channelID, beforeID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// DB'den DESC gelir, frontend ASC bekler (en eski üstte)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if len(messages) > 0 {
		messageIDs := make([]string, len(messages))
		for i, m := range messages {
			messageIDs[i] = m.ID
		}

		attachments, err := s.attachmentRepo.GetByMessageIDs(ctx, messageIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get attachments: %w", err)
		}
		attachmentMap := make(map[string][]models.Attachment)
		for _, a := range attachments {
			attachmentMap[a.MessageID] = append(attachmentMap[a.MessageID], a)
		}

		mentionMap, err := s.mentionRepo.GetByMessageIDs(ctx, messageIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get mentions: %w", err)
		}

		reactionMap, err := s.reactionRepo.GetByMessageIDs(ctx, messageIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get reactions: %w", err)
		}

		for i := range messages {
			messages[i].Attachments = attachmentMap[messages[i].ID]
			if messages[i].Attachments == nil {
				messages[i].Attachments = []models.Attachment{}
			}
			messages[i].Mentions = mentionMap[messages[i].ID]
			if messages[i].Mentions == nil {
				messages[i].Mentions = []string{}
			}
			messages[i].Reactions = reactionMap[messages[i].ID]
			if messages[i].Reactions == nil {
				messages[i].Reactions = []models.ReactionGroup{}
			}
		}
	}

	if messages == nil {
		messages = []models.Message{}
	}

	return &models.MessagePage{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// Create, yeni bir mesaj oluşturur — kanal bazlı SendMessages permission kontrolü
// yapar, mesajı kalıcılaştırır, iki mention biçimini (@username ve <@userID>)
// çözer ve bahsedilen her kullanıcının bu kanaldaki mention sayacını artırır.
//
// Broadcast ayrı bir adımdır (BroadcastCreate) — dosya ekli mesajlarda
// handler önce Create'i çağırır, sonra dosyaları yükler, son olarak
// attachment'lı mesajı BroadcastCreate ile yayınlar.
func (s *messageService) Create(ctx context.Context, channelID string, userID string, req *models.CreateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	channelPerms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel permissions: %w", err)
	}
	if !channelPerms.Has(models.PermSendMessages) {
		return nil, fmt.Errorf("%w: missing send messages permission for this channel", pkg.ErrForbidden)
	}

	message := &models.Message{
		ChannelID: channelID,
		UserID:    userID,
		Content:   &req.Content,
	}

	if req.ReplyToID != nil && *req.ReplyToID != "" {
		refMsg, err := s.messageRepo.GetByID(ctx, *req.ReplyToID)
		if err != nil {
			return nil, fmt.Errorf("%w: referenced message not found", pkg.ErrBadRequest)
		}
		if refMsg.ChannelID != channelID {
			return nil, fmt.Errorf("%w: cannot reply to a message in a different channel", pkg.ErrBadRequest)
		}
		message.ReplyToID = req.ReplyToID
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message author: %w", err)
	}
	author.PasswordHash = ""
	message.Author = author
	message.Attachments = []models.Attachment{}
	message.Reactions = []models.ReactionGroup{}

	if message.ReplyToID != nil {
		refMsg, err := s.messageRepo.GetByID(ctx, *message.ReplyToID)
		if err == nil && refMsg != nil {
			message.ReferencedMessage = &models.MessageReference{
				ID:      refMsg.ID,
				Author:  refMsg.Author,
				Content: refMsg.Content,
			}
		}
	}

	mentionedIDs := s.extractMentions(ctx, req.Content, userID, channel.ServerID)
	if len(mentionedIDs) > 0 {
		if err := s.mentionRepo.SaveMentions(ctx, message.ID, mentionedIDs); err != nil {
			fmt.Printf("[mention] failed to save mentions for message %s: %v\n", message.ID, err)
		}
		if err := s.readStateRepo.IncrementMentionCounts(ctx, channelID, mentionedIDs); err != nil {
			fmt.Printf("[mention] failed to increment mention counts for message %s: %v\n", message.ID, err)
		}
	}
	message.Mentions = mentionedIDs

	return message, nil
}

// BroadcastCreate, mesaj oluşturulduktan (ve varsa dosyalar yüklendikten)
// sonra ilgili kullanıcılara MESSAGE_CREATE yayınlar.
//
// Server kanalları (text/voice/category) için yayın sunucu-geneli filtreli
// broadcast ile yapılır — yetkisi olmayan bağlı kullanıcıya mesaj içeriği
// bile ulaşmaz, dağıtımdan önce her alıcı için ViewChannel kontrol edilir.
//
// Direct/group_direct kanallarda sunucu-geneli abonelik yoktur; katılımcı
// listesi kanaldan okunur ve her katılımcıya DispatchToUsers ile doğrudan
// gönderilir. Konuşmayı gizlemiş (closed) bir katılımcı varsa, MESSAGE_CREATE'ten
// önce ona DM_CHANNEL_CREATE yeniden gönderilir — sohbet onun tarafında
// yeniden açılmış olur.
func (s *messageService) BroadcastCreate(ctx context.Context, message *models.Message) {
	channel, err := s.channelRepo.GetByID(ctx, message.ChannelID)
	if err != nil {
		return
	}

	if !channel.Type.IsServerChannel() {
		memberIDs, err := s.channelRepo.GetMembers(ctx, channel.ID)
		if err != nil || len(memberIDs) == 0 {
			return
		}

		reopened, err := s.channelRepo.ReopenMembers(ctx, channel.ID, memberIDs)
		if err == nil && len(reopened) > 0 {
			s.hub.DispatchToUsers(reopened, gateway.EventDMChannelCreate, channel)
		}

		s.hub.DispatchToUsers(memberIDs, gateway.EventMessageCreate, message)
		return
	}

	s.hub.BroadcastToServerFiltered(channel.ServerID, gateway.EventMessageCreate, message, func(userID string) bool {
		perms, err := s.permResolver.ResolveChannelPermissions(ctx, userID, message.ChannelID)
		if err != nil {
			return false
		}
		return perms.Has(models.PermViewChannel)
	})
}

// Update, bir mesajı düzenler. Sadece mesaj sahibi düzenleyebilir.
func (s *messageService) Update(ctx context.Context, id string, userID string, req *models.UpdateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if message.UserID != userID {
		return nil, fmt.Errorf("%w: you can only edit your own messages", pkg.ErrForbidden)
	}

	message.Content = &req.Content
	if err := s.messageRepo.Update(ctx, message); err != nil {
		return nil, err
	}

	attachments, err := s.attachmentRepo.GetByMessageID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	message.Attachments = attachments
	if message.Attachments == nil {
		message.Attachments = []models.Attachment{}
	}

	if err := s.mentionRepo.DeleteByMessageID(ctx, id); err != nil {
		fmt.Printf("[mention] failed to delete old mentions for message %s: %v\n", id, err)
	}

	channel, err := s.channelRepo.GetByID(ctx, message.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel for message: %w", err)
	}

	mentionedIDs := s.extractMentions(ctx, req.Content, userID, channel.ServerID)
	if len(mentionedIDs) > 0 {
		if err := s.mentionRepo.SaveMentions(ctx, id, mentionedIDs); err != nil {
			fmt.Printf("[mention] failed to save mentions for message %s: %v\n", id, err)
		}
		if err := s.readStateRepo.IncrementMentionCounts(ctx, message.ChannelID, mentionedIDs); err != nil {
			fmt.Printf("[mention] failed to increment mention counts for message %s: %v\n", id, err)
		}
	}
	message.Mentions = mentionedIDs

	s.hub.BroadcastToServerFiltered(channel.ServerID, gateway.EventMessageUpdate, message, func(uid string) bool {
		perms, err := s.permResolver.ResolveChannelPermissions(ctx, uid, message.ChannelID)
		return err == nil && perms.Has(models.PermViewChannel)
	})

	return message, nil
}

// Delete, bir mesajı siler. Mesaj sahibi VEYA ManageMessages yetkisi olan kullanıcılar silebilir.
func (s *messageService) Delete(ctx context.Context, id string, userID string, userPermissions models.Permission) error {
	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if message.UserID != userID && !userPermissions.Has(models.PermManageMessages) {
		return fmt.Errorf("%w: you can only delete your own messages", pkg.ErrForbidden)
	}

	if err := s.messageRepo.Delete(ctx, id); err != nil {
		return err
	}

	channel, err := s.channelRepo.GetByID(ctx, message.ChannelID)
	if err == nil {
		data := map[string]string{"id": id, "channel_id": message.ChannelID}
		s.hub.BroadcastToServerFiltered(channel.ServerID, gateway.EventMessageDelete, data, func(uid string) bool {
			perms, err := s.permResolver.ResolveChannelPermissions(ctx, uid, message.ChannelID)
			return err == nil && perms.Has(models.PermViewChannel)
		})
	}

	return nil
}

// extractMentions, mesaj içeriğindeki iki mention biçimini de çözer:
// @username (yazıldığı haliyle) ve <@userID> (istemcinin otomatik
// tamamlamayla eklediği kararlı biçim). Her ikisi de aynı kullanıcı
// ID listesine katkıda bulunur, duplicate'ler bir kez sayılır.
//
// authorID hiçbir zaman sonuca dahil edilmez — kendi kendini mention
// etmek bildirim sayacını artırmaz. serverID boş değilse sonuç, o
// sunucunun gerçek üyelerine filtrelenir (tek sunuculu mimaride her
// kayıtlı kullanıcı aynı zamanda üyedir).
func (s *messageService) extractMentions(ctx context.Context, content string, authorID string, serverID string) []string {
	seen := make(map[string]bool)
	var userIDs []string

	for _, match := range mentionUsernameRegex.FindAllStringSubmatch(content, -1) {
		username := strings.ToLower(match[1])
		user, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			continue // false positive (ör. email@domain) — sessizce atla
		}
		if user.ID == authorID {
			continue
		}
		if !seen[user.ID] {
			seen[user.ID] = true
			userIDs = append(userIDs, user.ID)
		}
	}

	for _, match := range mentionIDRegex.FindAllStringSubmatch(content, -1) {
		userID := match[1]
		if userID == authorID || seen[userID] {
			continue
		}
		if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
			continue // silinmiş veya hatalı ID — sessizce atla
		}
		seen[userID] = true
		userIDs = append(userIDs, userID)
	}

	if serverID != "" && len(userIDs) > 0 {
		members, err := s.userRepo.GetAll(ctx)
		if err == nil {
			memberIDs := make(map[string]bool, len(members))
			for _, m := range members {
				memberIDs[m.ID] = true
			}
			filtered := userIDs[:0]
			for _, id := range userIDs {
				if memberIDs[id] {
					filtered = append(filtered, id)
				}
			}
			userIDs = filtered
		}
	}

	if userIDs == nil {
		userIDs = []string{}
	}
	return userIDs
}
