package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// ScheduledMessageRepository, zamanlanmış mesaj veritabanı işlemleri için interface.
//
// Create: yeni bir zamanlanmış mesaj kaydeder.
// GetByID: tek bir zamanlanmış mesajı döner — iptal öncesi sahiplik kontrolü için.
// GetDue: send_at'i geçmiş satırları döner — Deferred-Work Loop bunları gerçek
// mesaja çevirip ardından Delete ile kuyruktan düşürür.
// Delete: tek bir zamanlanmış mesajı kuyruktan kaldırır (gönderildikten veya
// kanalı/yazarı artık yoksa iptal edildikten sonra).
// GetByChannelID: bir kanalın henüz gönderilmemiş zamanlanmış mesajlarını listeler.
type ScheduledMessageRepository interface {
	Create(ctx context.Context, msg *models.ScheduledMessage) error
	GetByID(ctx context.Context, id string) (*models.ScheduledMessage, error)
	GetDue(ctx context.Context) ([]models.ScheduledMessage, error)
	GetByChannelID(ctx context.Context, channelID string) ([]models.ScheduledMessage, error)
	Delete(ctx context.Context, id string) error
}
