package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// ReadStateRepository, okuma durumu veritabanı işlemleri için interface.
//
// Upsert: Son okunan mesajı günceller (yoksa oluşturur), mention sayacını sıfırlar.
// GetUnreadCounts: Bir kullanıcının tüm kanallarındaki okunmamış/mention sayılarını döner.
// IncrementMentionCounts: Bir mesajda bahsedilen her kullanıcının o kanaldaki
// mention sayacını bir artırır — Message Ingest her mesaj oluşturulduğunda çağırır.
// MarkAllRead: Sunucudaki tüm text kanallarının son mesajını okunmuş işaretler.
type ReadStateRepository interface {
	Upsert(ctx context.Context, userID, channelID, messageID string) error
	GetUnreadCounts(ctx context.Context, userID string) ([]models.UnreadInfo, error)
	IncrementMentionCounts(ctx context.Context, channelID string, userIDs []string) error
	MarkAllRead(ctx context.Context, userID, serverID string) error
}
