package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// ChannelRepository, kanal veritabanı işlemleri için interface.
// Her method context.Context alır — HTTP isteği iptal edilirse sorgu da durur.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	GetAll(ctx context.Context) ([]models.Channel, error)
	GetByCategoryID(ctx context.Context, categoryID string) ([]models.Channel, error)
	Update(ctx context.Context, channel *models.Channel) error
	Delete(ctx context.Context, id string) error
	GetMaxPosition(ctx context.Context, categoryID string) (int, error)
	// UpdatePositions, birden fazla kanalın position değerini atomik olarak günceller.
	// Transaction kullanılır — ya hepsi güncellenir ya hiçbiri.
	UpdatePositions(ctx context.Context, items []models.PositionUpdate) error

	// GetMembers, direct/group_direct bir kanalın katılımcı ID listesini döner.
	// Server kanalları için kullanılmaz — tek sunuculu yapıda her kayıtlı kullanıcı üyedir.
	GetMembers(ctx context.Context, channelID string) ([]string, error)
	// ReopenMembers, userIDs içinden "closed" (gizlenmiş) durumdaki
	// katılımcıları yeniden açar ve hangilerinin açıldığını döner —
	// çağıran bu kullanıcılara DM_CHANNEL_CREATE'i yeniden göndermeli.
	ReopenMembers(ctx context.Context, channelID string, userIDs []string) ([]string, error)
}
