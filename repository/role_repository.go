package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// RoleRepository, rol veritabanı işlemleri için interface.
//
// Tek sunucu mimarisinde her rol satırı aynı tek server_id'ye aittir,
// bu yüzden GetAll/GetByUserID gibi server-parametresiz metotlar asıl
// kullanılan yoldur. GetAllByServer/GetByUserIDAndServer/GetDefaultByServer
// ChannelPermissionService'in görünürlük ve izin çözümleme mantığında
// kalır — o kod zaten elindeki channel.ServerID'yi taşıyor, iki ayrı
// sorgu yolu yerine tek server_id parametresi daha az özel durum demek.
type RoleRepository interface {
	// ─── Read ───
	GetByID(ctx context.Context, id string) (*models.Role, error)
	GetAll(ctx context.Context) ([]models.Role, error)
	GetAllByServer(ctx context.Context, serverID string) ([]models.Role, error)
	GetDefault(ctx context.Context) (*models.Role, error)
	GetDefaultByServer(ctx context.Context, serverID string) (*models.Role, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Role, error)
	GetByUserIDAndServer(ctx context.Context, userID, serverID string) ([]models.Role, error)
	GetMaxPosition(ctx context.Context, serverID string) (int, error)

	// ─── Write ───
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error

	// UpdatePositions, birden fazla rolün position değerini atomik olarak günceller.
	UpdatePositions(ctx context.Context, items []models.PositionUpdate) error

	// ─── User-Role mapping ───
	// AssignToUser tek sunucu mimarisinde serverID almaz — user_roles.server_id
	// her zaman tek sunucunun ID'sidir, implementasyon bunu kendi çözer.
	AssignToUser(ctx context.Context, userID, roleID string) error
	RemoveFromUser(ctx context.Context, userID, roleID string) error
}
