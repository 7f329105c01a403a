package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// CategoryRepository, kategori veritabanı işlemleri için interface.
//
// Tek sunucu mimarisinde her kategori satırı aynı tek server_id'ye aittir,
// bu yüzden GetAll/GetMaxPosition'ın server-parametresiz hali asıl kullanılan
// yoldur. GetAllByServer server-scoped hali de korunur — RoleRepository'deki
// aynı ayrımla tutarlı, çağıran tarafın elinde zaten bir serverID varsa onu
// kullanabilmesi için.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetAll(ctx context.Context) ([]models.Category, error)
	GetAllByServer(ctx context.Context, serverID string) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
	GetMaxPosition(ctx context.Context, serverID string) (int, error)
}
