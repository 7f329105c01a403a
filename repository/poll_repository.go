package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// PollRepository, oylama veritabanı işlemleri için interface.
//
// Create: bir poll'u seçenekleriyle birlikte atomik olarak oluşturur.
// GetByID: tek bir poll'u döner.
// GetOptions: bir poll'un seçeneklerini position sırasıyla döner.
// CastVote: kullanıcının önceki oylarını silip yenilerini tek transaction'da yazar.
// GetVotes: bir poll'un tüm oylarını döner — sonuç hesaplamak için.
// Close: bir poll'u kapatır, tekrar oy kabul etmez.
// GetExpiredOpen: closes_at'i geçmiş ama hâlâ açık pollları döner — Deferred-Work Loop bunu kullanır.
type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error
	GetByID(ctx context.Context, id string) (*models.Poll, error)
	GetOptions(ctx context.Context, pollID string) ([]models.PollOption, error)
	CastVote(ctx context.Context, pollID, userID string, votes []models.PollVote) error
	RetractVote(ctx context.Context, pollID, userID string) error
	GetVotes(ctx context.Context, pollID string) ([]models.PollVote, error)
	Close(ctx context.Context, pollID string) error
	GetExpiredOpen(ctx context.Context) ([]models.Poll, error)
}
