package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/mqvi/models"
)

// sqliteReadStateRepo, ReadStateRepository interface'inin SQLite implementasyonu.
type sqliteReadStateRepo struct {
	db *sql.DB
}

// NewSQLiteReadStateRepo, constructor — interface döner.
func NewSQLiteReadStateRepo(db *sql.DB) ReadStateRepository {
	return &sqliteReadStateRepo{db: db}
}

// Upsert, bir kullanıcının belirli bir kanaldaki son okunan mesajını günceller
// ve mention sayacını sıfırlar — kanalı okumak, o kanaldaki mention'ları da
// görmüş saymak anlamına gelir.
//
// INSERT ... ON CONFLICT DO UPDATE kullanıyoruz (SQLite "upsert" pattern).
// PRIMARY KEY (user_id, channel_id) çakışırsa satır güncellenir.
func (r *sqliteReadStateRepo) Upsert(ctx context.Context, userID, channelID, messageID string) error {
	query := `
		INSERT INTO channel_reads (user_id, channel_id, last_read_message_id, last_read_at, mention_count)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, 0)
		ON CONFLICT(user_id, channel_id)
		DO UPDATE SET last_read_message_id = excluded.last_read_message_id,
		              last_read_at = excluded.last_read_at,
		              mention_count = 0`

	_, err := r.db.ExecContext(ctx, query, userID, channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to upsert read state: %w", err)
	}
	return nil
}

// GetUnreadCounts, bir kullanıcının tüm kanallarındaki okunmamış mesaj ve
// mention sayılarını döner.
//
// Sorgu mantığı:
// 1. channels tablosundan tüm text kanallarını al (voice kanalları hariç)
// 2. channel_reads ile LEFT JOIN — kullanıcının okuma durumunu bul
// 3. Okunmamış mesaj sayısı = last_read_message_id'den sonraki mesaj sayısı
// 4. Hiç okuma kaydı yoksa (yeni kanal) tüm mesajlar okunmamış sayılır
// 5. unread_count VEYA mention_count > 0 olan kanalları döner
func (r *sqliteReadStateRepo) GetUnreadCounts(ctx context.Context, userID string) ([]models.UnreadInfo, error) {
	query := `
		SELECT id, unread_count, mention_count FROM (
			SELECT c.id,
			       (SELECT COUNT(*) FROM messages m
			        WHERE m.channel_id = c.id
			          AND (cr.last_read_message_id IS NULL
			               OR m.created_at > (SELECT created_at FROM messages WHERE id = cr.last_read_message_id))
			       ) as unread_count,
			       COALESCE(cr.mention_count, 0) as mention_count
			FROM channels c
			LEFT JOIN channel_reads cr ON cr.channel_id = c.id AND cr.user_id = ?
			WHERE c.type = 'text'
		) WHERE unread_count > 0 OR mention_count > 0`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unread counts: %w", err)
	}
	defer rows.Close()

	var unreads []models.UnreadInfo
	for rows.Next() {
		var info models.UnreadInfo
		if err := rows.Scan(&info.ChannelID, &info.UnreadCount, &info.MentionCount); err != nil {
			return nil, fmt.Errorf("failed to scan unread info: %w", err)
		}
		unreads = append(unreads, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread rows: %w", err)
	}

	if unreads == nil {
		unreads = []models.UnreadInfo{}
	}

	return unreads, nil
}

// IncrementMentionCounts, bir mesajda bahsedilen her kullanıcının bu
// kanaldaki mention sayacını bir artırır. Henüz channel_reads satırı
// olmayan kullanıcılar için (kanala hiç girmemiş) sıfırdan 1'e çıkan
// bir satır oluşturulur — last_read_message_id NULL kalır, bu da
// "hiç okumadı" anlamına gelir ve GetUnreadCounts'ta doğru hesaplanır.
func (r *sqliteReadStateRepo) IncrementMentionCounts(ctx context.Context, channelID string, userIDs []string) error {
	query := `
		INSERT INTO channel_reads (user_id, channel_id, last_read_message_id, last_read_at, mention_count)
		VALUES (?, ?, NULL, CURRENT_TIMESTAMP, 1)
		ON CONFLICT(user_id, channel_id)
		DO UPDATE SET mention_count = mention_count + 1`

	for _, userID := range userIDs {
		if _, err := r.db.ExecContext(ctx, query, userID, channelID); err != nil {
			return fmt.Errorf("failed to increment mention count: %w", err)
		}
	}
	return nil
}

// MarkAllRead, bir sunucudaki tüm text kanallarının son mesajını
// okunmuş olarak işaretler ve mention sayaçlarını sıfırlar.
// Mesajı olmayan kanallar atlanır — okunacak bir şey yoktur.
func (r *sqliteReadStateRepo) MarkAllRead(ctx context.Context, userID, serverID string) error {
	query := `
		INSERT INTO channel_reads (user_id, channel_id, last_read_message_id, last_read_at, mention_count)
		SELECT ?, c.id, (
			SELECT m.id FROM messages m
			WHERE m.channel_id = c.id
			ORDER BY m.created_at DESC LIMIT 1
		), CURRENT_TIMESTAMP, 0
		FROM channels c
		WHERE c.server_id = ? AND c.type = 'text'
		  AND EXISTS (SELECT 1 FROM messages m WHERE m.channel_id = c.id)
		ON CONFLICT(user_id, channel_id)
		DO UPDATE SET last_read_message_id = excluded.last_read_message_id,
		              last_read_at = excluded.last_read_at,
		              mention_count = 0`

	if _, err := r.db.ExecContext(ctx, query, userID, serverID); err != nil {
		return fmt.Errorf("failed to mark all channels read: %w", err)
	}
	return nil
}
