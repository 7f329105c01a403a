package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/pkg/id"
)

// sqliteScheduledMessageRepo, ScheduledMessageRepository interface'inin SQLite implementasyonu.
type sqliteScheduledMessageRepo struct {
	db *sql.DB
}

// NewSQLiteScheduledMessageRepo, constructor — interface döner.
func NewSQLiteScheduledMessageRepo(db *sql.DB) ScheduledMessageRepository {
	return &sqliteScheduledMessageRepo{db: db}
}

func (r *sqliteScheduledMessageRepo) Create(ctx context.Context, msg *models.ScheduledMessage) error {
	msg.ID = id.New()
	query := `
		INSERT INTO scheduled_messages (id, channel_id, author_id, content, reply_to_id, send_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		msg.ID, msg.ChannelID, msg.AuthorID, msg.Content, msg.ReplyToID, msg.SendAt,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create scheduled message: %w", err)
	}

	return nil
}

// GetByID, tek bir zamanlanmış mesajı döner.
func (r *sqliteScheduledMessageRepo) GetByID(ctx context.Context, id string) (*models.ScheduledMessage, error) {
	query := `
		SELECT id, channel_id, author_id, content, reply_to_id, send_at, created_at
		FROM scheduled_messages WHERE id = ?`

	var m models.ScheduledMessage
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.ReplyToID, &m.SendAt, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled message: %w", err)
	}
	return &m, nil
}

// GetDue, send_at'i şimdiye kadar geçmiş satırları döner.
func (r *sqliteScheduledMessageRepo) GetDue(ctx context.Context) ([]models.ScheduledMessage, error) {
	query := `
		SELECT id, channel_id, author_id, content, reply_to_id, send_at, created_at
		FROM scheduled_messages WHERE send_at <= CURRENT_TIMESTAMP ORDER BY send_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get due scheduled messages: %w", err)
	}
	defer rows.Close()

	return scanScheduledMessages(rows)
}

func (r *sqliteScheduledMessageRepo) GetByChannelID(ctx context.Context, channelID string) ([]models.ScheduledMessage, error) {
	query := `
		SELECT id, channel_id, author_id, content, reply_to_id, send_at, created_at
		FROM scheduled_messages WHERE channel_id = ? ORDER BY send_at ASC`

	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled messages by channel: %w", err)
	}
	defer rows.Close()

	return scanScheduledMessages(rows)
}

func (r *sqliteScheduledMessageRepo) Delete(ctx context.Context, scheduledID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_messages WHERE id = ?`, scheduledID)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

func scanScheduledMessages(rows *sql.Rows) ([]models.ScheduledMessage, error) {
	var out []models.ScheduledMessage
	for rows.Next() {
		var m models.ScheduledMessage
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.ReplyToID, &m.SendAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
