package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/pkg/id"
)

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db *sql.DB
}

// NewSQLiteMessageRepo, constructor — interface döner.
func NewSQLiteMessageRepo(db *sql.DB) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Create(ctx context.Context, message *models.Message) error {
	message.ID = id.New()
	query := `
		INSERT INTO messages (id, channel_id, user_id, content, reply_to_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		message.ID, message.ChannelID, message.UserID, message.Content, message.ReplyToID,
	).Scan(&message.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// messageSelectWithReply loads a message with its author and (via the
// self-join on rm/ru) a reply preview — same shape as sqlite_dm.go's
// GetMessageByID query, so buildMessageReference serves both.
const messageSelectWithReply = `
	SELECT m.id, m.channel_id, m.user_id, m.content, m.reply_to_id, m.edited_at, m.created_at,
	       u.id, u.username, u.display_name, u.avatar_url, u.status,
	       rm.id, rm.content,
	       ru.id, ru.username, ru.display_name, ru.avatar_url
	FROM messages m
	LEFT JOIN users u ON m.user_id = u.id
	LEFT JOIN messages rm ON m.reply_to_id = rm.id
	LEFT JOIN users ru ON rm.user_id = ru.id`

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := messageSelectWithReply + ` WHERE m.id = ?`

	msg, err := scanMessageRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}

	return msg, nil
}

// GetByChannelID, cursor-based pagination ile mesajları getirir.
//
// beforeID boşsa en yeni mesajlardan başlar; doluysa o mesajın created_at
// değerinden öncekileri getirir (cursor-based pagination).
func (r *sqliteMessageRepo) GetByChannelID(ctx context.Context, channelID string, beforeID string, limit int) ([]models.Message, error) {
	var query string
	var args []any

	if beforeID == "" {
		query = messageSelectWithReply + ` WHERE m.channel_id = ? ORDER BY m.created_at DESC LIMIT ?`
		args = []any{channelID, limit}
	} else {
		query = messageSelectWithReply + `
			WHERE m.channel_id = ?
			  AND m.created_at < (SELECT created_at FROM messages WHERE id = ?)
			ORDER BY m.created_at DESC
			LIMIT ?`
		args = []any{channelID, beforeID, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages by channel: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

// messageRowScanner is satisfied by both *sql.Row and *sql.Rows, so
// GetByID and GetByChannelID can share one scan routine.
type messageRowScanner interface {
	Scan(dest ...any) error
}

func scanMessageRow(row messageRowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var author models.User
	var authorID sql.NullString
	var content sql.NullString
	var editedAt sql.NullTime
	var displayName, avatarURL sql.NullString

	var refMsgID, refMsgContent sql.NullString
	var refAuthorID, refAuthorUsername, refAuthorDisplayName, refAuthorAvatarURL sql.NullString

	if err := row.Scan(
		&msg.ID, &msg.ChannelID, &msg.UserID, &content, &msg.ReplyToID, &editedAt, &msg.CreatedAt,
		&authorID, &author.Username, &displayName, &avatarURL, &author.Status,
		&refMsgID, &refMsgContent,
		&refAuthorID, &refAuthorUsername, &refAuthorDisplayName, &refAuthorAvatarURL,
	); err != nil {
		return nil, err
	}

	if content.Valid {
		msg.Content = &content.String
	}
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	if authorID.Valid {
		author.ID = authorID.String
		if displayName.Valid {
			author.DisplayName = &displayName.String
		}
		if avatarURL.Valid {
			author.AvatarURL = &avatarURL.String
		}
		msg.Author = &author
	}

	msg.ReferencedMessage = buildMessageReference(
		msg.ReplyToID, refMsgID, refMsgContent,
		refAuthorID, refAuthorUsername, refAuthorDisplayName, refAuthorAvatarURL,
	)

	return msg, nil
}

// buildMessageReference builds a reply preview from nullable self-join
// columns — shared by sqlite_message.go and sqlite_dm.go since server
// and DM messages both support replies in the same shape. Returns nil
// when there's no reply, or the referenced message was deleted.
func buildMessageReference(
	replyToID *string,
	refID, refContent sql.NullString,
	refAuthorID, refAuthorUsername, refAuthorDisplayName, refAuthorAvatarURL sql.NullString,
) *models.MessageReference {
	if replyToID == nil || !refID.Valid {
		return nil
	}

	ref := &models.MessageReference{ID: refID.String}
	if refContent.Valid {
		ref.Content = &refContent.String
	}
	if refAuthorID.Valid {
		author := &models.User{ID: refAuthorID.String, Username: refAuthorUsername.String}
		if refAuthorDisplayName.Valid {
			author.DisplayName = &refAuthorDisplayName.String
		}
		if refAuthorAvatarURL.Valid {
			author.AvatarURL = &refAuthorAvatarURL.String
		}
		ref.Author = author
	}

	return ref
}

func (r *sqliteMessageRepo) Update(ctx context.Context, message *models.Message) error {
	now := time.Now()
	query := `UPDATE messages SET content = ?, edited_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, message.Content, now, message.ID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	message.EditedAt = &now
	return nil
}

func (r *sqliteMessageRepo) Delete(ctx context.Context, id string) error {
	// ON DELETE CASCADE: mesaj silindiğinde attachment'lar da silinir (DB tarafında).
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
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
