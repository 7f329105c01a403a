package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/mqvi/database"
	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/pkg/id"
)

// sqlitePollRepo, PollRepository interface'inin SQLite implementasyonu.
type sqlitePollRepo struct {
	db *sql.DB
}

// NewSQLitePollRepo, constructor — interface döner.
func NewSQLitePollRepo(db *sql.DB) PollRepository {
	return &sqlitePollRepo{db: db}
}

// Create, bir poll'u ve seçeneklerini tek transaction'da yazar — ya ikisi de
// yazılır ya da hiçbiri, poll'un seçeneksiz kalması mümkün olmaz.
func (r *sqlitePollRepo) Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		poll.ID = id.New()
		insertPoll := `
			INSERT INTO polls (id, message_id, channel_id, creator_id, question, poll_type, anonymous, closes_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING created_at`

		anonymous := 0
		if poll.Anonymous {
			anonymous = 1
		}
		if err := tx.QueryRowContext(ctx, insertPoll,
			poll.ID, poll.MessageID, poll.ChannelID, poll.CreatorID,
			poll.Question, poll.Type, anonymous, poll.ClosesAt,
		).Scan(&poll.CreatedAt); err != nil {
			return fmt.Errorf("failed to create poll: %w", err)
		}

		insertOption := `INSERT INTO poll_options (id, poll_id, label, position) VALUES (?, ?, ?, ?)`
		for i := range options {
			options[i].ID = id.New()
			options[i].PollID = poll.ID
			if _, err := tx.ExecContext(ctx, insertOption,
				options[i].ID, options[i].PollID, options[i].Label, options[i].Position,
			); err != nil {
				return fmt.Errorf("failed to create poll option: %w", err)
			}
		}

		return nil
	})
}

func (r *sqlitePollRepo) GetByID(ctx context.Context, pollID string) (*models.Poll, error) {
	query := `
		SELECT id, message_id, channel_id, creator_id, question, poll_type, anonymous, closes_at, closed, created_at
		FROM polls WHERE id = ?`

	p := &models.Poll{}
	err := r.db.QueryRowContext(ctx, query, pollID).Scan(
		&p.ID, &p.MessageID, &p.ChannelID, &p.CreatorID, &p.Question,
		&p.Type, &p.Anonymous, &p.ClosesAt, &p.Closed, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	return p, nil
}

func (r *sqlitePollRepo) GetOptions(ctx context.Context, pollID string) ([]models.PollOption, error) {
	query := `SELECT id, poll_id, label, position FROM poll_options WHERE poll_id = ? ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []models.PollOption
	for rows.Next() {
		var opt models.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Label, &opt.Position); err != nil {
			return nil, fmt.Errorf("failed to scan poll option: %w", err)
		}
		options = append(options, opt)
	}

	return options, rows.Err()
}

// CastVote, kullanıcının bu poll'daki önceki oylarını silip yenilerini yazar —
// tek transaction'da, böylece eski oy silinip yenisi yazılamadan yarıda kalmaz.
func (r *sqlitePollRepo) CastVote(ctx context.Context, pollID, userID string, votes []models.PollVote) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM poll_votes WHERE poll_id = ? AND user_id = ?`, pollID, userID,
		); err != nil {
			return fmt.Errorf("failed to clear previous votes: %w", err)
		}

		insertVote := `INSERT INTO poll_votes (id, poll_id, option_id, user_id, rank) VALUES (?, ?, ?, ?, ?)`
		for i := range votes {
			votes[i].ID = id.New()
			votes[i].PollID = pollID
			votes[i].UserID = userID
			if _, err := tx.ExecContext(ctx, insertVote,
				votes[i].ID, votes[i].PollID, votes[i].OptionID, votes[i].UserID, votes[i].Rank,
			); err != nil {
				return fmt.Errorf("failed to cast vote: %w", err)
			}
		}

		return nil
	})
}

func (r *sqlitePollRepo) RetractVote(ctx context.Context, pollID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM poll_votes WHERE poll_id = ? AND user_id = ?`, pollID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to retract vote: %w", err)
	}
	return nil
}

func (r *sqlitePollRepo) GetVotes(ctx context.Context, pollID string) ([]models.PollVote, error) {
	query := `SELECT id, poll_id, option_id, user_id, rank, created_at FROM poll_votes WHERE poll_id = ?`

	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll votes: %w", err)
	}
	defer rows.Close()

	var votes []models.PollVote
	for rows.Next() {
		var v models.PollVote
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionID, &v.UserID, &v.Rank, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll vote: %w", err)
		}
		votes = append(votes, v)
	}

	return votes, rows.Err()
}

func (r *sqlitePollRepo) Close(ctx context.Context, pollID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE polls SET closed = 1 WHERE id = ?`, pollID)
	if err != nil {
		return fmt.Errorf("failed to close poll: %w", err)
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

// GetExpiredOpen, deadline'ı geçmiş ama hâlâ açık pollları döner.
// Deferred-Work Loop bu listeyi her tick'te tüketir.
func (r *sqlitePollRepo) GetExpiredOpen(ctx context.Context) ([]models.Poll, error) {
	query := `
		SELECT id, message_id, channel_id, creator_id, question, poll_type, anonymous, closes_at, closed, created_at
		FROM polls WHERE closed = 0 AND closes_at IS NOT NULL AND closes_at <= CURRENT_TIMESTAMP`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired polls: %w", err)
	}
	defer rows.Close()

	var polls []models.Poll
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(
			&p.ID, &p.MessageID, &p.ChannelID, &p.CreatorID, &p.Question,
			&p.Type, &p.Anonymous, &p.ClosesAt, &p.Closed, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expired poll: %w", err)
		}
		polls = append(polls, p)
	}

	return polls, rows.Err()
}
