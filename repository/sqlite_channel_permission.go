package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/akinalp/mqvi/models"
)

// sqliteChannelPermRepo is the SQLite-backed ChannelPermissionRepository.
//
// channel_overrides table, defined in 001_init.sql:
//
//	PRIMARY KEY (channel_id, target_type, target_id)
//	allow INTEGER, deny INTEGER
type sqliteChannelPermRepo struct {
	db *sql.DB
}

// NewSQLiteChannelPermRepo builds a SQLite-backed ChannelPermissionRepository.
func NewSQLiteChannelPermRepo(db *sql.DB) ChannelPermissionRepository {
	return &sqliteChannelPermRepo{db: db}
}

func scanOverrides(rows *sql.Rows) ([]models.ChannelOverride, error) {
	var overrides []models.ChannelOverride
	for rows.Next() {
		var o models.ChannelOverride
		if err := rows.Scan(&o.ChannelID, &o.TargetType, &o.TargetID, &o.Allow, &o.Deny); err != nil {
			return nil, fmt.Errorf("failed to scan channel override row: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel override rows: %w", err)
	}
	return overrides, nil
}

func (r *sqliteChannelPermRepo) GetByChannel(ctx context.Context, channelID string) ([]models.ChannelOverride, error) {
	query := `SELECT channel_id, target_type, target_id, allow, deny FROM channel_overrides WHERE channel_id = ?`

	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel overrides: %w", err)
	}
	defer rows.Close()

	return scanOverrides(rows)
}

func (r *sqliteChannelPermRepo) GetByChannelForMember(ctx context.Context, channelID string, roleIDs []string, userID string) ([]models.ChannelOverride, error) {
	if len(roleIDs) == 0 && userID == "" {
		return nil, nil
	}

	placeholders := make([]string, len(roleIDs))
	args := make([]any, 0, len(roleIDs)+2)
	args = append(args, channelID)
	for i, id := range roleIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, userID)

	query := fmt.Sprintf(`
		SELECT channel_id, target_type, target_id, allow, deny
		FROM channel_overrides
		WHERE channel_id = ? AND (
			(target_type = 'role' AND target_id IN (%s))
			OR (target_type = 'member' AND target_id = ?)
		)`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel overrides for member: %w", err)
	}
	defer rows.Close()

	return scanOverrides(rows)
}

func (r *sqliteChannelPermRepo) GetByRoles(ctx context.Context, roleIDs []string) ([]models.ChannelOverride, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(roleIDs))
	args := make([]any, len(roleIDs))
	for i, id := range roleIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT channel_id, target_type, target_id, allow, deny FROM channel_overrides WHERE target_type = 'role' AND target_id IN (%s)`,
		strings.Join(placeholders, ","),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel overrides by roles: %w", err)
	}
	defer rows.Close()

	return scanOverrides(rows)
}

func (r *sqliteChannelPermRepo) Set(ctx context.Context, override *models.ChannelOverride) error {
	query := `
		INSERT INTO channel_overrides (channel_id, target_type, target_id, allow, deny)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (channel_id, target_type, target_id) DO UPDATE SET
			allow = excluded.allow,
			deny = excluded.deny`

	_, err := r.db.ExecContext(ctx, query,
		override.ChannelID, override.TargetType, override.TargetID, override.Allow, override.Deny,
	)
	if err != nil {
		return fmt.Errorf("failed to set channel override: %w", err)
	}

	return nil
}

func (r *sqliteChannelPermRepo) Delete(ctx context.Context, channelID string, targetType models.OverrideTargetType, targetID string) error {
	query := `DELETE FROM channel_overrides WHERE channel_id = ? AND target_type = ? AND target_id = ?`

	result, err := r.db.ExecContext(ctx, query, channelID, targetType, targetID)
	if err != nil {
		return fmt.Errorf("failed to delete channel override: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("channel override not found")
	}

	return nil
}

func (r *sqliteChannelPermRepo) DeleteAllByChannel(ctx context.Context, channelID string) error {
	query := `DELETE FROM channel_overrides WHERE channel_id = ?`

	_, err := r.db.ExecContext(ctx, query, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete all channel overrides: %w", err)
	}

	return nil
}
