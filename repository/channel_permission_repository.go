package repository

import (
	"context"

	"github.com/akinalp/mqvi/models"
)

// ChannelPermissionRepository stores per-channel overrides keyed by
// (channel_id, target_type, target_id). A target is either a role or a
// single member; permission.Evaluate applies them in that order.
type ChannelPermissionRepository interface {
	// GetByChannel returns every override defined on a channel,
	// regardless of target. Used by admin UIs listing a channel's
	// overrides.
	GetByChannel(ctx context.Context, channelID string) ([]models.ChannelOverride, error)

	// GetByChannelForMember returns the overrides relevant to resolving
	// one member's effective permissions in one channel: role overrides
	// for any ID in roleIDs (the caller includes the default role's ID
	// here to pick up its override too) plus the member's own override,
	// if any.
	GetByChannelForMember(ctx context.Context, channelID string, roleIDs []string, userID string) ([]models.ChannelOverride, error)

	// GetByRoles returns every role-targeted override across all
	// channels for the given role IDs. Used by visibility filtering,
	// which only needs the coarser role-level picture.
	GetByRoles(ctx context.Context, roleIDs []string) ([]models.ChannelOverride, error)

	// Set creates or replaces the override for one (channel, target)
	// pair (UPSERT).
	Set(ctx context.Context, override *models.ChannelOverride) error

	// Delete removes the override for one (channel, target) pair.
	Delete(ctx context.Context, channelID string, targetType models.OverrideTargetType, targetID string) error

	// DeleteAllByChannel removes every override on a channel. Used when
	// the channel itself is deleted.
	DeleteAllByChannel(ctx context.Context, channelID string) error
}
