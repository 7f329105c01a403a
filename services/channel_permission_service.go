// Package services — ChannelPermissionService: per-channel permission
// override management and resolution.
//
// Resolution is delegated to permission.Evaluate, which applies the
// full owner -> base-role -> default-role-override -> other-role-
// overrides -> member-override chain. This service's job is gathering
// the inputs that chain needs (the server's roles, the member's held
// roles, the channel's overrides, and whether the member owns the
// server) and caching the result, since it is recomputed on every
// message send and every voice join.
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg/cache"
	"github.com/akinalp/mqvi/permission"
	"github.com/akinalp/mqvi/repository"
)

// Cache TTL is a backstop, not the primary invalidation path: SetOverride
// and DeleteOverride invalidate affected entries directly. Key format is
// "userID:channelID".
const (
	permCacheTTL     = 30 * time.Second
	permCacheCleanup = 5 * time.Minute
)

// ChannelPermResolver is the narrow interface MessageService and
// VoiceService depend on — permission resolution only, not override CRUD.
type ChannelPermResolver interface {
	ResolveChannelPermissions(ctx context.Context, userID, channelID string) (models.Permission, error)
}

// ServerOwnerGetter resolves the owning server of a permission
// evaluation, used for the owner short-circuit. repository.ServerRepository
// satisfies this via duck typing.
type ServerOwnerGetter interface {
	Get(ctx context.Context) (*models.Server, error)
}

// ChannelPermissionService manages channel-level permission overrides.
type ChannelPermissionService interface {
	// GetOverrides returns every override defined on a channel.
	GetOverrides(ctx context.Context, channelID string) ([]models.ChannelOverride, error)

	// SetOverride creates or replaces the override for one (channel,
	// target) pair. allow=0 and deny=0 deletes it (back to inherit).
	SetOverride(ctx context.Context, channelID string, req *models.SetOverrideRequest) error

	// DeleteOverride removes the override for one (channel, target) pair.
	DeleteOverride(ctx context.Context, channelID string, targetType models.OverrideTargetType, targetID string) error

	// ResolveChannelPermissions computes a user's effective permission
	// set in a channel via the full owner/base/override chain.
	ResolveChannelPermissions(ctx context.Context, userID, channelID string) (models.Permission, error)

	// BuildVisibilityFilter computes, for a user in a server, which
	// channels their base ViewChannel access hides or grants via
	// role-level overrides — used by ChannelService's grouped listing.
	BuildVisibilityFilter(ctx context.Context, userID, serverID string) (*ChannelVisibilityFilter, error)
}

// ChannelVisibilityFilter is BuildVisibilityFilter's result: which of a
// server's channels a user's role overrides hide or reveal relative to
// their base ViewChannel access. ChannelService's grouped listing
// consults it per channel rather than re-resolving full permissions for
// every channel on every request.
type ChannelVisibilityFilter struct {
	// IsAdmin means the user bypasses visibility filtering entirely —
	// every channel is visible.
	IsAdmin bool
	// HasBaseView is whether the user's unmodified roles grant
	// ViewChannel.
	HasBaseView bool
	// HiddenChannels holds IDs of channels where HasBaseView is true but
	// a role override removes ViewChannel.
	HiddenChannels map[string]bool
	// GrantedChannels holds IDs of channels where HasBaseView is false
	// but a role override adds ViewChannel.
	GrantedChannels map[string]bool
}

// CanView reports whether channelID should be shown to the user this
// filter was built for.
func (f *ChannelVisibilityFilter) CanView(channelID string) bool {
	if f.IsAdmin {
		return true
	}
	if f.HasBaseView {
		return !f.HiddenChannels[channelID]
	}
	return f.GrantedChannels[channelID]
}

type channelPermService struct {
	permRepo      repository.ChannelPermissionRepository
	roleRepo      repository.RoleRepository
	channelGetter ChannelGetter
	serverGetter  ServerOwnerGetter
	hub           gateway.Broadcaster

	// permCache holds ResolveChannelPermissions results, since it runs
	// on every message send and voice join. Invalidated by channel
	// suffix on every override write, so the TTL is only a bound on
	// staleness from entries that were never invalidated (there
	// shouldn't be any — it's defense in depth, not the primary path).
	permCache *cache.TTLCache[string, models.Permission]
}

// NewChannelPermissionService wires override CRUD and resolution for
// one server's channels.
func NewChannelPermissionService(
	permRepo repository.ChannelPermissionRepository,
	roleRepo repository.RoleRepository,
	channelGetter ChannelGetter,
	serverGetter ServerOwnerGetter,
	hub gateway.Broadcaster,
) ChannelPermissionService {
	return &channelPermService{
		permRepo:      permRepo,
		roleRepo:      roleRepo,
		channelGetter: channelGetter,
		serverGetter:  serverGetter,
		hub:           hub,
		permCache:     cache.New[string, models.Permission](permCacheTTL, permCacheCleanup),
	}
}

func (s *channelPermService) GetOverrides(ctx context.Context, channelID string) ([]models.ChannelOverride, error) {
	overrides, err := s.permRepo.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel overrides: %w", err)
	}

	if overrides == nil {
		overrides = []models.ChannelOverride{}
	}

	return overrides, nil
}

func (s *channelPermService) SetOverride(ctx context.Context, channelID string, req *models.SetOverrideRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid override request: %w", err)
	}

	if req.Allow == 0 && req.Deny == 0 {
		if err := s.permRepo.Delete(ctx, channelID, req.TargetType, req.TargetID); err != nil {
			log.Printf("[channel-perm] failed to delete override (idempotent, non-fatal) channel=%s target=%s/%s: %v", channelID, req.TargetType, req.TargetID, err)
		}

		s.invalidateChannelCache(channelID)

		s.hub.BroadcastToAll(gateway.Event{
			Op: gateway.OpChannelPermissionDelete,
			Data: map[string]string{
				"channel_id":  channelID,
				"target_type": string(req.TargetType),
				"target_id":   req.TargetID,
			},
		})

		return nil
	}

	override := &models.ChannelOverride{
		ChannelID:  channelID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Allow:      req.Allow,
		Deny:       req.Deny,
	}

	if err := s.permRepo.Set(ctx, override); err != nil {
		return fmt.Errorf("failed to set channel override: %w", err)
	}

	s.invalidateChannelCache(channelID)

	s.hub.BroadcastToAll(gateway.Event{
		Op:   gateway.OpChannelPermissionUpdate,
		Data: override,
	})

	return nil
}

func (s *channelPermService) DeleteOverride(ctx context.Context, channelID string, targetType models.OverrideTargetType, targetID string) error {
	if err := s.permRepo.Delete(ctx, channelID, targetType, targetID); err != nil {
		return fmt.Errorf("failed to delete channel override: %w", err)
	}

	s.invalidateChannelCache(channelID)

	s.hub.BroadcastToAll(gateway.Event{
		Op: gateway.OpChannelPermissionDelete,
		Data: map[string]string{
			"channel_id":  channelID,
			"target_type": string(targetType),
			"target_id":   targetID,
		},
	})

	return nil
}

// BuildVisibilityFilter reports, for a user's base ViewChannel access in
// serverID, which channels role-level overrides hide or grant. It only
// considers role overrides — a member-specific override on one channel
// doesn't change what that user can see of the rest of the server
// listing, so it stays out of this coarser pass.
func (s *channelPermService) BuildVisibilityFilter(ctx context.Context, userID, serverID string) (*ChannelVisibilityFilter, error) {
	held, err := s.roleRepo.GetByUserIDAndServer(ctx, userID, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles for visibility filter: %w", err)
	}

	isOwner, err := s.isServerOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if isOwner {
		return &ChannelVisibilityFilter{IsAdmin: true}, nil
	}

	all, err := s.roleRepo.GetAllByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get server roles for visibility filter: %w", err)
	}

	heldIDs := make([]string, len(held))
	for i, r := range held {
		heldIDs[i] = r.ID
	}

	base := permission.Evaluate(permission.Input{Roles: all, MemberRoleIDs: heldIDs})
	if base.Has(models.PermAdministrator) {
		return &ChannelVisibilityFilter{IsAdmin: true}, nil
	}

	hasBaseView := base.Has(models.PermViewChannel)

	var everyoneID string
	for _, r := range all {
		if r.IsDefault {
			everyoneID = r.ID
			break
		}
	}
	roleIDs := append([]string{everyoneID}, heldIDs...)

	overrides, err := s.permRepo.GetByRoles(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get role overrides for visibility filter: %w", err)
	}

	if len(overrides) == 0 {
		return &ChannelVisibilityFilter{
			HasBaseView:     hasBaseView,
			HiddenChannels:  make(map[string]bool),
			GrantedChannels: make(map[string]bool),
		}, nil
	}

	byChannel := make(map[string][]models.ChannelOverride)
	for _, o := range overrides {
		byChannel[o.ChannelID] = append(byChannel[o.ChannelID], o)
	}

	hidden := make(map[string]bool)
	granted := make(map[string]bool)

	for channelID, chOverrides := range byChannel {
		effective := permission.Evaluate(permission.Input{
			Roles:         all,
			MemberRoleIDs: heldIDs,
			Overrides:     chOverrides,
			UserID:        userID,
		})
		hasView := effective.Has(models.PermViewChannel)

		if hasBaseView && !hasView {
			hidden[channelID] = true
		} else if !hasBaseView && hasView {
			granted[channelID] = true
		}
	}

	return &ChannelVisibilityFilter{
		HasBaseView:     hasBaseView,
		HiddenChannels:  hidden,
		GrantedChannels: granted,
	}, nil
}

func (s *channelPermService) ResolveChannelPermissions(ctx context.Context, userID, channelID string) (models.Permission, error) {
	cacheKey := userID + ":" + channelID
	if cached, ok := s.permCache.Get(cacheKey); ok {
		return cached, nil
	}

	channel, err := s.channelGetter.GetByID(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel for permission resolution: %w", err)
	}

	isOwner, err := s.isServerOwner(ctx, userID)
	if err != nil {
		return 0, err
	}

	all, err := s.roleRepo.GetAllByServer(ctx, channel.ServerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get server roles: %w", err)
	}

	held, err := s.roleRepo.GetByUserIDAndServer(ctx, userID, channel.ServerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user roles: %w", err)
	}
	heldIDs := make([]string, len(held))
	for i, r := range held {
		heldIDs[i] = r.ID
	}

	var everyoneID string
	for _, r := range all {
		if r.IsDefault {
			everyoneID = r.ID
			break
		}
	}
	roleIDs := append([]string{everyoneID}, heldIDs...)

	overrides, err := s.permRepo.GetByChannelForMember(ctx, channelID, roleIDs, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel overrides for member: %w", err)
	}

	effective := permission.Evaluate(permission.Input{
		Roles:         all,
		MemberRoleIDs: heldIDs,
		Overrides:     overrides,
		IsOwner:       isOwner,
		UserID:        userID,
	})

	s.permCache.Set(cacheKey, effective)
	return effective, nil
}

func (s *channelPermService) isServerOwner(ctx context.Context, userID string) (bool, error) {
	server, err := s.serverGetter.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get server for owner check: %w", err)
	}
	return server.OwnerID == userID, nil
}

// invalidateChannelCache drops every cache entry belonging to channelID,
// regardless of which user it was computed for — an override change
// can't tell us cheaply which users are affected (a role can be held by
// many), so this errs toward dropping more than strictly necessary.
func (s *channelPermService) invalidateChannelCache(channelID string) {
	suffix := ":" + channelID
	s.permCache.DeleteFunc(func(key string) bool {
		return strings.HasSuffix(key, suffix)
	})
}
