// Package permission computes a member's effective capability set from
// their roles and the channel overrides that apply to them. It is a
// pure function over its inputs — no database access, no locking — so
// callers are responsible for loading roles and overrides first.
package permission

import "github.com/akinalp/mqvi/models"

// Input bundles everything Evaluate needs to compute an effective
// permission set for one user in one channel.
type Input struct {
	// Roles holds every role defined on the server, including the
	// default (@everyone) role.
	Roles []models.Role
	// MemberRoleIDs holds the role IDs the member has been assigned,
	// not including the default role (every member implicitly holds
	// it).
	MemberRoleIDs []string
	// Overrides holds every channel override defined for the channel
	// being evaluated. Pass nil for a server-level evaluation.
	Overrides []models.ChannelOverride
	// IsOwner short-circuits to every permission bit set, bypassing
	// roles and overrides entirely.
	IsOwner bool
	// UserID identifies the member, used to find their member-specific
	// override, if any.
	UserID string
}

// Evaluate returns the effective permission set for the given input.
// Passing a zero-value Overrides slice computes server-level (no
// channel context) permissions.
func Evaluate(in Input) models.Permission {
	if in.IsOwner {
		return models.PermAll
	}

	base := baseServerPermissions(in.Roles, in.MemberRoleIDs)
	if base.Has(models.PermAdministrator) {
		return models.PermAll
	}
	if len(in.Overrides) == 0 {
		return base
	}

	return applyChannelOverrides(base, in.Roles, in.MemberRoleIDs, in.Overrides, in.UserID)
}

// baseServerPermissions unions the default role's permissions with
// every additional role the member holds.
func baseServerPermissions(roles []models.Role, memberRoleIDs []string) models.Permission {
	var everyone models.Permission
	for _, r := range roles {
		if r.IsDefault {
			everyone = r.Permissions
			break
		}
	}

	held := make(map[string]bool, len(memberRoleIDs))
	for _, id := range memberRoleIDs {
		held[id] = true
	}

	perms := everyone
	for _, r := range roles {
		if held[r.ID] {
			perms |= r.Permissions
		}
	}

	if perms.Has(models.PermAdministrator) {
		return models.PermAll
	}
	return perms
}

// applyChannelOverrides layers the three override tiers onto base, in
// order: default role, union of the member's other role overrides,
// then the member's own override. Each tier denies before it allows.
func applyChannelOverrides(
	base models.Permission,
	roles []models.Role,
	memberRoleIDs []string,
	overrides []models.ChannelOverride,
	userID string,
) models.Permission {
	perms := base

	var everyoneRoleID string
	for _, r := range roles {
		if r.IsDefault {
			everyoneRoleID = r.ID
			break
		}
	}

	for _, ov := range overrides {
		if ov.TargetType == models.OverrideTargetRole && ov.TargetID == everyoneRoleID {
			perms = (perms &^ ov.Deny) | ov.Allow
			break
		}
	}

	held := make(map[string]bool, len(memberRoleIDs))
	for _, id := range memberRoleIDs {
		held[id] = true
	}

	var roleAllow, roleDeny models.Permission
	for _, ov := range overrides {
		if ov.TargetType != models.OverrideTargetRole {
			continue
		}
		if ov.TargetID == everyoneRoleID {
			continue // already applied above
		}
		if held[ov.TargetID] {
			roleAllow |= ov.Allow
			roleDeny |= ov.Deny
		}
	}
	perms = (perms &^ roleDeny) | roleAllow

	for _, ov := range overrides {
		if ov.TargetType == models.OverrideTargetMember && ov.TargetID == userID {
			perms = (perms &^ ov.Deny) | ov.Allow
			break
		}
	}

	return perms
}

// Has is a convenience wrapper for the common single-permission check.
func Has(in Input, perm models.Permission) bool {
	return Evaluate(in).Has(perm)
}
