package permission

import (
	"testing"

	"github.com/akinalp/mqvi/models"
)

func role(id string, perms models.Permission, isDefault bool) models.Role {
	return models.Role{ID: id, Name: "test", Permissions: perms, IsDefault: isDefault}
}

func override(targetType models.OverrideTargetType, targetID string, allow, deny models.Permission) models.ChannelOverride {
	return models.ChannelOverride{TargetType: targetType, TargetID: targetID, Allow: allow, Deny: deny}
}

func TestBasePermissionsEveryoneOnly(t *testing.T) {
	roles := []models.Role{role("everyone", models.PermViewChannel, true)}
	perms := Evaluate(Input{Roles: roles})
	if !perms.Has(models.PermViewChannel) {
		t.Fatal("expected ViewChannel")
	}
	if perms.Has(models.PermSendMessages) {
		t.Fatal("did not expect SendMessages")
	}
}

func TestBasePermissionsWithExtraRole(t *testing.T) {
	roles := []models.Role{
		role("everyone", models.PermViewChannel, true),
		role("mod", models.PermManageMessages, false),
	}
	perms := Evaluate(Input{Roles: roles, MemberRoleIDs: []string{"mod"}})
	if !perms.Has(models.PermViewChannel) || !perms.Has(models.PermManageMessages) {
		t.Fatal("expected both ViewChannel and ManageMessages")
	}
}

func TestAdministratorGrantsAll(t *testing.T) {
	roles := []models.Role{
		role("everyone", models.PermViewChannel, true),
		role("admin", models.PermAdministrator, false),
	}
	perms := Evaluate(Input{Roles: roles, MemberRoleIDs: []string{"admin"}})
	if perms != models.PermAll {
		t.Fatalf("expected PermAll, got %d", perms)
	}
}

func TestOwnerShortCircuitsAll(t *testing.T) {
	perms := Evaluate(Input{IsOwner: true})
	if perms != models.PermAll {
		t.Fatalf("expected PermAll, got %d", perms)
	}
}

func TestChannelOverrideDeny(t *testing.T) {
	roles := []models.Role{role("everyone", models.PermViewChannel|models.PermSendMessages, true)}
	overrides := []models.ChannelOverride{
		override(models.OverrideTargetRole, "everyone", 0, models.PermSendMessages),
	}
	perms := Evaluate(Input{Roles: roles, Overrides: overrides})
	if !perms.Has(models.PermViewChannel) {
		t.Fatal("expected ViewChannel")
	}
	if perms.Has(models.PermSendMessages) {
		t.Fatal("did not expect SendMessages after deny override")
	}
}

func TestMemberOverrideTrumpsRoleDeny(t *testing.T) {
	roles := []models.Role{role("everyone", models.PermViewChannel|models.PermSendMessages, true)}
	overrides := []models.ChannelOverride{
		override(models.OverrideTargetRole, "everyone", 0, models.PermSendMessages),
		override(models.OverrideTargetMember, "user-1", models.PermSendMessages, 0),
	}
	perms := Evaluate(Input{Roles: roles, Overrides: overrides, UserID: "user-1"})
	if !perms.Has(models.PermSendMessages) {
		t.Fatal("expected member override to restore SendMessages")
	}
}

func TestAdministratorBypassesChannelOverrides(t *testing.T) {
	roles := []models.Role{
		role("everyone", models.PermViewChannel, true),
		role("admin", models.PermAdministrator, false),
	}
	overrides := []models.ChannelOverride{
		override(models.OverrideTargetRole, "everyone", 0, models.PermViewChannel),
	}
	perms := Evaluate(Input{Roles: roles, Overrides: overrides, MemberRoleIDs: []string{"admin"}})
	if perms != models.PermAll {
		t.Fatalf("expected administrator to bypass overrides entirely, got %d", perms)
	}
}

func TestNonOverridableBitsUnaffectedByChannelOverride(t *testing.T) {
	roles := []models.Role{role("everyone", models.PermViewChannel|models.PermManageServer, true)}
	// An override attempting to deny ManageServer (not channel-overridable)
	// should still be accepted by Evaluate's pure bit algebra — validation
	// of overridable bits happens at the API boundary (SetOverrideRequest.Validate),
	// not in the engine itself.
	overrides := []models.ChannelOverride{
		override(models.OverrideTargetRole, "everyone", 0, models.PermManageServer),
	}
	perms := Evaluate(Input{Roles: roles, Overrides: overrides})
	if perms.Has(models.PermManageServer) {
		t.Fatal("expected ManageServer denied since Evaluate applies whatever bits it is given")
	}
}
