package services

import (
	"context"
	"errors"
	"testing"

	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
)

// fakeRoleRepo is a minimal in-memory RoleRepository for exercising
// RoleService's hierarchy and permission-escalation rules without a DB.
type fakeRoleRepo struct {
	roles       map[string]*models.Role
	userRoles   map[string][]string
	defaultRole string
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[string]*models.Role{}, userRoles: map[string][]string{}}
}

func (r *fakeRoleRepo) GetByID(ctx context.Context, id string) (*models.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return role, nil
}

func (r *fakeRoleRepo) GetAll(ctx context.Context) ([]models.Role, error) {
	out := make([]models.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *fakeRoleRepo) GetAllByServer(ctx context.Context, serverID string) ([]models.Role, error) {
	return r.GetAll(ctx)
}

func (r *fakeRoleRepo) GetDefault(ctx context.Context) (*models.Role, error) {
	return r.GetByID(ctx, r.defaultRole)
}

func (r *fakeRoleRepo) GetDefaultByServer(ctx context.Context, serverID string) (*models.Role, error) {
	return r.GetDefault(ctx)
}

func (r *fakeRoleRepo) GetByUserID(ctx context.Context, userID string) ([]models.Role, error) {
	var out []models.Role
	for _, id := range r.userRoles[userID] {
		role, ok := r.roles[id]
		if !ok {
			continue
		}
		out = append(out, *role)
	}
	return out, nil
}

func (r *fakeRoleRepo) GetByUserIDAndServer(ctx context.Context, userID, serverID string) ([]models.Role, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *fakeRoleRepo) GetMaxPosition(ctx context.Context, serverID string) (int, error) {
	max := 0
	for _, role := range r.roles {
		if role.Position > max {
			max = role.Position
		}
	}
	return max, nil
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *models.Role) error {
	role.ID = "role-" + role.Name
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRoleRepo) Update(ctx context.Context, role *models.Role) error {
	if _, ok := r.roles[role.ID]; !ok {
		return pkg.ErrNotFound
	}
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRoleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.roles[id]; !ok {
		return pkg.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *fakeRoleRepo) UpdatePositions(ctx context.Context, items []models.PositionUpdate) error {
	for _, item := range items {
		role, ok := r.roles[item.ID]
		if !ok {
			return pkg.ErrNotFound
		}
		role.Position = item.Position
	}
	return nil
}

func (r *fakeRoleRepo) AssignToUser(ctx context.Context, userID, roleID string) error {
	r.userRoles[userID] = append(r.userRoles[userID], roleID)
	return nil
}

func (r *fakeRoleRepo) RemoveFromUser(ctx context.Context, userID, roleID string) error {
	ids := r.userRoles[userID]
	for i, id := range ids {
		if id == roleID {
			r.userRoles[userID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

// noopHub discards every broadcast — RoleService tests only assert on the
// returned value/error, not on WS fan-out.
type noopHub struct{}

func (noopHub) BroadcastToAll(gateway.Event)                          {}
func (noopHub) BroadcastToUser(userID string, e gateway.Event)        {}
func (noopHub) BroadcastToUsers(userIDs []string, e gateway.Event)    {}
func (noopHub) BroadcastToAllExcept(excludeUserID string, e gateway.Event) {}

func setupRoleService(t *testing.T) (RoleService, *fakeRoleRepo) {
	t.Helper()
	repo := newFakeRoleRepo()
	repo.roles[models.OwnerRoleID] = &models.Role{ID: models.OwnerRoleID, Name: "Owner", Position: 1000, Permissions: models.PermAdministrator}
	repo.roles["everyone"] = &models.Role{ID: "everyone", Name: "everyone", Position: 0, Permissions: models.PermViewChannel, IsDefault: true}
	repo.defaultRole = "everyone"
	return NewRoleService(repo, nil, noopHub{}), repo
}

func TestRoleCreateRejectsEscalation(t *testing.T) {
	svc, repo := setupRoleService(t)
	repo.userRoles["mod-user"] = []string{"mod"}
	repo.roles["mod"] = &models.Role{ID: "mod", Name: "mod", Position: 10, Permissions: models.PermManageMessages}

	_, err := svc.Create(context.Background(), "mod-user", &models.CreateRoleRequest{
		Name:        "escalated",
		Color:       "#FFFFFF",
		Permissions: models.PermManageMessages | models.PermBanMembers,
	})
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for permission escalation, got %v", err)
	}
}

func TestRoleCreateAllowsSubsetOfActorPermissions(t *testing.T) {
	svc, repo := setupRoleService(t)
	repo.userRoles["mod-user"] = []string{"mod"}
	repo.roles["mod"] = &models.Role{ID: "mod", Name: "mod", Position: 10, Permissions: models.PermManageMessages | models.PermBanMembers}

	role, err := svc.Create(context.Background(), "mod-user", &models.CreateRoleRequest{
		Name:        "junior-mod",
		Color:       "#FFFFFF",
		Permissions: models.PermManageMessages,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if role.Position >= 10 {
		t.Fatalf("expected new role position below actor's, got %d", role.Position)
	}
}

func TestRoleCreateAdministratorBypassesEscalationCheck(t *testing.T) {
	svc, repo := setupRoleService(t)
	repo.userRoles["owner-user"] = []string{models.OwnerRoleID}

	_, err := svc.Create(context.Background(), "owner-user", &models.CreateRoleRequest{
		Name:        "super-role",
		Color:       "#FFFFFF",
		Permissions: models.PermBanMembers | models.PermManageRoles,
	})
	if err != nil {
		t.Fatalf("expected administrator to grant any permission set, got %v", err)
	}
}

func TestRoleUpdateRejectsEqualOrHigherPosition(t *testing.T) {
	svc, repo := setupRoleService(t)
	repo.userRoles["mod-user"] = []string{"mod"}
	repo.roles["mod"] = &models.Role{ID: "mod", Name: "mod", Position: 10, Permissions: models.PermManageMessages}
	repo.roles["peer"] = &models.Role{ID: "peer", Name: "peer", Position: 10, Permissions: 0}

	name := "renamed"
	_, err := svc.Update(context.Background(), "mod-user", "peer", &models.UpdateRoleRequest{Name: &name})
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for equal-position role, got %v", err)
	}
}

func TestRoleDeleteRejectsDefaultRole(t *testing.T) {
	svc, repo := setupRoleService(t)
	repo.userRoles["owner-user"] = []string{models.OwnerRoleID}

	err := svc.Delete(context.Background(), "owner-user", "everyone")
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest deleting the default role, got %v", err)
	}
}

func TestRoleDeleteRejectsOwnerRole(t *testing.T) {
	svc, repo := setupRoleService(t)
	repo.userRoles["owner-user"] = []string{models.OwnerRoleID}

	err := svc.Delete(context.Background(), "owner-user", models.OwnerRoleID)
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden deleting the Owner role, got %v", err)
	}
}
