package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/cache"
	"github.com/huddleapp/huddle/internal/repository"
	"github.com/huddleapp/huddle/pkg/rbac"
	"golang.org/x/sync/singleflight"
)

var (
	ErrPermissionDenied  = errors.New("you do not have permission to perform this action")
	ErrInvalidRole       = errors.New("unknown role")
	ErrInvalidPermission = errors.New("unknown permission")
	ErrRoleAlreadyHeld   = errors.New("user already holds this role")
	ErrRoleNotHeld       = errors.New("user does not hold this role")
	ErrReasonRequired    = errors.New("a justification reason is required to grant a permission")
	ErrGrantNotFound     = errors.New("no direct grant exists for this permission")
	ErrRoleDerived       = errors.New("permission comes from a role; revoke the role instead")
	ErrTemplateNotFound  = errors.New("unknown role template")
)

// RBACService resolves effective permissions and applies role/grant
// mutations. Snapshots are cached in Redis and cache fills are deduplicated
// with singleflight, since permission checks run on nearly every request.
type RBACService struct {
	rbacRepo repository.RBACRepository
	cache    *cache.Cache
	group    singleflight.Group
}

func NewRBACService(rbacRepo repository.RBACRepository, c *cache.Cache) *RBACService {
	return &RBACService{
		rbacRepo: rbacRepo,
		cache:    c,
	}
}

// Effective returns the resolved tri-state permission list for a user.
func (s *RBACService) Effective(ctx context.Context, userID uuid.UUID) ([]rbac.EffectiveState, error) {
	key := "perms:" + userID.String()

	if s.cache != nil {
		var cached []rbac.EffectiveState
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		assignments, err := s.rbacRepo.ListAssignments(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("listing role assignments: %w", err)
		}
		grants, err := s.rbacRepo.ListGrants(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("listing grants: %w", err)
		}

		states := rbac.EffectiveList(assignments, grants)
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, states); err != nil {
				// Cache failures degrade to direct reads.
				log.Printf("rbac: cache error: %v", err)
			}
		}
		return states, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]rbac.EffectiveState), nil
}

// Has reports whether the user effectively holds the permission.
func (s *RBACService) Has(ctx context.Context, userID uuid.UUID, perm rbac.Permission) (bool, error) {
	states, err := s.Effective(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, st := range states {
		if st.Permission == perm {
			return st.Granted, nil
		}
	}
	return false, nil
}

// Require returns ErrPermissionDenied unless the user holds the permission.
func (s *RBACService) Require(ctx context.Context, userID uuid.UUID, perm rbac.Permission) error {
	ok, err := s.Has(ctx, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// Roles returns all role assignments, active and revoked, for display.
func (s *RBACService) Roles(ctx context.Context, userID uuid.UUID) ([]rbac.RoleAssignment, error) {
	assignments, err := s.rbacRepo.ListAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []rbac.RoleAssignment{}
	}
	return assignments, nil
}

// AssignRole grants a role to the target user. Actor needs roles.manage.
func (s *RBACService) AssignRole(ctx context.Context, actorID, targetID uuid.UUID, role rbac.Role) error {
	if actorID != targetID {
		// Approval auto-assigns the staff role through the same path;
		// the approval permission covers that case.
		if err := s.requireEither(ctx, actorID, rbac.PermManageRoles, rbac.PermApproveUsers); err != nil {
			return err
		}
	}
	return s.assign(ctx, actorID, targetID, role)
}

func (s *RBACService) assign(ctx context.Context, actorID, targetID uuid.UUID, role rbac.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	existing, err := s.rbacRepo.GetActiveAssignment(ctx, targetID, role)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrRoleAlreadyHeld
	}

	a := &rbac.RoleAssignment{
		UserID:     targetID,
		Role:       role,
		Active:     true,
		AssignedBy: actorID,
		AssignedAt: time.Now(),
	}
	if err := s.rbacRepo.CreateAssignment(ctx, a); err != nil {
		return fmt.Errorf("creating role assignment: %w", err)
	}

	s.invalidate(ctx, targetID)
	return nil
}

// RemoveRole soft-deactivates a role assignment.
func (s *RBACService) RemoveRole(ctx context.Context, actorID, targetID uuid.UUID, role rbac.Role) error {
	if err := s.Require(ctx, actorID, rbac.PermManageRoles); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	existing, err := s.rbacRepo.GetActiveAssignment(ctx, targetID, role)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrRoleNotHeld
	}

	if err := s.rbacRepo.DeactivateAssignment(ctx, targetID, role); err != nil {
		return fmt.Errorf("deactivating role assignment: %w", err)
	}

	s.invalidate(ctx, targetID)
	return nil
}

// Grant creates a direct permission grant. The reason is mandatory; it is
// part of the grant's audit trail and is rendered next to the toggle.
func (s *RBACService) Grant(ctx context.Context, actorID, targetID uuid.UUID, perm rbac.Permission, reason string) error {
	if err := s.Require(ctx, actorID, rbac.PermManageRoles); err != nil {
		return err
	}
	if !perm.Valid() {
		return ErrInvalidPermission
	}
	if reason == "" {
		return ErrReasonRequired
	}

	g := &rbac.Grant{
		UserID:     targetID,
		Permission: perm,
		Reason:     reason,
		GrantedBy:  actorID,
		GrantedAt:  time.Now(),
	}
	if err := s.rbacRepo.CreateGrant(ctx, g); err != nil {
		return fmt.Errorf("creating grant: %w", err)
	}

	s.invalidate(ctx, targetID)
	return nil
}

// Revoke removes a direct grant. Role-derived permissions cannot be revoked
// here: the role itself has to be removed, which keeps the provenance model
// honest in the UI.
func (s *RBACService) Revoke(ctx context.Context, actorID, targetID uuid.UUID, perm rbac.Permission) error {
	if err := s.Require(ctx, actorID, rbac.PermManageRoles); err != nil {
		return err
	}
	if !perm.Valid() {
		return ErrInvalidPermission
	}

	grant, err := s.rbacRepo.GetGrant(ctx, targetID, perm)
	if err != nil {
		return err
	}
	if grant == nil {
		assignments, err := s.rbacRepo.ListAssignments(ctx, targetID)
		if err != nil {
			return err
		}
		states := rbac.Resolve(assignments, nil)
		if states[perm].Source == rbac.SourceRole {
			return ErrRoleDerived
		}
		return ErrGrantNotFound
	}

	if err := s.rbacRepo.DeleteGrant(ctx, targetID, perm); err != nil {
		return fmt.Errorf("deleting grant: %w", err)
	}

	s.invalidate(ctx, targetID)
	return nil
}

// ApplyTemplate assigns a named bundle of roles and grants in one step.
// Roles already held are skipped rather than failing the whole template.
func (s *RBACService) ApplyTemplate(ctx context.Context, actorID, targetID uuid.UUID, name string) error {
	if err := s.Require(ctx, actorID, rbac.PermManageRoles); err != nil {
		return err
	}

	tpl, ok := rbac.TemplateByName(name)
	if !ok {
		return ErrTemplateNotFound
	}

	for _, role := range tpl.Roles {
		if err := s.assign(ctx, actorID, targetID, role); err != nil && !errors.Is(err, ErrRoleAlreadyHeld) {
			return err
		}
	}
	for _, perm := range tpl.Grants {
		g := &rbac.Grant{
			UserID:     targetID,
			Permission: perm,
			Reason:     "role template: " + tpl.Name,
			GrantedBy:  actorID,
			GrantedAt:  time.Now(),
		}
		if err := s.rbacRepo.CreateGrant(ctx, g); err != nil {
			return fmt.Errorf("creating template grant: %w", err)
		}
	}

	s.invalidate(ctx, targetID)
	return nil
}

func (s *RBACService) requireEither(ctx context.Context, userID uuid.UUID, perms ...rbac.Permission) error {
	for _, p := range perms {
		ok, err := s.Has(ctx, userID, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrPermissionDenied
}

func (s *RBACService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "perms:"+userID.String()); err != nil {
		log.Printf("rbac: cache error: %v", err)
	}
}
