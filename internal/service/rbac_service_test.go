package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/pkg/rbac"
)

func effectiveState(t *testing.T, svc *RBACService, userID uuid.UUID, perm rbac.Permission) rbac.EffectiveState {
	t.Helper()
	states, err := svc.Effective(context.Background(), userID)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	for _, st := range states {
		if st.Permission == perm {
			return st
		}
	}
	t.Fatalf("permission %s missing from effective list", perm)
	return rbac.EffectiveState{}
}

func TestProvenancePrecedence(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)
	ctx := context.Background()

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)

	target := uuid.New()
	grantRole(repo, target, rbac.RoleCoach)

	// Role-derived: granted, sourced from the role, not revocable directly.
	st := effectiveState(t, svc, target, rbac.PermManageStaff)
	if !st.Granted || st.Source != rbac.SourceRole {
		t.Errorf("staff.manage = (%v, %s), want (true, role)", st.Granted, st.Source)
	}
	if st.Revocable {
		t.Error("role-derived permission must not be revocable")
	}

	// Direct grant of a permission no held role provides.
	if err := svc.Grant(ctx, admin, target, rbac.PermManageHealth, "covering for the team doctor"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	st = effectiveState(t, svc, target, rbac.PermManageHealth)
	if !st.Granted || st.Source != rbac.SourceDirect {
		t.Errorf("health.manage = (%v, %s), want (true, direct)", st.Granted, st.Source)
	}
	if !st.Revocable {
		t.Error("direct grant must be revocable")
	}
	if st.Reason != "covering for the team doctor" {
		t.Errorf("reason = %q, want the grant justification", st.Reason)
	}

	// Revoking the direct grant reverts to none.
	if err := svc.Revoke(ctx, admin, target, rbac.PermManageHealth); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	st = effectiveState(t, svc, target, rbac.PermManageHealth)
	if st.Granted || st.Source != rbac.SourceNone {
		t.Errorf("after revoke = (%v, %s), want (false, none)", st.Granted, st.Source)
	}
}

func TestGrantRequiresReason(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)

	err := svc.Grant(context.Background(), admin, uuid.New(), rbac.PermManageHealth, "")
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("err = %v, want ErrReasonRequired", err)
	}
}

func TestRevokeRoleDerivedRejected(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)

	target := uuid.New()
	grantRole(repo, target, rbac.RoleCoach)

	err := svc.Revoke(context.Background(), admin, target, rbac.PermManageStaff)
	if !errors.Is(err, ErrRoleDerived) {
		t.Fatalf("err = %v, want ErrRoleDerived", err)
	}
}

func TestRevokeWithoutGrant(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)

	err := svc.Revoke(context.Background(), admin, uuid.New(), rbac.PermManageHealth)
	if !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("err = %v, want ErrGrantNotFound", err)
	}
}

func TestAssignRoleChecks(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)
	ctx := context.Background()

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)
	target := uuid.New()

	if err := svc.AssignRole(ctx, admin, target, rbac.Role("captain")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown role err = %v, want ErrInvalidRole", err)
	}

	if err := svc.AssignRole(ctx, admin, target, rbac.RoleStaff); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := svc.AssignRole(ctx, admin, target, rbac.RoleStaff); !errors.Is(err, ErrRoleAlreadyHeld) {
		t.Fatalf("duplicate err = %v, want ErrRoleAlreadyHeld", err)
	}

	// A user without roles.manage cannot assign to someone else.
	nobody := uuid.New()
	if err := svc.AssignRole(ctx, nobody, target, rbac.RoleCoach); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("unprivileged err = %v, want ErrPermissionDenied", err)
	}
}

func TestRemoveRoleDropsDefaults(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)
	ctx := context.Background()

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)

	target := uuid.New()
	grantRole(repo, target, rbac.RoleCoach)

	if err := svc.RemoveRole(ctx, admin, target, rbac.RoleCoach); err != nil {
		t.Fatalf("RemoveRole: %v", err)
	}

	st := effectiveState(t, svc, target, rbac.PermManageStaff)
	if st.Granted {
		t.Error("role defaults must vanish once the role is removed")
	}
}

func TestApplyTemplate(t *testing.T) {
	repo := &fakeRBACRepo{}
	svc := NewRBACService(repo, nil)
	ctx := context.Background()

	admin := uuid.New()
	grantRole(repo, admin, rbac.RoleAdmin)
	target := uuid.New()

	if err := svc.ApplyTemplate(ctx, admin, target, "head-coach"); err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}

	// Roles from the bundle arrive role-sourced, extra grants direct.
	if st := effectiveState(t, svc, target, rbac.PermManageStaff); st.Source != rbac.SourceRole {
		t.Errorf("staff.manage source = %s, want role", st.Source)
	}
	if st := effectiveState(t, svc, target, rbac.PermManageDepartments); st.Source != rbac.SourceDirect {
		t.Errorf("departments.manage source = %s, want direct", st.Source)
	}

	if err := svc.ApplyTemplate(ctx, admin, target, "no-such-template"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
}
