package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/pkg/rbac"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RBACRepo struct {
	pool *pgxpool.Pool
}

func NewRBACRepo(pool *pgxpool.Pool) *RBACRepo {
	return &RBACRepo{pool: pool}
}

func (r *RBACRepo) ListAssignments(ctx context.Context, userID uuid.UUID) ([]rbac.RoleAssignment, error) {
	query := `
		SELECT user_id, role, active, assigned_by, assigned_at, revoked_at
		FROM role_assignments WHERE user_id = $1 ORDER BY assigned_at`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []rbac.RoleAssignment
	for rows.Next() {
		var a rbac.RoleAssignment
		if err := rows.Scan(&a.UserID, &a.Role, &a.Active, &a.AssignedBy, &a.AssignedAt, &a.RevokedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *RBACRepo) GetActiveAssignment(ctx context.Context, userID uuid.UUID, role rbac.Role) (*rbac.RoleAssignment, error) {
	query := `
		SELECT user_id, role, active, assigned_by, assigned_at, revoked_at
		FROM role_assignments WHERE user_id = $1 AND role = $2 AND active = true`
	var a rbac.RoleAssignment
	err := r.pool.QueryRow(ctx, query, userID, role).Scan(
		&a.UserID, &a.Role, &a.Active, &a.AssignedBy, &a.AssignedAt, &a.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &a, err
}

func (r *RBACRepo) CreateAssignment(ctx context.Context, a *rbac.RoleAssignment) error {
	query := `
		INSERT INTO role_assignments (user_id, role, active, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, a.UserID, a.Role, a.Active, a.AssignedBy, a.AssignedAt)
	return err
}

func (r *RBACRepo) DeactivateAssignment(ctx context.Context, userID uuid.UUID, role rbac.Role) error {
	query := `
		UPDATE role_assignments SET active = false, revoked_at = $1
		WHERE user_id = $2 AND role = $3 AND active = true`
	_, err := r.pool.Exec(ctx, query, time.Now(), userID, role)
	return err
}

func (r *RBACRepo) ListGrants(ctx context.Context, userID uuid.UUID) ([]rbac.Grant, error) {
	query := `
		SELECT user_id, permission, reason, granted_by, granted_at
		FROM permission_grants WHERE user_id = $1 ORDER BY granted_at`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []rbac.Grant
	for rows.Next() {
		var g rbac.Grant
		if err := rows.Scan(&g.UserID, &g.Permission, &g.Reason, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *RBACRepo) GetGrant(ctx context.Context, userID uuid.UUID, perm rbac.Permission) (*rbac.Grant, error) {
	query := `
		SELECT user_id, permission, reason, granted_by, granted_at
		FROM permission_grants WHERE user_id = $1 AND permission = $2`
	var g rbac.Grant
	err := r.pool.QueryRow(ctx, query, userID, perm).Scan(
		&g.UserID, &g.Permission, &g.Reason, &g.GrantedBy, &g.GrantedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &g, err
}

func (r *RBACRepo) CreateGrant(ctx context.Context, g *rbac.Grant) error {
	query := `
		INSERT INTO permission_grants (user_id, permission, reason, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, permission)
		DO UPDATE SET reason = $3, granted_by = $4, granted_at = $5`
	_, err := r.pool.Exec(ctx, query, g.UserID, g.Permission, g.Reason, g.GrantedBy, g.GrantedAt)
	return err
}

func (r *RBACRepo) DeleteGrant(ctx context.Context, userID uuid.UUID, perm rbac.Permission) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM permission_grants WHERE user_id = $1 AND permission = $2`, userID, perm)
	return err
}
