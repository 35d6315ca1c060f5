package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DepartmentRepo struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepo(pool *pgxpool.Pool) *DepartmentRepo {
	return &DepartmentRepo{pool: pool}
}

func (r *DepartmentRepo) Create(ctx context.Context, dept *domain.Department) error {
	query := `
		INSERT INTO departments (id, name, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query,
		dept.ID, dept.Name, dept.Description, dept.CreatedBy, dept.CreatedAt,
	)
	return err
}

func (r *DepartmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	query := `
		SELECT id, name, description, created_by, created_at, archived_at
		FROM departments WHERE id = $1`
	var d domain.Department
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Description, &d.CreatedBy, &d.CreatedAt, &d.ArchivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &d, err
}

func (r *DepartmentRepo) List(ctx context.Context) ([]domain.Department, error) {
	query := `
		SELECT id, name, description, created_by, created_at, archived_at
		FROM departments WHERE archived_at IS NULL ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var depts []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedBy, &d.CreatedAt, &d.ArchivedAt); err != nil {
			return nil, err
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

func (r *DepartmentRepo) Update(ctx context.Context, dept *domain.Department) error {
	query := `UPDATE departments SET name = $1, description = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, query, dept.Name, dept.Description, dept.ID)
	return err
}

func (r *DepartmentRepo) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE departments SET archived_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

func (r *DepartmentRepo) AssignStaff(ctx context.Context, a *domain.StaffAssignment) error {
	query := `
		INSERT INTO staff_assignments (department_id, user_id, position, active, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (department_id, user_id)
		DO UPDATE SET position = $3, active = $4, assigned_at = $5`
	_, err := r.pool.Exec(ctx, query,
		a.DepartmentID, a.UserID, a.Position, a.Active, a.AssignedAt,
	)
	return err
}

func (r *DepartmentRepo) UnassignStaff(ctx context.Context, departmentID, userID uuid.UUID) error {
	query := `UPDATE staff_assignments SET active = false WHERE department_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, departmentID, userID)
	return err
}

func (r *DepartmentRepo) GetAssignment(ctx context.Context, departmentID, userID uuid.UUID) (*domain.StaffAssignment, error) {
	query := `
		SELECT sa.department_id, sa.user_id, sa.position, sa.active, sa.assigned_at, u.username, u.display_name
		FROM staff_assignments sa
		JOIN users u ON sa.user_id = u.id
		WHERE sa.department_id = $1 AND sa.user_id = $2`
	var a domain.StaffAssignment
	err := r.pool.QueryRow(ctx, query, departmentID, userID).Scan(
		&a.DepartmentID, &a.UserID, &a.Position, &a.Active, &a.AssignedAt,
		&a.Username, &a.DisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &a, err
}

func (r *DepartmentRepo) ListStaff(ctx context.Context, departmentID uuid.UUID) ([]domain.StaffAssignment, error) {
	query := `
		SELECT sa.department_id, sa.user_id, sa.position, sa.active, sa.assigned_at, u.username, u.display_name
		FROM staff_assignments sa
		JOIN users u ON sa.user_id = u.id
		WHERE sa.department_id = $1 AND sa.active = true
		ORDER BY sa.assigned_at`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []domain.StaffAssignment
	for rows.Next() {
		var a domain.StaffAssignment
		if err := rows.Scan(
			&a.DepartmentID, &a.UserID, &a.Position, &a.Active, &a.AssignedAt,
			&a.Username, &a.DisplayName,
		); err != nil {
			return nil, err
		}
		staff = append(staff, a)
	}
	return staff, rows.Err()
}
