package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/internal/repository"
	"github.com/huddleapp/huddle/pkg/rbac"
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDepartmentArchived = errors.New("department is archived")
	ErrNotStaffMember     = errors.New("user is not assigned to this department")
)

type DepartmentService struct {
	deptRepo repository.DepartmentRepository
	userRepo repository.UserRepository
	rbac     *RBACService
}

func NewDepartmentService(deptRepo repository.DepartmentRepository, userRepo repository.UserRepository, rbacService *RBACService) *DepartmentService {
	return &DepartmentService{
		deptRepo: deptRepo,
		userRepo: userRepo,
		rbac:     rbacService,
	}
}

type DepartmentInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (s *DepartmentService) Create(ctx context.Context, userID uuid.UUID, input DepartmentInput) (*domain.Department, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermManageDepartments); err != nil {
		return nil, err
	}

	dept := &domain.Department{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
	}

	if err := s.deptRepo.Create(ctx, dept); err != nil {
		return nil, fmt.Errorf("creating department: %w", err)
	}

	return dept, nil
}

func (s *DepartmentService) Get(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	dept, err := s.deptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, ErrDepartmentNotFound
	}
	return dept, nil
}

func (s *DepartmentService) List(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.deptRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if depts == nil {
		depts = []domain.Department{}
	}
	return depts, nil
}

func (s *DepartmentService) Update(ctx context.Context, userID, deptID uuid.UUID, input DepartmentInput) (*domain.Department, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermManageDepartments); err != nil {
		return nil, err
	}

	dept, err := s.deptRepo.GetByID(ctx, deptID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, ErrDepartmentNotFound
	}
	if dept.ArchivedAt != nil {
		return nil, ErrDepartmentArchived
	}

	dept.Name = input.Name
	dept.Description = input.Description
	if err := s.deptRepo.Update(ctx, dept); err != nil {
		return nil, fmt.Errorf("updating department: %w", err)
	}

	return dept, nil
}

func (s *DepartmentService) Archive(ctx context.Context, userID, deptID uuid.UUID) error {
	if err := s.rbac.Require(ctx, userID, rbac.PermManageDepartments); err != nil {
		return err
	}

	dept, err := s.deptRepo.GetByID(ctx, deptID)
	if err != nil {
		return err
	}
	if dept == nil {
		return ErrDepartmentNotFound
	}

	return s.deptRepo.Archive(ctx, deptID)
}

type AssignStaffInput struct {
	UserID   uuid.UUID `json:"user_id"`
	Position string    `json:"position"`
}

func (s *DepartmentService) AssignStaff(ctx context.Context, actorID, deptID uuid.UUID, input AssignStaffInput) error {
	if err := s.rbac.Require(ctx, actorID, rbac.PermManageStaff); err != nil {
		return err
	}

	dept, err := s.deptRepo.GetByID(ctx, deptID)
	if err != nil {
		return err
	}
	if dept == nil {
		return ErrDepartmentNotFound
	}
	if dept.ArchivedAt != nil {
		return ErrDepartmentArchived
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	a := &domain.StaffAssignment{
		DepartmentID: deptID,
		UserID:       input.UserID,
		Position:     input.Position,
		Active:       true,
		AssignedAt:   time.Now(),
	}
	return s.deptRepo.AssignStaff(ctx, a)
}

func (s *DepartmentService) UnassignStaff(ctx context.Context, actorID, deptID, userID uuid.UUID) error {
	if err := s.rbac.Require(ctx, actorID, rbac.PermManageStaff); err != nil {
		return err
	}

	existing, err := s.deptRepo.GetAssignment(ctx, deptID, userID)
	if err != nil {
		return err
	}
	if existing == nil || !existing.Active {
		return ErrNotStaffMember
	}

	return s.deptRepo.UnassignStaff(ctx, deptID, userID)
}

func (s *DepartmentService) ListStaff(ctx context.Context, deptID uuid.UUID) ([]domain.StaffAssignment, error) {
	dept, err := s.deptRepo.GetByID(ctx, deptID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, ErrDepartmentNotFound
	}

	staff, err := s.deptRepo.ListStaff(ctx, deptID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		staff = []domain.StaffAssignment{}
	}
	return staff, nil
}
