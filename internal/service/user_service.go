package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/internal/repository"
	"github.com/huddleapp/huddle/pkg/rbac"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNotPendingUser   = errors.New("user is not awaiting approval")
	ErrApprovalInFlight = errors.New("an approval action for this user is already in progress")
)

// UserService handles account administration: listing and resolving pending
// registrations. A per-user in-flight set rejects re-entrant approve/reject
// calls so rapid double-clicks cannot apply the action twice.
type UserService struct {
	userRepo repository.UserRepository
	rbac     *RBACService
	notifier Notifier

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewUserService(userRepo repository.UserRepository, rbacService *RBACService) *UserService {
	return &UserService{
		userRepo: userRepo,
		rbac:     rbacService,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *UserService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) ListPending(ctx context.Context, adminID uuid.UUID) ([]domain.User, error) {
	if err := s.rbac.Require(ctx, adminID, rbac.PermApproveUsers); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *UserService) Approve(ctx context.Context, adminID, userID uuid.UUID) error {
	return s.resolve(ctx, adminID, userID, domain.ApprovalApproved)
}

func (s *UserService) Reject(ctx context.Context, adminID, userID uuid.UUID) error {
	return s.resolve(ctx, adminID, userID, domain.ApprovalRejected)
}

func (s *UserService) resolve(ctx context.Context, adminID, userID uuid.UUID, status domain.ApprovalStatus) error {
	if err := s.rbac.Require(ctx, adminID, rbac.PermApproveUsers); err != nil {
		return err
	}

	s.mu.Lock()
	if _, busy := s.inflight[userID]; busy {
		s.mu.Unlock()
		return ErrApprovalInFlight
	}
	s.inflight[userID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, userID)
		s.mu.Unlock()
	}()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.ApprovalStatus != domain.ApprovalPending {
		return ErrNotPendingUser
	}

	if err := s.userRepo.SetApproval(ctx, userID, status, adminID); err != nil {
		return fmt.Errorf("setting approval status: %w", err)
	}

	// Every approved account can at least use team chat.
	if status == domain.ApprovalApproved {
		if err := s.rbac.AssignRole(ctx, adminID, userID, rbac.RoleStaff); err != nil &&
			!errors.Is(err, ErrRoleAlreadyHeld) {
			return err
		}
	}

	if s.notifier != nil {
		user.ApprovalStatus = status
		user.ApprovedBy = &adminID
		s.notifier.NotifyApprovalResolved(user)
	}

	return nil
}
