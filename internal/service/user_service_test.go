package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/pkg/rbac"
)

// blockingUserRepo lets a test hold an approval mid-flight.
type blockingUserRepo struct {
	*fakeUserRepo
	beforeSetApproval func()
}

func (r *blockingUserRepo) SetApproval(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approvedBy uuid.UUID) error {
	if r.beforeSetApproval != nil {
		r.beforeSetApproval()
	}
	return r.fakeUserRepo.SetApproval(ctx, id, status, approvedBy)
}

func newApprovalFixture(t *testing.T) (*UserService, *fakeUserRepo, *fakeRBACRepo, uuid.UUID) {
	t.Helper()

	rbacRepo := &fakeRBACRepo{}
	rbacService := NewRBACService(rbacRepo, nil)
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo, rbacService)

	admin := uuid.New()
	grantRole(rbacRepo, admin, rbac.RoleAdmin)
	userRepo.Create(context.Background(), &domain.User{
		ID:             admin,
		Email:          "admin@club.example",
		Username:       "admin",
		ApprovalStatus: domain.ApprovalApproved,
	})

	return svc, userRepo, rbacRepo, admin
}

func pendingUser(t *testing.T, repo *fakeUserRepo) uuid.UUID {
	t.Helper()
	id := uuid.New()
	repo.Create(context.Background(), &domain.User{
		ID:             id,
		Email:          "new@club.example",
		Username:       "newcomer",
		ApprovalStatus: domain.ApprovalPending,
		CreatedAt:      time.Now(),
	})
	return id
}

func TestApproveAssignsStaffRole(t *testing.T) {
	svc, userRepo, rbacRepo, admin := newApprovalFixture(t)
	ctx := context.Background()
	target := pendingUser(t, userRepo)

	if err := svc.Approve(ctx, admin, target); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	user, _ := userRepo.GetByID(ctx, target)
	if user.ApprovalStatus != domain.ApprovalApproved {
		t.Errorf("status = %s, want approved", user.ApprovalStatus)
	}
	if user.ApprovedBy == nil || *user.ApprovedBy != admin {
		t.Errorf("approved_by = %v, want admin", user.ApprovedBy)
	}

	a, _ := rbacRepo.GetActiveAssignment(ctx, target, rbac.RoleStaff)
	if a == nil {
		t.Error("approval should assign the staff role")
	}
}

func TestApproveTwiceRejected(t *testing.T) {
	svc, userRepo, _, admin := newApprovalFixture(t)
	ctx := context.Background()
	target := pendingUser(t, userRepo)

	if err := svc.Approve(ctx, admin, target); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if err := svc.Approve(ctx, admin, target); !errors.Is(err, ErrNotPendingUser) {
		t.Fatalf("second approve err = %v, want ErrNotPendingUser", err)
	}
}

func TestRejectPendingUser(t *testing.T) {
	svc, userRepo, rbacRepo, admin := newApprovalFixture(t)
	ctx := context.Background()
	target := pendingUser(t, userRepo)

	if err := svc.Reject(ctx, admin, target); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	user, _ := userRepo.GetByID(ctx, target)
	if user.ApprovalStatus != domain.ApprovalRejected {
		t.Errorf("status = %s, want rejected", user.ApprovalStatus)
	}
	if a, _ := rbacRepo.GetActiveAssignment(ctx, target, rbac.RoleStaff); a != nil {
		t.Error("rejection must not assign a role")
	}
}

func TestApprovalRequiresPermission(t *testing.T) {
	svc, userRepo, _, _ := newApprovalFixture(t)
	target := pendingUser(t, userRepo)

	nobody := uuid.New()
	if err := svc.Approve(context.Background(), nobody, target); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.ListPending(context.Background(), nobody); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("ListPending err = %v, want ErrPermissionDenied", err)
	}
}

func TestApprovalInFlightGuard(t *testing.T) {
	rbacRepo := &fakeRBACRepo{}
	rbacService := NewRBACService(rbacRepo, nil)
	admin := uuid.New()
	grantRole(rbacRepo, admin, rbac.RoleAdmin)

	inner := newFakeUserRepo()
	target := pendingUser(t, inner)

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo := &blockingUserRepo{
		fakeUserRepo: inner,
		beforeSetApproval: func() {
			once.Do(func() {
				close(firstEntered)
				<-release
			})
		},
	}
	svc := NewUserService(repo, rbacService)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- svc.Approve(context.Background(), admin, target)
	}()

	<-firstEntered

	// A second click while the first approval is still running must bounce.
	if err := svc.Approve(context.Background(), admin, target); !errors.Is(err, ErrApprovalInFlight) {
		t.Fatalf("concurrent approve err = %v, want ErrApprovalInFlight", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first approve: %v", err)
	}
}

func TestResolveNotifiesAffectedUser(t *testing.T) {
	svc, userRepo, _, admin := newApprovalFixture(t)
	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	approved := pendingUser(t, userRepo)
	if err := svc.Approve(ctx, admin, approved); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	rejected := pendingUser(t, userRepo)
	if err := svc.Reject(ctx, admin, rejected); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	if len(notifier.resolved) != 2 {
		t.Fatalf("resolved notifications = %d, want 2", len(notifier.resolved))
	}
	if got := notifier.resolved[0]; got.ID != approved || got.ApprovalStatus != domain.ApprovalApproved {
		t.Errorf("first notification = (%s, %s), want the approved user", got.ID, got.ApprovalStatus)
	}
	if got := notifier.resolved[1]; got.ID != rejected || got.ApprovalStatus != domain.ApprovalRejected {
		t.Errorf("second notification = (%s, %s), want the rejected user", got.ID, got.ApprovalStatus)
	}
}
