package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/pkg/rbac"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListPending(ctx context.Context) ([]domain.User, error)
	SetApproval(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approvedBy uuid.UUID) error
}

type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
	Update(ctx context.Context, dept *domain.Department) error
	Archive(ctx context.Context, id uuid.UUID) error
	AssignStaff(ctx context.Context, a *domain.StaffAssignment) error
	UnassignStaff(ctx context.Context, departmentID, userID uuid.UUID) error
	GetAssignment(ctx context.Context, departmentID, userID uuid.UUID) (*domain.StaffAssignment, error)
	ListStaff(ctx context.Context, departmentID uuid.UUID) ([]domain.StaffAssignment, error)
}

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	Archive(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, member *domain.ChatMember) error
	RemoveMember(ctx context.Context, chatID, userID uuid.UUID) error
	GetMember(ctx context.Context, chatID, userID uuid.UUID) (*domain.ChatMember, error)
	ListMembers(ctx context.Context, chatID uuid.UUID) ([]domain.ChatMember, error)
	UpdateLastRead(ctx context.Context, chatID, userID, messageID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByChat(ctx context.Context, chatID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	// Update writes content, edit history and flags, guarded by an
	// updated_at comparison. It returns false when the row changed since
	// expectedUpdatedAt, in which case nothing was written.
	Update(ctx context.Context, msg *domain.Message, expectedUpdatedAt time.Time) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Recall(ctx context.Context, id uuid.UUID) error
	GetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*domain.Reaction, error)
	AddReaction(ctx context.Context, r *domain.Reaction) error
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	ListReactions(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error)
}

type HealthRepository interface {
	Create(ctx context.Context, rec *domain.HealthRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.HealthRecord, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]domain.HealthRecord, error)
	Update(ctx context.Context, rec *domain.HealthRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RBACRepository interface {
	ListAssignments(ctx context.Context, userID uuid.UUID) ([]rbac.RoleAssignment, error)
	GetActiveAssignment(ctx context.Context, userID uuid.UUID, role rbac.Role) (*rbac.RoleAssignment, error)
	CreateAssignment(ctx context.Context, a *rbac.RoleAssignment) error
	DeactivateAssignment(ctx context.Context, userID uuid.UUID, role rbac.Role) error
	ListGrants(ctx context.Context, userID uuid.UUID) ([]rbac.Grant, error)
	GetGrant(ctx context.Context, userID uuid.UUID, perm rbac.Permission) (*rbac.Grant, error)
	CreateGrant(ctx context.Context, g *rbac.Grant) error
	DeleteGrant(ctx context.Context, userID uuid.UUID, perm rbac.Permission) error
}
