package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/pkg/rbac"
)

// In-memory repositories for service tests. They implement just enough of
// the repository contracts to exercise the service logic without a database.

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ListPending(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.ApprovalStatus == domain.ApprovalPending {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetApproval(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approvedBy uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		now := time.Now()
		u.ApprovalStatus = status
		u.ApprovedBy = &approvedBy
		u.ApprovedAt = &now
	}
	return nil
}

type fakeRBACRepo struct {
	assignments []rbac.RoleAssignment
	grants      []rbac.Grant
}

func (r *fakeRBACRepo) ListAssignments(ctx context.Context, userID uuid.UUID) ([]rbac.RoleAssignment, error) {
	var out []rbac.RoleAssignment
	for _, a := range r.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRBACRepo) GetActiveAssignment(ctx context.Context, userID uuid.UUID, role rbac.Role) (*rbac.RoleAssignment, error) {
	for _, a := range r.assignments {
		if a.UserID == userID && a.Role == role && a.Active {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRBACRepo) CreateAssignment(ctx context.Context, a *rbac.RoleAssignment) error {
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *fakeRBACRepo) DeactivateAssignment(ctx context.Context, userID uuid.UUID, role rbac.Role) error {
	now := time.Now()
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.UserID == userID && a.Role == role && a.Active {
			a.Active = false
			a.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeRBACRepo) ListGrants(ctx context.Context, userID uuid.UUID) ([]rbac.Grant, error) {
	var out []rbac.Grant
	for _, g := range r.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeRBACRepo) GetGrant(ctx context.Context, userID uuid.UUID, perm rbac.Permission) (*rbac.Grant, error) {
	for _, g := range r.grants {
		if g.UserID == userID && g.Permission == perm {
			cp := g
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRBACRepo) CreateGrant(ctx context.Context, g *rbac.Grant) error {
	r.grants = append(r.grants, *g)
	return nil
}

func (r *fakeRBACRepo) DeleteGrant(ctx context.Context, userID uuid.UUID, perm rbac.Permission) error {
	out := r.grants[:0]
	for _, g := range r.grants {
		if g.UserID == userID && g.Permission == perm {
			continue
		}
		out = append(out, g)
	}
	r.grants = out
	return nil
}

type fakeChatRepo struct {
	chats   map[uuid.UUID]*domain.Chat
	members map[uuid.UUID]map[uuid.UUID]*domain.ChatMember
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:   make(map[uuid.UUID]*domain.Chat),
		members: make(map[uuid.UUID]map[uuid.UUID]*domain.ChatMember),
	}
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	cp := *chat
	r.chats[chat.ID] = &cp
	return nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	if c, ok := r.chats[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	var out []domain.Chat
	for chatID, members := range r.members {
		if _, ok := members[userID]; ok {
			if c, found := r.chats[chatID]; found {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (r *fakeChatRepo) Archive(ctx context.Context, id uuid.UUID) error {
	if c, ok := r.chats[id]; ok {
		now := time.Now()
		c.ArchivedAt = &now
	}
	return nil
}

func (r *fakeChatRepo) AddMember(ctx context.Context, member *domain.ChatMember) error {
	if r.members[member.ChatID] == nil {
		r.members[member.ChatID] = make(map[uuid.UUID]*domain.ChatMember)
	}
	cp := *member
	r.members[member.ChatID][member.UserID] = &cp
	return nil
}

func (r *fakeChatRepo) RemoveMember(ctx context.Context, chatID, userID uuid.UUID) error {
	delete(r.members[chatID], userID)
	return nil
}

func (r *fakeChatRepo) GetMember(ctx context.Context, chatID, userID uuid.UUID) (*domain.ChatMember, error) {
	if m, ok := r.members[chatID][userID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeChatRepo) UpdateLastRead(ctx context.Context, chatID, userID, messageID uuid.UUID) error {
	if m, ok := r.members[chatID][userID]; ok {
		id := messageID
		m.LastReadMsgID = &id
	}
	return nil
}

func (r *fakeChatRepo) ListMembers(ctx context.Context, chatID uuid.UUID) ([]domain.ChatMember, error) {
	var out []domain.ChatMember
	for _, m := range r.members[chatID] {
		out = append(out, *m)
	}
	return out, nil
}

type fakeMessageRepo struct {
	messages  map[uuid.UUID]*domain.Message
	reactions []domain.Reaction
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	m, ok := r.messages[id]
	if !ok || m.DeletedAt != nil {
		return nil, nil
	}
	cp := *m
	cp.EditHistory = append([]domain.EditSnapshot(nil), m.EditHistory...)
	return &cp, nil
}

func (r *fakeMessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.messages {
		if m.ChatID == chatID && m.DeletedAt == nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, msg *domain.Message, expectedUpdatedAt time.Time) (bool, error) {
	m, ok := r.messages[msg.ID]
	if !ok {
		return false, nil
	}
	if !m.UpdatedAt.Equal(expectedUpdatedAt) {
		return false, nil
	}
	cp := *msg
	cp.UpdatedAt = time.Now()
	cp.EditHistory = append([]domain.EditSnapshot(nil), msg.EditHistory...)
	r.messages[msg.ID] = &cp
	return true, nil
}

func (r *fakeMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m, ok := r.messages[id]; ok {
		now := time.Now()
		m.DeletedAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) Recall(ctx context.Context, id uuid.UUID) error {
	if m, ok := r.messages[id]; ok {
		now := time.Now()
		m.RecalledAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) GetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*domain.Reaction, error) {
	for _, re := range r.reactions {
		if re.MessageID == messageID && re.UserID == userID && re.Emoji == emoji {
			cp := re
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) AddReaction(ctx context.Context, reaction *domain.Reaction) error {
	r.reactions = append(r.reactions, *reaction)
	return nil
}

func (r *fakeMessageRepo) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	out := r.reactions[:0]
	for _, re := range r.reactions {
		if re.MessageID == messageID && re.UserID == userID && re.Emoji == emoji {
			continue
		}
		out = append(out, re)
	}
	r.reactions = out
	return nil
}

func (r *fakeMessageRepo) ListReactions(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error) {
	var out []domain.Reaction
	for _, re := range r.reactions {
		if re.MessageID == messageID {
			out = append(out, re)
		}
	}
	return out, nil
}

// grantRole gives a user an active role so RBAC checks pass in tests.
func grantRole(repo *fakeRBACRepo, userID uuid.UUID, role rbac.Role) {
	repo.assignments = append(repo.assignments, rbac.RoleAssignment{
		UserID:     userID,
		Role:       role,
		Active:     true,
		AssignedBy: userID,
		AssignedAt: time.Now(),
	})
}

// fakeNotifier records realtime notifications instead of pushing them.
type fakeNotifier struct {
	pending  []domain.User
	resolved []domain.User
}

func (n *fakeNotifier) NotifyNewMessage(msg *domain.Message)              {}
func (n *fakeNotifier) NotifyEditedMessage(msg *domain.Message)           {}
func (n *fakeNotifier) NotifyDeletedMessage(chatID, messageID uuid.UUID)  {}
func (n *fakeNotifier) NotifyRecalledMessage(chatID, messageID uuid.UUID) {}

func (n *fakeNotifier) NotifyReaction(chatID uuid.UUID, r *domain.Reaction, added bool) {}

func (n *fakeNotifier) NotifyPendingUser(user *domain.User) {
	n.pending = append(n.pending, *user)
}

func (n *fakeNotifier) NotifyApprovalResolved(user *domain.User) {
	n.resolved = append(n.resolved, *user)
}
