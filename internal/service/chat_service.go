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
	ErrChatNotFound  = errors.New("chat not found")
	ErrNotChatMember = errors.New("you are not a member of this chat")
	ErrChatArchived  = errors.New("chat is archived")
)

type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	rbac     *RBACService
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, rbacService *RBACService) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		rbac:     rbacService,
	}
}

type CreateChatInput struct {
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
}

func (s *ChatService) Create(ctx context.Context, userID uuid.UUID, input CreateChatInput) (*domain.Chat, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermModerateChat); err != nil {
		return nil, err
	}

	chat := &domain.Chat{
		ID:           uuid.New(),
		Name:         input.Name,
		Description:  input.Description,
		DepartmentID: input.DepartmentID,
		CreatedBy:    userID,
		CreatedAt:    time.Now(),
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}

	// Creator joins automatically.
	member := &domain.ChatMember{ChatID: chat.ID, UserID: userID, JoinedAt: time.Now()}
	if err := s.chatRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("adding creator as member: %w", err)
	}

	return chat, nil
}

func (s *ChatService) Get(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	member, err := s.chatRepo.GetMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotChatMember
	}

	return chat, nil
}

func (s *ChatService) List(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	chats, err := s.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return chats, nil
}

func (s *ChatService) Archive(ctx context.Context, userID, chatID uuid.UUID) error {
	if err := s.rbac.Require(ctx, userID, rbac.PermModerateChat); err != nil {
		return err
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if chat.ArchivedAt != nil {
		return ErrChatArchived
	}

	return s.chatRepo.Archive(ctx, chatID)
}

func (s *ChatService) AddMember(ctx context.Context, actorID, chatID, userID uuid.UUID) error {
	if err := s.rbac.Require(ctx, actorID, rbac.PermModerateChat); err != nil {
		return err
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	member := &domain.ChatMember{ChatID: chatID, UserID: userID, JoinedAt: time.Now()}
	return s.chatRepo.AddMember(ctx, member)
}

func (s *ChatService) RemoveMember(ctx context.Context, actorID, chatID, userID uuid.UUID) error {
	// Members may leave on their own; removing others needs moderation.
	if actorID != userID {
		if err := s.rbac.Require(ctx, actorID, rbac.PermModerateChat); err != nil {
			return err
		}
	}
	return s.chatRepo.RemoveMember(ctx, chatID, userID)
}

// MarkRead records the newest message a member has seen, for unread badges.
func (s *ChatService) MarkRead(ctx context.Context, userID, chatID, messageID uuid.UUID) error {
	member, err := s.chatRepo.GetMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotChatMember
	}
	return s.chatRepo.UpdateLastRead(ctx, chatID, userID, messageID)
}

func (s *ChatService) ListMembers(ctx context.Context, userID, chatID uuid.UUID) ([]domain.ChatMember, error) {
	member, err := s.chatRepo.GetMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotChatMember
	}

	members, err := s.chatRepo.ListMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.ChatMember{}
	}
	return members, nil
}
