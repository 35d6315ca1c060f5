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
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMessageOwner = errors.New("only the message sender can perform this action")
	ErrEditConflict    = errors.New("message was modified by another client; reload and retry")
	ErrMessageRecalled = errors.New("message has been recalled")
	ErrInvalidType     = errors.New("unknown message type")
	ErrEmptyMessage    = errors.New("message needs text content or a media attachment")
)

// Notifier broadcasts real-time events to connected clients.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyEditedMessage(msg *domain.Message)
	NotifyDeletedMessage(chatID, messageID uuid.UUID)
	NotifyRecalledMessage(chatID, messageID uuid.UUID)
	NotifyReaction(chatID uuid.UUID, reaction *domain.Reaction, added bool)
	NotifyPendingUser(user *domain.User)
	NotifyApprovalResolved(user *domain.User)
}

type MessageService struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	rbac        *RBACService
	notifier    Notifier
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	rbacService *RBACService,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		rbac:        rbacService,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	// ClientKey is the sender-generated idempotency key echoed back on the
	// realtime event so the sender's optimistic entry can be matched.
	ClientKey string             `json:"client_key"`
	Content   string             `json:"content"`
	Type      domain.MessageType `json:"type"`
	MediaURL  *string            `json:"media_url,omitempty"`
	MediaType *string            `json:"media_type,omitempty"`
	MediaSize *int64             `json:"media_size,omitempty"`
}

type EditMessageInput struct {
	Content string `json:"content"`
	// UpdatedAt is the version the client last saw. Zero means "skip the
	// conflict check" for clients that have not adopted it yet.
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

func (s *MessageService) Send(ctx context.Context, userID, chatID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if err := s.checkChatAccess(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := s.rbac.Require(ctx, userID, rbac.PermSendMessages); err != nil {
		return nil, err
	}

	msgType := input.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, ErrInvalidType
	}
	if input.Content == "" && input.MediaURL == nil {
		return nil, ErrEmptyMessage
	}

	now := time.Now()
	msg := &domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  userID,
		Type:      msgType,
		MediaURL:  input.MediaURL,
		MediaType: input.MediaType,
		MediaSize: input.MediaSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Content != "" {
		content := input.Content
		msg.Content = &content
	}
	if input.ClientKey != "" {
		key := input.ClientKey
		msg.ClientKey = &key
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
	}

	return full, nil
}

func (s *MessageService) List(ctx context.Context, userID, chatID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	if err := s.checkChatAccess(ctx, userID, chatID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Fetch limit+1 to learn whether older history remains.
	messages, err := s.messageRepo.ListByChat(ctx, chatID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// Edit appends the previous content to the message's edit history and writes
// the new content, guarded by an updated_at version check so two clients
// editing concurrently get a conflict instead of silently overwriting.
func (s *MessageService) Edit(ctx context.Context, userID, messageID uuid.UUID, input EditMessageInput) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return nil, ErrNotMessageOwner
	}
	if msg.RecalledAt != nil {
		return nil, ErrMessageRecalled
	}
	if !input.UpdatedAt.IsZero() && !input.UpdatedAt.Equal(msg.UpdatedAt) {
		return nil, ErrEditConflict
	}

	// History keeps prior edited versions only. The first edit just flags
	// the message; later edits snapshot the content they replace.
	if msg.IsEdited {
		prev := ""
		if msg.Content != nil {
			prev = *msg.Content
		}
		msg.EditHistory = append(msg.EditHistory, domain.EditSnapshot{
			Content:  prev,
			EditedAt: time.Now(),
		})
	}
	msg.Content = &input.Content
	msg.IsEdited = true

	ok, err := s.messageRepo.Update(ctx, msg, msg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}
	if !ok {
		return nil, ErrEditConflict
	}

	updated, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyEditedMessage(updated)
	}

	return updated, nil
}

// Delete soft-deletes a message. The sender can always delete their own;
// chat moderators can delete anyone's.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		ok, err := s.rbac.Has(ctx, userID, rbac.PermModerateChat)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotMessageOwner
		}
	}

	if err := s.messageRepo.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyDeletedMessage(msg.ChatID, messageID)
	}

	return nil
}

// Recall flags a message as recalled without removing it; clients render a
// placeholder in place of the content.
func (s *MessageService) Recall(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrNotMessageOwner
	}
	if msg.RecalledAt != nil {
		return ErrMessageRecalled
	}

	if err := s.messageRepo.Recall(ctx, messageID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyRecalledMessage(msg.ChatID, messageID)
	}

	return nil
}

// ToggleReaction adds the (message, user, emoji) reaction if absent and
// removes it if present. Returns true when the reaction was added.
func (s *MessageService) ToggleReaction(ctx context.Context, userID, messageID uuid.UUID, emoji string) (bool, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, ErrMessageNotFound
	}
	if err := s.checkChatAccess(ctx, userID, msg.ChatID); err != nil {
		return false, err
	}

	existing, err := s.messageRepo.GetReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return false, err
	}

	reaction := &domain.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}

	if existing != nil {
		if err := s.messageRepo.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
			return false, err
		}
		if s.notifier != nil {
			s.notifier.NotifyReaction(msg.ChatID, reaction, false)
		}
		return false, nil
	}

	if err := s.messageRepo.AddReaction(ctx, reaction); err != nil {
		return false, err
	}
	if s.notifier != nil {
		s.notifier.NotifyReaction(msg.ChatID, reaction, true)
	}
	return true, nil
}

func (s *MessageService) Reactions(ctx context.Context, userID, messageID uuid.UUID) ([]domain.Reaction, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if err := s.checkChatAccess(ctx, userID, msg.ChatID); err != nil {
		return nil, err
	}

	reactions, err := s.messageRepo.ListReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if reactions == nil {
		reactions = []domain.Reaction{}
	}
	return reactions, nil
}

func (s *MessageService) checkChatAccess(ctx context.Context, userID, chatID uuid.UUID) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}

	member, err := s.chatRepo.GetMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotChatMember
	}
	return nil
}
