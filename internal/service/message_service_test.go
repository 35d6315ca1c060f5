package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/pkg/rbac"
)

func newMessageFixture(t *testing.T) (*MessageService, *fakeMessageRepo, uuid.UUID, uuid.UUID) {
	t.Helper()

	rbacRepo := &fakeRBACRepo{}
	rbacService := NewRBACService(rbacRepo, nil)

	chatRepo := newFakeChatRepo()
	messageRepo := newFakeMessageRepo()
	svc := NewMessageService(messageRepo, chatRepo, rbacService)

	userID := uuid.New()
	grantRole(rbacRepo, userID, rbac.RoleStaff)

	chatID := uuid.New()
	chatRepo.Create(context.Background(), &domain.Chat{ID: chatID, Name: "general", CreatedBy: userID, CreatedAt: time.Now()})
	chatRepo.AddMember(context.Background(), &domain.ChatMember{ChatID: chatID, UserID: userID, JoinedAt: time.Now()})

	return svc, messageRepo, userID, chatID
}

func TestSendMessage(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{
		ClientKey: "key-1",
		Content:   "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Type != domain.MessageTypeText {
		t.Errorf("type = %q, want text default", msg.Type)
	}
	if msg.ClientKey == nil || *msg.ClientKey != "key-1" {
		t.Errorf("client key not persisted: %v", msg.ClientKey)
	}
	if msg.Content == nil || *msg.Content != "hello" {
		t.Errorf("content = %v, want hello", msg.Content)
	}
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)

	_, err := svc.Send(context.Background(), userID, chatID, SendMessageInput{})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	svc, _, _, chatID := newMessageFixture(t)

	stranger := uuid.New()
	_, err := svc.Send(context.Background(), stranger, chatID, SendMessageInput{Content: "hi"})
	if !errors.Is(err, ErrNotChatMember) {
		t.Fatalf("err = %v, want ErrNotChatMember", err)
	}
}

func TestEditHistoryAccumulation(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{Content: "v0"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Three successive edits. History holds prior edited versions only, so
	// it ends at length 2.
	for _, content := range []string{"v1", "v2", "v3"} {
		msg, err = svc.Edit(ctx, userID, msg.ID, EditMessageInput{Content: content, UpdatedAt: msg.UpdatedAt})
		if err != nil {
			t.Fatalf("Edit %q: %v", content, err)
		}
	}

	if !msg.IsEdited {
		t.Error("IsEdited = false after edits")
	}
	if len(msg.EditHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(msg.EditHistory))
	}
	if msg.EditHistory[0].Content != "v1" || msg.EditHistory[1].Content != "v2" {
		t.Errorf("history = [%q, %q], want [v1, v2]", msg.EditHistory[0].Content, msg.EditHistory[1].Content)
	}
	if msg.Content == nil || *msg.Content != "v3" {
		t.Errorf("live content = %v, want v3", msg.Content)
	}
}

func TestEditConflict(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{Content: "original"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// First client edits successfully.
	if _, err := svc.Edit(ctx, userID, msg.ID, EditMessageInput{Content: "first", UpdatedAt: msg.UpdatedAt}); err != nil {
		t.Fatalf("first edit: %v", err)
	}

	// Second client still holds the stale updated_at and must get a conflict
	// instead of silently overwriting.
	_, err = svc.Edit(ctx, userID, msg.ID, EditMessageInput{Content: "second", UpdatedAt: msg.UpdatedAt})
	if !errors.Is(err, ErrEditConflict) {
		t.Fatalf("err = %v, want ErrEditConflict", err)
	}
}

func TestEditOnlyBySender(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{Content: "mine"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	other := uuid.New()
	if _, err := svc.Edit(ctx, other, msg.ID, EditMessageInput{Content: "stolen"}); !errors.Is(err, ErrNotMessageOwner) {
		t.Fatalf("err = %v, want ErrNotMessageOwner", err)
	}
}

func TestRecallBlocksEdit(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{Content: "oops"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := svc.Recall(ctx, userID, msg.ID); err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if err := svc.Recall(ctx, userID, msg.ID); !errors.Is(err, ErrMessageRecalled) {
		t.Fatalf("second recall err = %v, want ErrMessageRecalled", err)
	}
	if _, err := svc.Edit(ctx, userID, msg.ID, EditMessageInput{Content: "late"}); !errors.Is(err, ErrMessageRecalled) {
		t.Fatalf("edit after recall err = %v, want ErrMessageRecalled", err)
	}
}

func TestReactionToggleIdempotence(t *testing.T) {
	svc, _, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{Content: "nice one"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	added, err := svc.ToggleReaction(ctx, userID, msg.ID, "👍")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !added {
		t.Error("first toggle should add")
	}

	added, err = svc.ToggleReaction(ctx, userID, msg.ID, "👍")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if added {
		t.Error("second toggle should remove")
	}

	reactions, err := svc.Reactions(ctx, userID, msg.ID)
	if err != nil {
		t.Fatalf("Reactions: %v", err)
	}
	if len(reactions) != 0 {
		t.Errorf("reactions = %d, want 0 after toggle pair", len(reactions))
	}
}

func TestDeleteOwnership(t *testing.T) {
	svc, messageRepo, userID, chatID := newMessageFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, userID, chatID, SendMessageInput{Content: "spam"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// A plain member who is not the sender cannot delete.
	other := uuid.New()
	if err := svc.Delete(ctx, other, msg.ID); !errors.Is(err, ErrNotMessageOwner) {
		t.Fatalf("err = %v, want ErrNotMessageOwner", err)
	}

	// The sender can.
	if err := svc.Delete(ctx, userID, msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := messageRepo.GetByID(ctx, msg.ID)
	if got != nil {
		t.Error("message still visible after delete")
	}
}
