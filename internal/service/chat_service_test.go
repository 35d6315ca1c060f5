package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/pkg/rbac"
)

func newChatFixture(t *testing.T) (*ChatService, *fakeChatRepo, uuid.UUID) {
	t.Helper()

	rbacRepo := &fakeRBACRepo{}
	rbacService := NewRBACService(rbacRepo, nil)
	chatRepo := newFakeChatRepo()
	userRepo := newFakeUserRepo()
	svc := NewChatService(chatRepo, userRepo, rbacService)

	moderator := uuid.New()
	grantRole(rbacRepo, moderator, rbac.RoleAdmin)

	return svc, chatRepo, moderator
}

func TestChatMembershipGate(t *testing.T) {
	svc, _, moderator := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.Create(ctx, moderator, CreateChatInput{Name: "U14 Squad"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	outsider := uuid.New()
	if _, err := svc.Get(ctx, outsider, chat.ID); !errors.Is(err, ErrNotChatMember) {
		t.Fatalf("outsider Get err = %v, want ErrNotChatMember", err)
	}
	if _, err := svc.ListMembers(ctx, outsider, chat.ID); !errors.Is(err, ErrNotChatMember) {
		t.Fatalf("outsider ListMembers err = %v, want ErrNotChatMember", err)
	}

	// The creator is auto-joined and sees the chat.
	if _, err := svc.Get(ctx, moderator, chat.ID); err != nil {
		t.Fatalf("creator Get: %v", err)
	}
}

func TestArchiveTwiceConflicts(t *testing.T) {
	svc, _, moderator := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.Create(ctx, moderator, CreateChatInput{Name: "Alumni"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Archive(ctx, moderator, chat.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if err := svc.Archive(ctx, moderator, chat.ID); !errors.Is(err, ErrChatArchived) {
		t.Fatalf("second archive err = %v, want ErrChatArchived", err)
	}
}

func TestMarkRead(t *testing.T) {
	svc, chatRepo, moderator := newChatFixture(t)
	ctx := context.Background()

	chat, err := svc.Create(ctx, moderator, CreateChatInput{Name: "Coaches"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	msgID := uuid.New()
	if err := svc.MarkRead(ctx, moderator, chat.ID, msgID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	member, _ := chatRepo.GetMember(ctx, chat.ID, moderator)
	if member.LastReadMsgID == nil || *member.LastReadMsgID != msgID {
		t.Errorf("last_read_msg_id = %v, want %s", member.LastReadMsgID, msgID)
	}

	if err := svc.MarkRead(ctx, uuid.New(), chat.ID, msgID); !errors.Is(err, ErrNotChatMember) {
		t.Fatalf("non-member MarkRead err = %v, want ErrNotChatMember", err)
	}
}
