package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeSender scripts the backend's response to SendMessage.
type fakeSender struct {
	calls    int
	lastReq  SendRequest
	fail     error
	response func(req SendRequest) *Message
	// beforeReply runs between the optimistic insert and the reply,
	// simulating a realtime echo racing the insert response.
	beforeReply func(req SendRequest)
}

func (f *fakeSender) SendMessage(_ context.Context, req SendRequest) (*Message, error) {
	f.calls++
	f.lastReq = req
	if f.beforeReply != nil {
		f.beforeReply(req)
	}
	if f.fail != nil {
		return nil, f.fail
	}
	if f.response != nil {
		return f.response(req), nil
	}
	return &Message{
		ID:        uuid.New(),
		ClientKey: req.ClientKey,
		ChatID:    req.ChatID,
		SenderID:  uuid.Nil,
		Content:   req.Content,
		Type:      req.Type,
		Status:    StatusConfirmed,
		Timestamp: time.Now(),
	}, nil
}

func TestSend_OptimisticThenConfirmed(t *testing.T) {
	chatID, selfID := uuid.New(), uuid.New()
	sender := &fakeSender{}
	store := NewStore(sender, chatID, selfID)

	key, err := store.Send(context.Background(), "hello", "text", "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if key == "" {
		t.Fatal("Send() returned empty client key")
	}

	msgs := store.Messages()
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].Status != StatusConfirmed {
		t.Errorf("status = %q, want confirmed", msgs[0].Status)
	}
	if msgs[0].ClientKey != key {
		t.Errorf("client key lost on confirmation: %q", msgs[0].ClientKey)
	}
	if sender.lastReq.ClientKey != key {
		t.Error("client key was not threaded through the insert call")
	}
}

func TestSend_RealtimeEchoBeforeAckDoesNotDuplicate(t *testing.T) {
	chatID, selfID := uuid.New(), uuid.New()
	serverID := uuid.New()
	sender := &fakeSender{}
	store := NewStore(sender, chatID, selfID)

	// The realtime event for the same send lands before the insert call
	// returns. The store must end up with exactly one confirmed message.
	sender.beforeReply = func(req SendRequest) {
		store.Reconcile(Message{
			ID:        serverID,
			ClientKey: req.ClientKey,
			ChatID:    chatID,
			SenderID:  selfID,
			Content:   req.Content,
			Type:      req.Type,
			Timestamp: time.Now(),
		})
	}
	sender.response = func(req SendRequest) *Message {
		return &Message{ID: serverID, ClientKey: req.ClientKey, Content: req.Content, Type: req.Type, Timestamp: time.Now()}
	}

	if _, err := store.Send(context.Background(), "hello", "text", ""); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs := store.Messages()
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1 (no duplicate)", len(msgs))
	}
	if msgs[0].Status != StatusConfirmed || msgs[0].ID != serverID {
		t.Errorf("got %+v, want confirmed server message", msgs[0])
	}
}

func TestSend_FailureRetainsMessage(t *testing.T) {
	chatID, selfID := uuid.New(), uuid.New()
	sender := &fakeSender{fail: errors.New("insert rejected")}
	store := NewStore(sender, chatID, selfID)

	_, err := store.Send(context.Background(), "hello", "text", "")
	if err == nil {
		t.Fatal("Send() should surface the backend error")
	}

	msgs := store.Messages()
	if len(msgs) != 1 {
		t.Fatalf("failed message was removed: len = %d", len(msgs))
	}
	if msgs[0].Status != StatusFailed {
		t.Errorf("status = %q, want failed", msgs[0].Status)
	}
	if msgs[0].FailReason == "" {
		t.Error("failure reason not recorded")
	}
}

func TestResend_OnlyFailedAndNotWhileInFlight(t *testing.T) {
	chatID, selfID := uuid.New(), uuid.New()
	sender := &fakeSender{fail: errors.New("boom")}
	store := NewStore(sender, chatID, selfID)

	key, _ := store.Send(context.Background(), "hi", "text", "")

	// First resend succeeds after the backend recovers.
	sender.fail = nil
	if err := store.Resend(context.Background(), key); err != nil {
		t.Fatalf("Resend() error = %v", err)
	}
	if got := store.Messages()[0].Status; got != StatusConfirmed {
		t.Errorf("status after resend = %q, want confirmed", got)
	}

	// Confirmed messages are not resendable.
	if err := store.Resend(context.Background(), key); !errors.Is(err, ErrNotFailed) {
		t.Errorf("Resend() on confirmed = %v, want ErrNotFailed", err)
	}
}

func TestReconcile_IdempotentRedelivery(t *testing.T) {
	store := NewStore(&fakeSender{}, uuid.New(), uuid.New())
	msg := Message{ID: uuid.New(), SenderID: uuid.New(), Content: "hey", Type: "text", Timestamp: time.Now()}

	store.Reconcile(msg)
	store.Reconcile(msg)

	if store.Len() != 1 {
		t.Errorf("redelivered event duplicated the message: len = %d", store.Len())
	}
}

func TestReconcile_FallbackContentCorrelation(t *testing.T) {
	chatID, selfID := uuid.New(), uuid.New()
	// The backend never replies, leaving the optimistic entry pending.
	blocked := make(chan struct{})
	sender := senderFunc(func(ctx context.Context, req SendRequest) (*Message, error) {
		<-blocked
		return nil, context.Canceled
	})
	store := NewStore(sender, chatID, selfID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Send(context.Background(), "hello", "text", "")
	}()

	waitFor(t, func() bool { return store.Len() == 1 })

	// A legacy event without a client key still reconciles by
	// sender+content+type rather than duplicating.
	store.Reconcile(Message{
		ID:        uuid.New(),
		SenderID:  selfID,
		Content:   "hello",
		Type:      "text",
		Timestamp: time.Now(),
	})

	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
	if got := store.Messages()[0].Status; got != StatusConfirmed {
		t.Errorf("status = %q, want confirmed", got)
	}

	close(blocked)
	<-done
}

func TestMergeHistory_SkipsKnownIDs(t *testing.T) {
	store := NewStore(&fakeSender{}, uuid.New(), uuid.New())
	known := Message{ID: uuid.New(), Content: "old", Type: "text", Timestamp: time.Unix(100, 0)}
	store.Reconcile(known)

	store.MergeHistory([]Message{
		known,
		{ID: uuid.New(), Content: "older", Type: "text", Timestamp: time.Unix(50, 0)},
	})

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Content != "older" {
		t.Errorf("history not sorted ascending: first = %q", msgs[0].Content)
	}
}

func TestLocalTimestampsMonotonic(t *testing.T) {
	// Failing sender keeps both messages local so their optimistic
	// timestamps can be inspected. Frozen clock: successive sends must
	// still order by insertion.
	frozen := time.Unix(1000, 0)
	store := NewStore(senderFunc(func(ctx context.Context, req SendRequest) (*Message, error) {
		return nil, errors.New("down")
	}), uuid.New(), uuid.New())
	store.now = func() time.Time { return frozen }
	store.Send(context.Background(), "first", "text", "")
	store.Send(context.Background(), "second", "text", "")

	msgs := store.Messages()
	if !msgs[0].Timestamp.Before(msgs[1].Timestamp) {
		t.Errorf("local timestamps not monotonic: %v vs %v", msgs[0].Timestamp, msgs[1].Timestamp)
	}
	if msgs[0].Content != "first" {
		t.Errorf("order lost: first message is %q", msgs[0].Content)
	}
}

func TestApplyDeleteAndDiscard(t *testing.T) {
	store := NewStore(&fakeSender{fail: errors.New("down")}, uuid.New(), uuid.New())
	key, _ := store.Send(context.Background(), "oops", "text", "")

	confirmed := Message{ID: uuid.New(), Content: "keep", Type: "text", Timestamp: time.Now()}
	store.Reconcile(confirmed)

	store.Discard(key)
	if store.Len() != 1 {
		t.Fatalf("discard failed: len = %d", store.Len())
	}

	store.ApplyDelete(confirmed.ID)
	if store.Len() != 0 {
		t.Errorf("ApplyDelete left %d messages", store.Len())
	}
}

type senderFunc func(ctx context.Context, req SendRequest) (*Message, error)

func (f senderFunc) SendMessage(ctx context.Context, req SendRequest) (*Message, error) {
	return f(ctx, req)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
