package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
)

// churn connects and disconnects clients through the hub's event loop.
func churn(hub *Hub, n int) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			c := NewClient(hub, nil, uuid.New())
			hub.register <- c
			hub.unregister <- c
		}
	}()
	return done
}

// waitForEvent drains a client's send buffer until the wanted event type
// shows up. Presence events from churn may arrive first.
func waitForEvent(t *testing.T, c *Client, eventType string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case data := <-c.send:
			var got Event
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if got.Type == eventType {
				return got
			}
		case <-deadline:
			t.Fatalf("no %s event received", eventType)
		}
	}
}

func TestApprovalFanoutDuringConnectChurn(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watcher := NewClient(hub, nil, uuid.New())
	watcher.watchApprovals = true
	hub.register <- watcher
	// The loop processes registrations in order, so once this second one is
	// accepted the watcher is in the client map.
	hub.register <- NewClient(hub, nil, uuid.New())

	evt, err := NewEvent(EventTypeUserPending, nil, PendingUserPayload{
		UserID:   uuid.New(),
		Username: "newcomer",
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	done := churn(hub, 50)
	for i := 0; i < 50; i++ {
		hub.BroadcastToApprovalWatchers(evt)
	}
	<-done

	waitForEvent(t, watcher, EventTypeUserPending)
}

func TestDirectSendDuringConnectChurn(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	target := NewClient(hub, nil, uuid.New())
	hub.register <- target
	hub.register <- NewClient(hub, nil, uuid.New())

	evt, err := NewEvent(EventTypeUserApproved, nil, ApprovalResolvedPayload{
		UserID: target.userID,
		Status: string(domain.ApprovalApproved),
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	done := churn(hub, 50)
	for i := 0; i < 50; i++ {
		hub.BroadcastToUser(target.userID, evt)
	}
	<-done

	got := waitForEvent(t, target, EventTypeUserApproved)
	var payload ApprovalResolvedPayload
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.UserID != target.userID {
		t.Errorf("payload user = %s, want %s", payload.UserID, target.userID)
	}
}

func TestNonWatcherSkipsApprovalFanout(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	bystander := NewClient(hub, nil, uuid.New())
	hub.register <- bystander
	hub.register <- NewClient(hub, nil, uuid.New())

	evt, err := NewEvent(EventTypeUserPending, nil, PendingUserPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	hub.BroadcastToApprovalWatchers(evt)

	// Presence from the second connect may be buffered; none of it may be
	// the approval event.
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case data := <-bystander.send:
			var got Event
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if got.Type == EventTypeUserPending {
				t.Error("non-watcher must not receive approval feed events")
			}
		case <-deadline:
			return
		}
	}
}
