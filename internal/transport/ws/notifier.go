package ws

import (
	"log"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageNew, &msg.ChatID, MessagePayload{Message: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(msg.ChatID, evt, nil)
}

func (n *HubNotifier) NotifyEditedMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageEdited, &msg.ChatID, MessagePayload{Message: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(msg.ChatID, evt, nil)
}

func (n *HubNotifier) NotifyDeletedMessage(chatID, messageID uuid.UUID) {
	evt, err := NewEvent(EventTypeMessageDeleted, &chatID, MessageRefPayload{ID: messageID})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(chatID, evt, nil)
}

func (n *HubNotifier) NotifyRecalledMessage(chatID, messageID uuid.UUID) {
	evt, err := NewEvent(EventTypeMessageRecalled, &chatID, MessageRefPayload{ID: messageID})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(chatID, evt, nil)
}

func (n *HubNotifier) NotifyReaction(chatID uuid.UUID, reaction *domain.Reaction, added bool) {
	eventType := EventTypeReactionAdded
	if !added {
		eventType = EventTypeReactionRemoved
	}
	evt, err := NewEvent(eventType, &chatID, ReactionPayload{Reaction: *reaction})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToChat(chatID, evt, nil)
}

// NotifyApprovalResolved tells the affected user their registration verdict.
func (n *HubNotifier) NotifyApprovalResolved(user *domain.User) {
	eventType := EventTypeUserApproved
	if user.ApprovalStatus == domain.ApprovalRejected {
		eventType = EventTypeUserRejected
	}
	evt, err := NewEvent(eventType, nil, ApprovalResolvedPayload{
		UserID: user.ID,
		Status: string(user.ApprovalStatus),
	})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToUser(user.ID, evt)
}

func (n *HubNotifier) NotifyPendingUser(user *domain.User) {
	evt, err := NewEvent(EventTypeUserPending, nil, PendingUserPayload{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToApprovalWatchers(evt)
}
