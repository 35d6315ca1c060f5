package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Client is an explicit backend handle for the feed: it implements Sender
// over the HTTP API and feeds realtime events into a Store over WebSocket.
// Construct one per session and pass it in; there is no ambient singleton.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// wireMessage mirrors the server's message JSON.
type wireMessage struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	ClientKey *string   `json:"client_key,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Type      string    `json:"type"`
	MediaURL  *string   `json:"media_url,omitempty"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt time.Time `json:"created_at"`
}

func (w wireMessage) toFeed() Message {
	m := Message{
		ID:        w.ID,
		ChatID:    w.ChatID,
		SenderID:  w.SenderID,
		Type:      w.Type,
		IsEdited:  w.IsEdited,
		Status:    StatusConfirmed,
		Timestamp: w.CreatedAt,
	}
	if w.ClientKey != nil {
		m.ClientKey = *w.ClientKey
	}
	if w.Content != nil {
		m.Content = *w.Content
	}
	if w.MediaURL != nil {
		m.MediaURL = *w.MediaURL
	}
	return m
}

type wireError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendMessage implements Sender against the HTTP API.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*Message, error) {
	body, err := json.Marshal(map[string]any{
		"client_key": req.ClientKey,
		"content":    req.Content,
		"type":       req.Type,
		"media_url":  req.MediaURL,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/chats/%s/messages", c.baseURL, req.ChatID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var we wireError
		if err := json.NewDecoder(resp.Body).Decode(&we); err == nil && we.Error.Message != "" {
			return nil, fmt.Errorf("send rejected: %s", we.Error.Message)
		}
		return nil, fmt.Errorf("send rejected: status %d", resp.StatusCode)
	}

	var wm wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&wm); err != nil {
		return nil, fmt.Errorf("decoding send response: %w", err)
	}
	fm := wm.toFeed()
	return &fm, nil
}

// event mirrors the server's WebSocket envelope.
type event struct {
	Type    string          `json:"type"`
	ChatID  *uuid.UUID      `json:"chat_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Listen subscribes to the chat's realtime events and feeds them into the
// store until ctx is cancelled or the connection drops. Each event is safe
// to reapply; redeliveries do not duplicate feed entries.
func (c *Client) Listen(ctx context.Context, chatID uuid.UUID, store *Store) error {
	wsURL := fmt.Sprintf("%s/ws?token=%s", c.baseURL, c.token)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing realtime channel: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub := event{Type: "chat.subscribe"}
	payload, _ := json.Marshal(map[string]uuid.UUID{"chat_id": chatID})
	sub.Payload = payload
	if err := wsjson.Write(ctx, conn, &sub); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}

	for {
		var evt event
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if evt.ChatID != nil && *evt.ChatID != chatID {
			continue
		}

		switch evt.Type {
		case "message.new", "message.edited":
			var wm wireMessage
			if err := json.Unmarshal(evt.Payload, &wm); err != nil {
				continue
			}
			store.Reconcile(wm.toFeed())
		case "message.deleted":
			var p struct {
				ID uuid.UUID `json:"id"`
			}
			if err := json.Unmarshal(evt.Payload, &p); err != nil {
				continue
			}
			store.ApplyDelete(p.ID)
		}
	}
}
