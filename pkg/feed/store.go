package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

var (
	ErrSendInFlight = errors.New("a send for this message is already in flight")
	ErrNotFailed    = errors.New("only failed messages can be resent")
	ErrEditPending  = errors.New("cannot edit a message that is still pending")
)

const clientKeyLength = 21

// Store holds the ordered message list for one chat, merged from
// server-confirmed history and locally-pending operations. All methods are
// safe for concurrent use.
type Store struct {
	sender Sender
	chatID uuid.UUID
	selfID uuid.UUID

	mu        sync.Mutex
	msgs      []Message
	inflight  map[string]struct{}
	lastLocal time.Time

	newKey func() string
	now    func() time.Time
}

// NewStore creates a feed store for one chat. selfID is the local user,
// used for the legacy sender+content correlation fallback.
func NewStore(sender Sender, chatID, selfID uuid.UUID) *Store {
	gen, err := nanoid.Standard(clientKeyLength)
	if err != nil {
		// Standard only rejects out-of-range lengths.
		panic(err)
	}
	return &Store{
		sender:   sender,
		chatID:   chatID,
		selfID:   selfID,
		inflight: make(map[string]struct{}),
		newKey:   gen,
		now:      time.Now,
	}
}

// Send optimistically appends a pending message and issues the backend
// insert. It returns the client key identifying the message locally. The
// call blocks until the backend responds; run it in its own goroutine to
// keep the UI loop free. On failure the message stays in the list marked
// failed and the error is returned for surfacing.
func (s *Store) Send(ctx context.Context, content, msgType, mediaURL string) (string, error) {
	s.mu.Lock()
	key := s.newKey()
	msg := Message{
		ClientKey: key,
		ChatID:    s.chatID,
		SenderID:  s.selfID,
		Content:   content,
		Type:      msgType,
		MediaURL:  mediaURL,
		Status:    StatusPending,
		Timestamp: s.nextLocalTime(),
	}
	s.msgs = append(s.msgs, msg)
	s.inflight[key] = struct{}{}
	s.mu.Unlock()

	return key, s.dispatch(ctx, msg)
}

// Resend retries a failed send, reusing the original client key. Re-entrant
// calls while a send for the same key is outstanding are rejected.
func (s *Store) Resend(ctx context.Context, clientKey string) error {
	s.mu.Lock()
	if _, busy := s.inflight[clientKey]; busy {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	i := s.indexByKey(clientKey)
	if i < 0 || s.msgs[i].Status != StatusFailed {
		s.mu.Unlock()
		return ErrNotFailed
	}
	s.msgs[i].Status = StatusPending
	s.msgs[i].FailReason = ""
	msg := s.msgs[i]
	s.inflight[clientKey] = struct{}{}
	s.mu.Unlock()

	return s.dispatch(ctx, msg)
}

func (s *Store) dispatch(ctx context.Context, msg Message) error {
	confirmed, err := s.sender.SendMessage(ctx, SendRequest{
		ChatID:    msg.ChatID,
		Content:   msg.Content,
		Type:      msg.Type,
		MediaURL:  msg.MediaURL,
		ClientKey: msg.ClientKey,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, msg.ClientKey)

	i := s.indexByKey(msg.ClientKey)
	if i < 0 {
		// Should not happen; the entry is never removed while in flight.
		return err
	}

	if err != nil {
		// The realtime echo may have confirmed the message before the
		// insert call itself returned an error (e.g. response timeout
		// after the row persisted). Keep the confirmation in that case.
		if s.msgs[i].Status == StatusPending {
			s.msgs[i].Status = StatusFailed
			s.msgs[i].FailReason = err.Error()
		}
		return err
	}

	if s.msgs[i].Status == StatusPending {
		confirmedCopy := *confirmed
		confirmedCopy.ClientKey = msg.ClientKey
		confirmedCopy.Status = StatusConfirmed
		s.msgs[i] = confirmedCopy
		s.sortLocked()
	}
	// Otherwise a realtime echo already replaced the pending entry; the
	// insert response is a duplicate and is dropped.
	return nil
}

// Reconcile merges one realtime-delivered message event into the feed. It is
// idempotent: redelivered events update in place rather than duplicating.
// Matching order: exact client key, then server id, then the legacy
// best-effort correlation of a pending message by sender, content and type.
func (s *Store) Reconcile(incoming Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming.Status = StatusConfirmed

	if incoming.ClientKey != "" {
		if i := s.indexByKey(incoming.ClientKey); i >= 0 {
			s.msgs[i] = incoming
			s.sortLocked()
			return
		}
	}
	if incoming.ID != uuid.Nil {
		if i := s.indexByID(incoming.ID); i >= 0 {
			s.msgs[i] = incoming
			s.sortLocked()
			return
		}
	}
	for i := range s.msgs {
		m := &s.msgs[i]
		if m.Status == StatusPending && m.SenderID == incoming.SenderID &&
			m.Content == incoming.Content && m.Type == incoming.Type {
			s.msgs[i] = incoming
			s.sortLocked()
			return
		}
	}

	s.msgs = append(s.msgs, incoming)
	s.sortLocked()
}

// ApplyDelete removes a message after the server confirmed its deletion,
// either via the delete call or the realtime event. Deletion is never
// optimistic.
func (s *Store) ApplyDelete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByID(id); i >= 0 {
		s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
	}
}

// Discard drops a failed message the user chose not to resend. Pending and
// confirmed messages are not discardable locally.
func (s *Store) Discard(clientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByKey(clientKey); i >= 0 && s.msgs[i].Status == StatusFailed {
		s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
	}
}

// Editable reports whether the message may be edited. Pending messages must
// settle before edits are allowed.
func (s *Store) Editable(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByID(id)
	return i >= 0 && s.msgs[i].Status == StatusConfirmed
}

// MergeHistory folds an older page of confirmed messages into the feed,
// skipping ids already present. Used by backward pagination.
func (s *Store) MergeHistory(page []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range page {
		if m.ID != uuid.Nil && s.indexByID(m.ID) >= 0 {
			continue
		}
		m.Status = StatusConfirmed
		s.msgs = append(s.msgs, m)
	}
	s.sortLocked()
}

// Messages returns a snapshot of the feed, sorted by timestamp ascending.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of messages currently in the feed.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// nextLocalTime returns a timestamp strictly after the previous local one,
// so pending messages from this client keep their send order even when the
// wall clock does not advance between sends.
func (s *Store) nextLocalTime() time.Time {
	now := s.now()
	if !now.After(s.lastLocal) {
		now = s.lastLocal.Add(time.Nanosecond)
	}
	s.lastLocal = now
	return now
}

func (s *Store) indexByKey(key string) int {
	for i := range s.msgs {
		if s.msgs[i].ClientKey == key {
			return i
		}
	}
	return -1
}

func (s *Store) indexByID(id uuid.UUID) int {
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.msgs, func(i, j int) bool {
		return s.msgs[i].Timestamp.Before(s.msgs[j].Timestamp)
	})
}
