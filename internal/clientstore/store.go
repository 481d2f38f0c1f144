// Package clientstore holds the client-side view of chats, messages and
// presence. Every server event is applied through idempotent upserts keyed
// by server-assigned ids, so duplicate frames from multiple connections of
// the same user converge to one state.
package clientstore

import (
	"sort"
	"sync"
	"time"

	"github.com/tomline/go-messenger/internal/types"
)

// typingTTL is how long a typing indicator stays visible without a refresh.
const typingTTL = time.Second

type typingEntry struct {
	username  string
	expiresAt time.Time
}

// Store is the reconciliation state for one client process. All methods are
// safe for concurrent use; reads from a render loop may interleave with
// writes from the connection's read pump.
type Store struct {
	mu sync.Mutex

	chats    map[string]types.Chat
	messages map[string]map[int]types.Message
	// pending holds optimistic sends keyed by a client-local id until the
	// server acks with the persisted message.
	pending map[int]types.Message
	typing  map[string]map[int]typingEntry
	online  map[int]struct{}

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		chats:    make(map[string]types.Chat),
		messages: make(map[string]map[int]types.Message),
		pending:  make(map[int]types.Message),
		typing:   make(map[string]map[int]typingEntry),
		online:   make(map[int]struct{}),
		now:      time.Now,
	}
}

// UpsertChat inserts or replaces a chat by external id.
func (s *Store) UpsertChat(chat types.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[chat.ExternalId] = chat
}

func (s *Store) Chat(chatId string) (types.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatId]
	return chat, ok
}

func (s *Store) RemoveChat(chatId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chats, chatId)
	delete(s.messages, chatId)
	delete(s.typing, chatId)
}

// UpsertMessage merges a message into the store: an unknown id inserts, a
// known id overwrites. The delivery status never regresses during a merge,
// so a stale duplicate cannot undo a READ.
func (s *Store) UpsertMessage(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(msg)
}

func (s *Store) upsertLocked(msg types.Message) {
	chatMsgs, ok := s.messages[msg.ChatId]
	if !ok {
		chatMsgs = make(map[int]types.Message)
		s.messages[msg.ChatId] = chatMsgs
	}

	if existing, ok := chatMsgs[msg.Id]; ok {
		if existing.Status.Rank() > msg.Status.Rank() {
			msg.Status = existing.Status
		}
	}

	chatMsgs[msg.Id] = msg
}

// ApplyHistory merges a fetched history page through the same upsert path
// used for live events, so replaying overlapping pages is harmless.
func (s *Store) ApplyHistory(msgs []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range msgs {
		s.upsertLocked(msg)
	}
}

// Messages returns the chat's messages ordered by id.
func (s *Store) Messages(chatId string) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatMsgs := s.messages[chatId]
	out := make([]types.Message, 0, len(chatMsgs))
	for _, msg := range chatMsgs {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })

	return out
}

// UpdateStatus advances a message's delivery status. Regressions are
// ignored; updates for unknown messages are dropped.
func (s *Store) UpdateStatus(chatId string, messageId int, status types.DeliveryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatMsgs, ok := s.messages[chatId]
	if !ok {
		return
	}

	msg, ok := chatMsgs[messageId]
	if !ok {
		return
	}

	if status.Rank() > msg.Status.Rank() {
		msg.Status = status
		chatMsgs[messageId] = msg
	}
}

// ApplyEdit replaces a message's content in place.
func (s *Store) ApplyEdit(chatId string, messageId int, content string, editedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatMsgs, ok := s.messages[chatId]
	if !ok {
		return
	}

	msg, ok := chatMsgs[messageId]
	if !ok {
		return
	}

	msg.Content = content
	msg.EditedAt = &editedAt
	chatMsgs[messageId] = msg
}

// ApplyDelete marks a message deleted, keeping a tombstone in place of the
// content.
func (s *Store) ApplyDelete(chatId string, messageId int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatMsgs, ok := s.messages[chatId]
	if !ok {
		return
	}

	msg, ok := chatMsgs[messageId]
	if !ok {
		return
	}

	msg.Deleted = true
	msg.Content = ""
	chatMsgs[messageId] = msg
}

// ApplyReaction records a user's reaction on a message, replacing any
// earlier reaction from the same user.
func (s *Store) ApplyReaction(chatId string, reaction types.Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatMsgs, ok := s.messages[chatId]
	if !ok {
		return
	}

	msg, ok := chatMsgs[reaction.MessageId]
	if !ok {
		return
	}

	replaced := false
	for i, r := range msg.Reactions {
		if r.UserId == reaction.UserId {
			msg.Reactions[i] = reaction
			replaced = true
			break
		}
	}
	if !replaced {
		msg.Reactions = append(msg.Reactions, reaction)
	}

	chatMsgs[reaction.MessageId] = msg
}

// AddPending records an optimistic send under a client-local id before the
// server has acknowledged it.
func (s *Store) AddPending(localId int, msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[localId] = msg
}

// ResolvePending swaps an optimistic send for the server's persisted
// message.
func (s *Store) ResolvePending(localId int, msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, localId)
	s.upsertLocked(msg)
}

// FailPending discards an optimistic send the server rejected.
func (s *Store) FailPending(localId int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, localId)
}

func (s *Store) Pending(localId int) (types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.pending[localId]
	return msg, ok
}

// SetTyping records that a user is typing in a chat. The entry expires on
// its own; a stop event clears it immediately.
func (s *Store) SetTyping(chatId string, userId int, username string, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !isTyping {
		delete(s.typing[chatId], userId)
		return
	}

	entries, ok := s.typing[chatId]
	if !ok {
		entries = make(map[int]typingEntry)
		s.typing[chatId] = entries
	}

	entries[userId] = typingEntry{
		username:  username,
		expiresAt: s.now().Add(typingTTL),
	}
}

// TypingUsers returns the usernames currently typing in a chat, dropping
// entries whose TTL has lapsed.
func (s *Store) TypingUsers(chatId string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	names := make([]string, 0)
	for userId, entry := range s.typing[chatId] {
		if now.After(entry.expiresAt) {
			delete(s.typing[chatId], userId)
			continue
		}
		names = append(names, entry.username)
	}
	sort.Strings(names)

	return names
}

// SetOnlineUsers replaces the presence set from a server snapshot.
func (s *Store) SetOnlineUsers(userIds []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.online = make(map[int]struct{}, len(userIds))
	for _, id := range userIds {
		s.online[id] = struct{}{}
	}
}

// SetPresence applies a single presence event.
func (s *Store) SetPresence(userId int, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if online {
		s.online[userId] = struct{}{}
	} else {
		delete(s.online, userId)
	}
}

func (s *Store) IsOnline(userId int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.online[userId]
	return ok
}
