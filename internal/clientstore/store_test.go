package clientstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tomline/go-messenger/internal/types"
)

func TestUpsertMessage(t *testing.T) {
	t.Run("insert then overwrite is idempotent", func(t *testing.T) {
		s := NewStore()

		msg := types.Message{Id: 1, ChatId: "chat1", Content: "hello", Status: types.StatusSent}
		s.UpsertMessage(msg)
		s.UpsertMessage(msg)

		msgs := s.Messages("chat1")
		assert.Len(t, msgs, 1, "expected duplicate upserts to converge to one message")
		assert.Equal(t, "hello", msgs[0].Content, "expected content to match")
	})

	t.Run("status does not regress on merge", func(t *testing.T) {
		s := NewStore()

		s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1", Content: "hello", Status: types.StatusRead})
		s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1", Content: "hello edited", Status: types.StatusSent})

		msgs := s.Messages("chat1")
		assert.Len(t, msgs, 1, "expected one message")
		assert.Equal(t, "hello edited", msgs[0].Content, "expected newer content to win")
		assert.Equal(t, types.StatusRead, msgs[0].Status, "expected status to not regress from READ")
	})

	t.Run("messages ordered by id", func(t *testing.T) {
		s := NewStore()

		s.UpsertMessage(types.Message{Id: 3, ChatId: "chat1"})
		s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1"})
		s.UpsertMessage(types.Message{Id: 2, ChatId: "chat1"})

		msgs := s.Messages("chat1")
		assert.Equal(t, []int{1, 2, 3}, []int{msgs[0].Id, msgs[1].Id, msgs[2].Id}, "expected messages sorted by id")
	})
}

func TestApplyHistory(t *testing.T) {
	s := NewStore()

	// Live event arrives before the history page containing the same message.
	s.UpsertMessage(types.Message{Id: 2, ChatId: "chat1", Content: "live", Status: types.StatusRead})

	s.ApplyHistory([]types.Message{
		{Id: 1, ChatId: "chat1", Content: "first", Status: types.StatusRead},
		{Id: 2, ChatId: "chat1", Content: "live", Status: types.StatusSent},
	})

	msgs := s.Messages("chat1")
	assert.Len(t, msgs, 2, "expected overlapping page to merge without duplicates")
	assert.Equal(t, types.StatusRead, msgs[1].Status, "expected live status to survive history merge")
}

func TestUpdateStatus(t *testing.T) {
	tcases := []struct {
		name     string
		initial  types.DeliveryStatus
		update   types.DeliveryStatus
		expected types.DeliveryStatus
	}{
		{
			name:     "sent to delivered",
			initial:  types.StatusSent,
			update:   types.StatusDelivered,
			expected: types.StatusDelivered,
		},
		{
			name:     "sent to read",
			initial:  types.StatusSent,
			update:   types.StatusRead,
			expected: types.StatusRead,
		},
		{
			name:     "read does not regress to delivered",
			initial:  types.StatusRead,
			update:   types.StatusDelivered,
			expected: types.StatusRead,
		},
		{
			name:     "delivered ignores duplicate delivered",
			initial:  types.StatusDelivered,
			update:   types.StatusDelivered,
			expected: types.StatusDelivered,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1", Status: tc.initial})

			s.UpdateStatus("chat1", 1, tc.update)

			msgs := s.Messages("chat1")
			assert.Equal(t, tc.expected, msgs[0].Status, "expected status %s", tc.expected)
		})
	}

	t.Run("unknown message is dropped", func(t *testing.T) {
		s := NewStore()
		s.UpdateStatus("chat1", 99, types.StatusRead)
		assert.Len(t, s.Messages("chat1"), 0, "expected no message to be created by a status update")
	})
}

func TestPendingLifecycle(t *testing.T) {
	t.Run("resolve swaps optimistic message for persisted one", func(t *testing.T) {
		s := NewStore()

		optimistic := types.Message{ChatId: "chat1", Content: "hello"}
		s.AddPending(7, optimistic)

		_, ok := s.Pending(7)
		assert.True(t, ok, "expected pending message to be tracked")

		persisted := types.Message{Id: 42, ChatId: "chat1", Content: "hello", Status: types.StatusSent}
		s.ResolvePending(7, persisted)

		_, ok = s.Pending(7)
		assert.False(t, ok, "expected pending entry to be removed after resolution")

		msgs := s.Messages("chat1")
		assert.Len(t, msgs, 1, "expected persisted message in store")
		assert.Equal(t, 42, msgs[0].Id, "expected server-assigned id")
	})

	t.Run("failed send leaves no artifact", func(t *testing.T) {
		s := NewStore()

		s.AddPending(7, types.Message{ChatId: "chat1", Content: "hello"})
		s.FailPending(7)

		_, ok := s.Pending(7)
		assert.False(t, ok, "expected pending entry to be removed after failure")
		assert.Len(t, s.Messages("chat1"), 0, "expected no message in store after failed send")
	})
}

func TestApplyEdit(t *testing.T) {
	s := NewStore()
	s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1", Content: "old"})

	editedAt := time.Now()
	s.ApplyEdit("chat1", 1, "new", editedAt)

	msgs := s.Messages("chat1")
	assert.Equal(t, "new", msgs[0].Content, "expected edited content")
	assert.NotNil(t, msgs[0].EditedAt, "expected edited timestamp to be set")
}

func TestApplyDelete(t *testing.T) {
	s := NewStore()
	s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1", Content: "secret"})

	s.ApplyDelete("chat1", 1)

	msgs := s.Messages("chat1")
	assert.True(t, msgs[0].Deleted, "expected message to be marked deleted")
	assert.Empty(t, msgs[0].Content, "expected content to be cleared on delete")
}

func TestApplyReaction(t *testing.T) {
	s := NewStore()
	s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1", Content: "hello"})

	s.ApplyReaction("chat1", types.Reaction{MessageId: 1, UserId: 2, Reaction: "👍"})
	s.ApplyReaction("chat1", types.Reaction{MessageId: 1, UserId: 3, Reaction: "❤️"})

	msgs := s.Messages("chat1")
	assert.Len(t, msgs[0].Reactions, 2, "expected one reaction per user")

	// A second reaction from the same user replaces the first.
	s.ApplyReaction("chat1", types.Reaction{MessageId: 1, UserId: 2, Reaction: "😂"})
	msgs = s.Messages("chat1")
	assert.Len(t, msgs[0].Reactions, 2, "expected replacement rather than accumulation")

	var found string
	for _, r := range msgs[0].Reactions {
		if r.UserId == 2 {
			found = r.Reaction
		}
	}
	assert.Equal(t, "😂", found, "expected latest reaction from user to win")
}

func TestTyping(t *testing.T) {
	t.Run("entries expire after ttl", func(t *testing.T) {
		s := NewStore()
		now := time.Now()
		s.now = func() time.Time { return now }

		s.SetTyping("chat1", 2, "peer", true)
		assert.Equal(t, []string{"peer"}, s.TypingUsers("chat1"), "expected typing user to be visible")

		s.now = func() time.Time { return now.Add(2 * typingTTL) }
		assert.Empty(t, s.TypingUsers("chat1"), "expected typing entry to expire after TTL")
	})

	t.Run("explicit stop clears immediately", func(t *testing.T) {
		s := NewStore()

		s.SetTyping("chat1", 2, "peer", true)
		s.SetTyping("chat1", 2, "peer", false)
		assert.Empty(t, s.TypingUsers("chat1"), "expected stop event to clear typing entry")
	})

	t.Run("refresh extends the ttl", func(t *testing.T) {
		s := NewStore()
		now := time.Now()
		s.now = func() time.Time { return now }

		s.SetTyping("chat1", 2, "peer", true)

		s.now = func() time.Time { return now.Add(typingTTL / 2) }
		s.SetTyping("chat1", 2, "peer", true)

		s.now = func() time.Time { return now.Add(typingTTL + typingTTL/4) }
		assert.Equal(t, []string{"peer"}, s.TypingUsers("chat1"), "expected refreshed entry to still be visible")
	})
}

func TestPresence(t *testing.T) {
	s := NewStore()

	s.SetOnlineUsers([]int{1, 2})
	assert.True(t, s.IsOnline(1), "expected user 1 online from snapshot")
	assert.True(t, s.IsOnline(2), "expected user 2 online from snapshot")
	assert.False(t, s.IsOnline(3), "expected user 3 offline")

	s.SetPresence(3, true)
	assert.True(t, s.IsOnline(3), "expected user 3 online after presence event")

	s.SetPresence(1, false)
	assert.False(t, s.IsOnline(1), "expected user 1 offline after presence event")

	// A fresh snapshot replaces accumulated state.
	s.SetOnlineUsers([]int{5})
	assert.False(t, s.IsOnline(2), "expected snapshot to replace presence set")
	assert.True(t, s.IsOnline(5), "expected snapshot user online")
}

func TestRemoveChat(t *testing.T) {
	s := NewStore()

	s.UpsertChat(types.Chat{ExternalId: "chat1", Type: types.ChatTypeDirect})
	s.UpsertMessage(types.Message{Id: 1, ChatId: "chat1"})
	s.SetTyping("chat1", 2, "peer", true)

	s.RemoveChat("chat1")

	_, ok := s.Chat("chat1")
	assert.False(t, ok, "expected chat to be removed")
	assert.Empty(t, s.Messages("chat1"), "expected chat messages to be removed")
	assert.Empty(t, s.TypingUsers("chat1"), "expected typing entries to be removed")
}
