package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomline/go-messenger/internal/types"
)

func Test_presenceTracker(t *testing.T) {
	t.Run("first and last connection", func(t *testing.T) {
		p := newPresenceTracker()
		c := &Client{user: types.User{Id: 1, Username: "testuser"}}

		assert.False(t, p.isOnline(1), "expected user to be offline initially")

		first := p.connOpened(c)
		assert.True(t, first, "expected first connection to report user coming online")
		assert.True(t, p.isOnline(1), "expected user to be online after opening connection")

		last := p.connClosed(c)
		assert.True(t, last, "expected last connection to report user going offline")
		assert.False(t, p.isOnline(1), "expected user to be offline after closing connection")
	})

	t.Run("multiple connections do not flicker", func(t *testing.T) {
		p := newPresenceTracker()
		user := types.User{Id: 1, Username: "testuser"}
		tab1 := &Client{user: user}
		tab2 := &Client{user: user}

		assert.True(t, p.connOpened(tab1), "expected first connection to be reported as first")
		assert.False(t, p.connOpened(tab2), "expected second connection to not be reported as first")

		assert.False(t, p.connClosed(tab1), "expected user to stay online while another connection is open")
		assert.True(t, p.isOnline(1), "expected user to still be online")

		assert.True(t, p.connClosed(tab2), "expected closing final connection to report user offline")
		assert.False(t, p.isOnline(1), "expected user to be offline after all connections closed")
	})

	t.Run("closing unknown connection is a no-op", func(t *testing.T) {
		p := newPresenceTracker()
		c := &Client{user: types.User{Id: 1}}

		assert.False(t, p.connClosed(c), "expected closing untracked connection to not report offline")
	})

	t.Run("online user ids are sorted", func(t *testing.T) {
		p := newPresenceTracker()
		p.connOpened(&Client{user: types.User{Id: 3}})
		p.connOpened(&Client{user: types.User{Id: 1}})
		p.connOpened(&Client{user: types.User{Id: 2}})

		assert.Equal(t, []int{1, 2, 3}, p.onlineUserIds(), "expected sorted user ids")
	})
}
