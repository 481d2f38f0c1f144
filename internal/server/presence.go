package server

import (
	"sort"
	"sync"
)

// presenceTracker maintains the set of active connections per user. A user
// is online while at least one connection is open, so closing one tab of a
// multi-tab session never flickers the user offline.
type presenceTracker struct {
	mu    sync.Mutex
	conns map[int]map[*Client]struct{}
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{
		conns: make(map[int]map[*Client]struct{}),
	}
}

// connOpened records a connection and reports whether it is the user's
// first, i.e. whether the user just came online.
func (p *presenceTracker) connOpened(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	userConns, ok := p.conns[c.user.Id]
	if !ok {
		userConns = make(map[*Client]struct{})
		p.conns[c.user.Id] = userConns
	}
	userConns[c] = struct{}{}

	return len(userConns) == 1
}

// connClosed removes a connection and reports whether it was the user's
// last, i.e. whether the user just went offline.
func (p *presenceTracker) connClosed(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	userConns, ok := p.conns[c.user.Id]
	if !ok {
		return false
	}

	if _, ok := userConns[c]; !ok {
		return false
	}

	delete(userConns, c)
	if len(userConns) > 0 {
		return false
	}

	delete(p.conns, c.user.Id)
	return true
}

func (p *presenceTracker) isOnline(userId int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.conns[userId]) > 0
}

func (p *presenceTracker) onlineUserIds() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return ids
}
