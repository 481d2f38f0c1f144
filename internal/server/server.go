package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tomline/go-messenger/internal/database"
	"github.com/tomline/go-messenger/internal/stats"
	"github.com/tomline/go-messenger/internal/types"
)

type unloadRoomRequest struct {
	chatId  string
	deleted bool
}

type stopRequest struct {
	done chan struct{}
}

// ChatServer is the connection registry and room broker. It is constructed
// once and injected into every component that needs to broadcast; there is
// no ambient global state.
type ChatServer struct {
	log      *log.Logger
	db       database.MessengerRepository
	stats    stats.StatsProvider
	presence *presenceTracker

	// requireCodeLanguage rejects CODE messages published without a
	// language tag.
	requireCodeLanguage bool

	clients     map[*Client]struct{}
	userMap     map[int]map[*Client]struct{}
	clientsLock sync.Mutex

	rooms     map[string]*Room
	roomsLock sync.RWMutex

	joinChan       chan *ClientMessage
	broadcastChan  chan *ServerMessage
	unloadRoomChan chan unloadRoomRequest
	stop           chan stopRequest
}

func NewChatServer(logger *log.Logger, db database.MessengerRepository, su stats.StatsProvider, requireCodeLanguage bool) (*ChatServer, error) {
	cs := &ChatServer{
		log:                 logger,
		db:                  db,
		stats:               su,
		presence:            newPresenceTracker(),
		requireCodeLanguage: requireCodeLanguage,
		clients:             make(map[*Client]struct{}),
		userMap:             make(map[int]map[*Client]struct{}),
		rooms:               make(map[string]*Room),
		joinChan:            make(chan *ClientMessage, 256),
		broadcastChan:       make(chan *ServerMessage, 512),
		unloadRoomChan:      make(chan unloadRoomRequest, 64),
		stop:                make(chan stopRequest),
	}

	for _, metric := range []string{
		"NumActiveClients",
		"NumActiveRooms",
		"NumOnlineUsers",
		"NumMessagesPublished",
	} {
		su.RegisterMetric(metric)
	}

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			cs.handleJoinRoom(joinMsg)
		case msg := <-cs.broadcastChan:
			cs.handleBroadcast(msg)
		case req := <-cs.unloadRoomChan:
			cs.unloadRoom(req.chatId, req.deleted)
		case req := <-cs.stop:
			cs.log.Println("shutting down rooms")
			cs.unloadAllRooms()
			close(req.done)
			return
		}
	}
}

// RegisterClient attaches an authenticated connection: it is tracked for
// identity-addressed delivery, presence is updated, and the client receives
// a snapshot of who is currently online. An online event is broadcast only
// for the user's first connection.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.addClient(c)

	first := cs.presence.connOpened(c)

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			OnlineUsers: &OnlineUsers{UserIds: cs.presence.onlineUserIds()},
		},
	})

	if first {
		cs.stats.Incr("NumOnlineUsers")
		cs.broadcastToAll(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				Presence: &Presence{
					UserId:   c.user.Id,
					Username: c.user.Username,
					Online:   true,
				},
			},
			SkipClient: c,
		})
	}
}

// DeRegisterClient detaches a connection. An offline event is broadcast
// only when the user's last connection closes; the last-seen persistence
// write is best-effort and never blocks the disconnect path.
func (cs *ChatServer) DeRegisterClient(c *Client) {
	cs.removeClient(c)

	last := cs.presence.connClosed(c)
	if !last {
		return
	}

	cs.stats.Decr("NumOnlineUsers")

	lastSeen := Now()
	if err := cs.db.UpdateLastSeen(c.user.Id, lastSeen); err != nil {
		cs.log.Println("UpdateLastSeen:", err)
	}

	cs.broadcastToAll(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: lastSeen},
		Notification: &Notification{
			Presence: &Presence{
				UserId:   c.user.Id,
				Username: c.user.Username,
				Online:   false,
				LastSeen: &lastSeen,
			},
		},
		SkipClient: c,
	})
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	cs.clients[c] = struct{}{}
	if cs.userMap[c.user.Id] == nil {
		cs.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	cs.userMap[c.user.Id][c] = struct{}{}

	cs.stats.Incr("NumActiveClients")
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; !ok {
		return
	}

	delete(cs.clients, c)
	if userClients, ok := cs.userMap[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(cs.userMap, c.user.Id)
		}
	}

	cs.stats.Decr("NumActiveClients")
}

func (cs *ChatServer) getClients(userId int) []*Client {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	clients := make([]*Client, 0, len(cs.userMap[userId]))
	for c := range cs.userMap[userId] {
		clients = append(clients, c)
	}

	return clients
}

// handleBroadcast delivers an event either to every connection of the
// addressed user, or to all connections when no user is addressed.
func (cs *ChatServer) handleBroadcast(msg *ServerMessage) {
	if msg.UserId != 0 {
		for _, c := range cs.getClients(msg.UserId) {
			if c == msg.SkipClient {
				continue
			}
			c.queueMessage(msg)
		}
		return
	}

	cs.broadcastToAll(msg)
}

func (cs *ChatServer) broadcastToAll(msg *ServerMessage) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	for c := range cs.clients {
		if c == msg.SkipClient {
			continue
		}
		c.queueMessage(msg)
	}
}

// NotifyMembershipChange tells the affected user's devices that they were
// added to or removed from a chat, so open clients can refresh their chat
// list without polling.
func (cs *ChatServer) NotifyMembershipChange(chatId string, member types.Member, added bool) {
	cs.queueUserEvent(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		UserId:      member.UserId,
		Notification: &Notification{
			MembershipChange: &MembershipChange{
				ChatId:   chatId,
				UserId:   member.UserId,
				Username: member.Username,
				Role:     member.Role,
				Added:    added,
			},
		},
	})
}

// EvictFromRoom detaches all of a user's connections from a chat's live
// room after their membership is revoked. A chat with no live room needs
// nothing; rejoining is gated by the membership check.
func (cs *ChatServer) EvictFromRoom(chatId string, userId int) {
	room, ok := cs.getRoom(chatId)
	if !ok {
		return
	}

	select {
	case room.evictChan <- userId:
	default:
		cs.log.Printf("evict channel full on room %q", room.externalId)
	}
}

// queueUserEvent enqueues an identity-addressed event for the hub loop.
func (cs *ChatServer) queueUserEvent(msg *ServerMessage) {
	select {
	case cs.broadcastChan <- msg:
	default:
		cs.log.Println("broadcast channel full, dropping user event")
	}
}

func (cs *ChatServer) handleJoinRoom(joinMsg *ClientMessage) {
	if room, ok := cs.getRoom(joinMsg.Join.ChatId); ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			cs.log.Printf("join channel full on room %q", room.externalId)
			joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
		}
		return
	}

	dbChat, err := cs.db.GetChatByExternalId(joinMsg.Join.ChatId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			joinMsg.client.queueMessage(ErrChatNotFound(joinMsg.Id))
		} else {
			cs.log.Println("GetChatByExternalId:", err)
			joinMsg.client.queueMessage(ErrInternalError(joinMsg.Id))
		}
		return
	}

	room := newRoom(cs, dbChat)
	cs.addRoom(room.externalId, room)
	go room.start()

	room.joinChan <- joinMsg
}

func (cs *ChatServer) addRoom(chatId string, r *Room) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	cs.rooms[chatId] = r
	cs.stats.Incr("NumActiveRooms")
}

func (cs *ChatServer) getRoom(chatId string) (*Room, bool) {
	cs.roomsLock.RLock()
	defer cs.roomsLock.RUnlock()

	r, ok := cs.rooms[chatId]
	return r, ok
}

func (cs *ChatServer) removeRoom(chatId string) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	if _, ok := cs.rooms[chatId]; ok {
		delete(cs.rooms, chatId)
		cs.stats.Decr("NumActiveRooms")
	}
}

// UnloadRoom requests that a chat's live room shut down, e.g. after the
// chat is deleted. Safe to call from any goroutine.
func (cs *ChatServer) UnloadRoom(ctx context.Context, chatId string, deleted bool) error {
	if chatId == "" {
		return fmt.Errorf("chatId cannot be empty")
	}

	select {
	case cs.unloadRoomChan <- unloadRoomRequest{chatId: chatId, deleted: deleted}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) unloadRoom(chatId string, deleted bool) {
	r, ok := cs.getRoom(chatId)
	if !ok {
		return
	}

	cs.removeRoom(chatId)

	done := make(chan string, 1)
	r.exit <- exitReq{deleted: deleted, done: done}
	<-done
}

func (cs *ChatServer) unloadAllRooms() {
	cs.roomsLock.RLock()
	chatIds := make([]string, 0, len(cs.rooms))
	for id := range cs.rooms {
		chatIds = append(chatIds, id)
	}
	cs.roomsLock.RUnlock()

	for _, id := range chatIds {
		cs.unloadRoom(id, false)
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	done := make(chan struct{})
	select {
	case cs.stop <- stopRequest{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
