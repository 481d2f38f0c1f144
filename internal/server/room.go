package server

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tomline/go-messenger/internal/database"
	"github.com/tomline/go-messenger/internal/types"
)

// idleRoomTimeout is how long a room with no connected clients stays loaded
// before it asks the hub to unload it.
const idleRoomTimeout = 5 * time.Second

type exitReq struct {
	deleted bool
	done    chan string
}

// Room is the live fanout unit for one chat. All room state is owned by the
// start goroutine; clients talk to it exclusively through channels.
type Room struct {
	id         int
	externalId string
	chatType   types.ChatType

	cs *ChatServer

	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	evictChan     chan int

	clients    map[*Client]struct{}
	userMap    map[int]map[*Client]struct{}
	clientLock sync.RWMutex

	log       *log.Logger
	killTimer *time.Timer
	exit      chan exitReq
}

func newRoom(cs *ChatServer, dbChat database.Chat) *Room {
	return &Room{
		id:            dbChat.Id,
		externalId:    dbChat.ExternalId,
		chatType:      types.ChatType(dbChat.Type),
		cs:            cs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		evictChan:     make(chan int, 64),
		clients:       make(map[*Client]struct{}),
		userMap:       make(map[int]map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
	}
}

func (r *Room) start() {
	r.killTimer = time.NewTimer(idleRoomTimeout)
	if !r.killTimer.Stop() {
		<-r.killTimer.C
	}

	for {
		select {
		case joinMsg := <-r.joinChan:
			r.handleJoin(joinMsg)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case userId := <-r.evictChan:
			r.handleEvict(userId)
		case msg := <-r.clientMsgChan:
			switch {
			case msg.Publish != nil:
				r.handlePublish(msg)
			case msg.Typing != nil:
				r.handleTyping(msg)
			case msg.React != nil:
				r.handleReact(msg)
			case msg.Read != nil:
				r.handleRead(msg)
			case msg.Edit != nil:
				r.handleEdit(msg)
			case msg.Delete != nil:
				r.handleDelete(msg)
			}
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleJoin(msg *ClientMessage) {
	r.killTimer.Stop()

	if !r.cs.db.MembershipExists(msg.GetUserId(), r.id) {
		msg.client.queueMessage(ErrForbidden(msg.Id))
		if r.numClients() == 0 {
			r.killTimer.Reset(idleRoomTimeout)
		}
		return
	}

	dbChat, err := r.cs.db.GetChatWithMembers(r.id)
	if err != nil {
		r.log.Println("GetChatWithMembers:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		if r.numClients() == 0 {
			r.killTimer.Reset(idleRoomTimeout)
		}
		return
	}

	r.addClient(msg.client)
	msg.client.addRoom(r)

	members := make([]types.Member, 0, len(dbChat.Members))
	for _, m := range dbChat.Members {
		members = append(members, types.Member{
			UserId:   m.UserId,
			Username: m.Username,
			Role:     types.Role(m.Role),
		})
	}

	msg.client.queueMessage(NoErrOK(msg.Id, types.Chat{
		Id:            dbChat.Id,
		ExternalId:    dbChat.ExternalId,
		Type:          types.ChatType(dbChat.Type),
		Name:          dbChat.Name,
		OwnerId:       dbChat.OwnerId,
		Members:       members,
		LastMessageAt: dbChat.LastMessageAt,
		CreatedAt:     dbChat.CreatedAt,
	}))
}

func (r *Room) handleLeave(msg *ClientMessage) {
	r.removeClient(msg.client)
	msg.client.delRoom(r.externalId)

	if msg.Leave != nil && msg.Id > 0 {
		msg.client.queueMessage(NoErrOK(msg.Id, nil))
	}
}

func (r *Room) handlePublish(msg *ClientMessage) {
	pub := msg.Publish
	userId := msg.GetUserId()

	if !r.cs.db.MembershipExists(userId, r.id) {
		msg.client.queueMessage(ErrForbidden(msg.Id))
		return
	}

	msgType := pub.Type
	if msgType == "" {
		msgType = types.MessageTypeText
	}

	if msgType.RequiresContent() && strings.TrimSpace(pub.Content) == "" {
		msg.client.queueMessage(ErrValidation(msg.Id, "content cannot be empty"))
		return
	}

	if msgType == types.MessageTypeCode && pub.Language == "" && r.cs.requireCodeLanguage {
		msg.client.queueMessage(ErrValidation(msg.Id, "code messages require a language"))
		return
	}

	var replyTo *types.MessagePreview
	if pub.ReplyToId > 0 {
		orig, err := r.cs.db.GetMessageById(pub.ReplyToId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				msg.client.queueMessage(ErrMessageNotFound(msg.Id))
			} else {
				r.log.Println("GetMessageById:", err)
				msg.client.queueMessage(ErrInternalError(msg.Id))
			}
			return
		}
		if orig.ChatId != r.id {
			msg.client.queueMessage(ErrValidation(msg.Id, "replied-to message belongs to another chat"))
			return
		}
		replyTo = &types.MessagePreview{
			Id:       orig.Id,
			UserId:   orig.UserId,
			Username: orig.SenderUsername,
			Content:  orig.Content,
		}
	}

	saved, err := r.cs.db.CreateMessage(database.CreateMessageParams{
		ChatId:    r.id,
		UserId:    userId,
		Content:   pub.Content,
		Type:      string(msgType),
		Language:  pub.Language,
		Filename:  pub.Filename,
		ReplyToId: pub.ReplyToId,
		CreatedAt: msg.Timestamp,
	})
	if err != nil {
		r.log.Println("CreateMessage:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	out := &types.Message{
		Id:        saved.Id,
		ChatId:    r.externalId,
		UserId:    saved.UserId,
		Username:  msg.client.user.Username,
		Content:   saved.Content,
		Type:      types.MessageType(saved.Type),
		Language:  saved.Language,
		Filename:  saved.Filename,
		ReplyTo:   replyTo,
		Status:    types.StatusSent,
		Timestamp: saved.CreatedAt,
	}

	msg.client.queueMessage(NoErrOK(msg.Id, out))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: saved.CreatedAt},
		Message:     out,
	})

	r.cs.stats.Incr("NumMessagesPublished")

	r.markDelivered(saved.Id, userId)
}

// markDelivered advances receipts to DELIVERED for every recipient with a
// connection in the room at broadcast time, then routes a status event back
// to the sender's devices for each receipt that actually transitioned.
func (r *Room) markDelivered(messageId, senderId int) {
	r.clientLock.RLock()
	recipients := make([]int, 0, len(r.userMap))
	for userId := range r.userMap {
		if userId != senderId {
			recipients = append(recipients, userId)
		}
	}
	r.clientLock.RUnlock()

	if len(recipients) == 0 {
		return
	}

	updates, err := r.cs.db.MarkDelivered(messageId, recipients)
	if err != nil {
		r.log.Println("MarkDelivered:", err)
		return
	}

	for _, u := range updates {
		r.cs.queueUserEvent(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			UserId:      u.SenderId,
			Notification: &Notification{
				Status: &StatusNotification{
					ChatId:    r.externalId,
					MessageId: u.MessageId,
					Status:    types.StatusDelivered,
				},
			},
		})
	}
}

func (r *Room) handleRead(msg *ClientMessage) {
	updates, err := r.cs.db.MarkMessagesRead(r.id, msg.GetUserId(), msg.Read.MessageIds)
	if err != nil {
		r.log.Println("MarkMessagesRead:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	for _, u := range updates {
		r.cs.queueUserEvent(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			UserId:      u.SenderId,
			Notification: &Notification{
				Status: &StatusNotification{
					ChatId:    r.externalId,
					MessageId: u.MessageId,
					Status:    types.StatusRead,
				},
			},
		})
	}
}

// handleTyping relays the indicator to the other participants. Nothing is
// persisted; receivers expire stale indicators on their own.
func (r *Room) handleTyping(msg *ClientMessage) {
	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: msg.Timestamp},
		Notification: &Notification{
			Typing: &TypingNotification{
				ChatId:   r.externalId,
				UserId:   msg.GetUserId(),
				Username: msg.client.user.Username,
				IsTyping: msg.Typing.IsTyping,
			},
		},
		SkipClient: msg.client,
	})
}

func (r *Room) handleReact(msg *ClientMessage) {
	orig, err := r.cs.db.GetMessageById(msg.React.MessageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(ErrMessageNotFound(msg.Id))
		} else {
			r.log.Println("GetMessageById:", err)
			msg.client.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	if orig.ChatId != r.id {
		msg.client.queueMessage(ErrMessageNotFound(msg.Id))
		return
	}

	saved, err := r.cs.db.UpsertReaction(orig.Id, msg.GetUserId(), msg.React.Reaction)
	if err != nil {
		r.log.Println("UpsertReaction:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: saved.CreatedAt},
		Notification: &Notification{
			Reaction: &ReactionNotification{
				ChatId:    r.externalId,
				MessageId: saved.MessageId,
				UserId:    saved.UserId,
				Username:  msg.client.user.Username,
				Reaction:  saved.Reaction,
			},
		},
	})
}

func (r *Room) handleEdit(msg *ClientMessage) {
	orig, err := r.cs.db.GetMessageById(msg.Edit.MessageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(ErrMessageNotFound(msg.Id))
		} else {
			r.log.Println("GetMessageById:", err)
			msg.client.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	if orig.ChatId != r.id {
		msg.client.queueMessage(ErrMessageNotFound(msg.Id))
		return
	}

	if orig.UserId != msg.GetUserId() {
		msg.client.queueMessage(ErrForbidden(msg.Id))
		return
	}

	if strings.TrimSpace(msg.Edit.Content) == "" {
		msg.client.queueMessage(ErrValidation(msg.Id, "content cannot be empty"))
		return
	}

	editedAt := Now()
	updated, err := r.cs.db.UpdateMessageContent(orig.Id, msg.Edit.Content, editedAt)
	if err != nil {
		r.log.Println("UpdateMessageContent:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: editedAt},
		Notification: &Notification{
			MessageEdited: &MessageEdited{
				ChatId:    r.externalId,
				MessageId: updated.Id,
				Content:   updated.Content,
				EditedAt:  editedAt,
			},
		},
	})
}

func (r *Room) handleDelete(msg *ClientMessage) {
	userId := msg.GetUserId()

	orig, err := r.cs.db.GetMessageById(msg.Delete.MessageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(ErrMessageNotFound(msg.Id))
		} else {
			r.log.Println("GetMessageById:", err)
			msg.client.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	if orig.ChatId != r.id {
		msg.client.queueMessage(ErrMessageNotFound(msg.Id))
		return
	}

	if !msg.Delete.ForEveryone {
		// Delete for me only hides the message for the requester; the other
		// participants are not notified.
		if err := r.cs.db.DeleteMessageForUser(orig.Id, userId); err != nil {
			r.log.Println("DeleteMessageForUser:", err)
			msg.client.queueMessage(ErrInternalError(msg.Id))
			return
		}

		msg.client.queueMessage(NoErrOK(msg.Id, nil))
		return
	}

	if orig.UserId != userId {
		membership, err := r.cs.db.GetMembership(userId, r.id)
		if err != nil {
			r.log.Println("GetMembership:", err)
			msg.client.queueMessage(ErrForbidden(msg.Id))
			return
		}
		if !types.Role(membership.Role).CanDeleteForEveryone() {
			msg.client.queueMessage(ErrForbidden(msg.Id))
			return
		}
	}

	if err := r.cs.db.DeleteMessageForAll(orig.Id); err != nil {
		r.log.Println("DeleteMessageForAll:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			MessageDeleted: &MessageDeleted{
				ChatId:    r.externalId,
				MessageId: orig.Id,
			},
		},
	})
}

// handleEvict detaches every connection the user has in this room.
// Membership is checked on join and publish, but a member removed
// mid-session would otherwise keep receiving broadcasts until disconnect.
func (r *Room) handleEvict(userId int) {
	r.clientLock.RLock()
	clients := make([]*Client, 0, len(r.userMap[userId]))
	for c := range r.userMap[userId] {
		clients = append(clients, c)
	}
	r.clientLock.RUnlock()

	for _, c := range clients {
		r.removeClient(c)
		c.delRoom(r.externalId)
	}
}

func (r *Room) handleRoomTimeout() {
	select {
	case r.cs.unloadRoomChan <- unloadRoomRequest{chatId: r.externalId}:
	default:
		r.log.Printf("unload channel full, retrying room %q later", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	if e.deleted {
		r.broadcast(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				ChatDeleted: &ChatDeleted{ChatId: r.externalId},
			},
		})
	}

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.externalId)
	}
	r.clients = make(map[*Client]struct{})
	r.userMap = make(map[int]map[*Client]struct{})
	r.clientLock.Unlock()

	if e.done != nil {
		e.done <- r.externalId
	}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	if r.userMap[c.user.Id] == nil {
		r.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	r.userMap[c.user.Id][c] = struct{}{}
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	if userClients, ok := r.userMap[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(r.userMap, c.user.Id)
		}
	}

	if len(r.clients) == 0 {
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) numClients() int {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	return len(r.clients)
}

func (r *Room) broadcast(msg *ServerMessage) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for c := range r.clients {
		if c == msg.SkipClient {
			continue
		}
		c.queueMessage(msg)
	}
}
