package server

import (
	"net/http"
	"time"

	"github.com/tomline/go-messenger/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Join    *Join    `json:"join,omitempty"`
	Leave   *Leave   `json:"leave,omitempty"`
	Publish *Publish `json:"publish,omitempty"`
	Typing  *Typing  `json:"typing,omitempty"`
	React   *React   `json:"react,omitempty"`
	Read    *Read    `json:"read,omitempty"`
	Edit    *Edit    `json:"edit,omitempty"`
	Delete  *Delete  `json:"delete,omitempty"`
	UserId  int      `json:"-"`
	client  *Client  `json:"-"`
}

func (cm *ClientMessage) GetUserId() int {
	if cm.UserId != 0 {
		return cm.UserId
	}

	if cm.client != nil {
		return cm.client.user.Id
	}

	return 0
}

// chatId returns the chat targeted by whichever operation the frame
// carries, or "" for frames with no recognizable operation.
func (cm *ClientMessage) chatId() string {
	switch {
	case cm.Join != nil:
		return cm.Join.ChatId
	case cm.Leave != nil:
		return cm.Leave.ChatId
	case cm.Publish != nil:
		return cm.Publish.ChatId
	case cm.Typing != nil:
		return cm.Typing.ChatId
	case cm.React != nil:
		return cm.React.ChatId
	case cm.Read != nil:
		return cm.Read.ChatId
	case cm.Edit != nil:
		return cm.Edit.ChatId
	case cm.Delete != nil:
		return cm.Delete.ChatId
	}

	return ""
}

type Join struct {
	ChatId string `json:"chat_id"`
}

type Leave struct {
	ChatId string `json:"chat_id"`
}

type Publish struct {
	ChatId    string            `json:"chat_id"`
	Content   string            `json:"content"`
	Type      types.MessageType `json:"type,omitempty"`
	ReplyToId int               `json:"reply_to_id,omitempty"`
	Language  string            `json:"language,omitempty"`
	Filename  string            `json:"filename,omitempty"`
}

type Typing struct {
	ChatId   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

type React struct {
	ChatId    string `json:"chat_id"`
	MessageId int    `json:"message_id"`
	Reaction  string `json:"reaction"`
}

type Read struct {
	ChatId     string `json:"chat_id"`
	MessageIds []int  `json:"message_ids"`
}

type Edit struct {
	ChatId    string `json:"chat_id"`
	MessageId int    `json:"message_id"`
	Content   string `json:"content"`
}

type Delete struct {
	ChatId      string `json:"chat_id"`
	MessageId   int    `json:"message_id"`
	ForEveryone bool   `json:"for_everyone,omitempty"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	// UserId addresses the event to all of one user's connections instead
	// of the whole server.
	UserId     int     `json:"-"`
	SkipClient *Client `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	Presence       *Presence             `json:"presence,omitempty"`
	OnlineUsers    *OnlineUsers          `json:"online_users,omitempty"`
	Typing         *TypingNotification   `json:"typing,omitempty"`
	Reaction       *ReactionNotification `json:"reaction,omitempty"`
	Status         *StatusNotification   `json:"status,omitempty"`
	MessageEdited    *MessageEdited    `json:"message_edited,omitempty"`
	MessageDeleted   *MessageDeleted   `json:"message_deleted,omitempty"`
	ChatDeleted      *ChatDeleted      `json:"chat_deleted,omitempty"`
	MembershipChange *MembershipChange `json:"membership_change,omitempty"`
}

type Presence struct {
	UserId   int        `json:"user_id"`
	Username string     `json:"username"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type OnlineUsers struct {
	UserIds []int `json:"user_ids"`
}

type TypingNotification struct {
	ChatId   string `json:"chat_id"`
	UserId   int    `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type ReactionNotification struct {
	ChatId    string `json:"chat_id"`
	MessageId int    `json:"message_id"`
	UserId    int    `json:"user_id"`
	Username  string `json:"username"`
	Reaction  string `json:"reaction"`
}

type StatusNotification struct {
	ChatId    string               `json:"chat_id"`
	MessageId int                  `json:"message_id"`
	Status    types.DeliveryStatus `json:"status"`
}

type MessageEdited struct {
	ChatId    string    `json:"chat_id"`
	MessageId int       `json:"message_id"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"edited_at"`
}

type MessageDeleted struct {
	ChatId    string `json:"chat_id"`
	MessageId int    `json:"message_id"`
}

type ChatDeleted struct {
	ChatId string `json:"chat_id"`
}

type MembershipChange struct {
	ChatId   string     `json:"chat_id"`
	UserId   int        `json:"user_id"`
	Username string     `json:"username,omitempty"`
	Role     types.Role `json:"role,omitempty"`
	Added    bool       `json:"added"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrChatNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "chat not found",
		},
	}
}

func ErrMessageNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "message not found",
		},
	}
}

func ErrForbidden(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "not a member of this chat",
		},
	}
}

func ErrValidation(id int, reason string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
