package types

import (
	"time"
)

type ChatType string

const (
	ChatTypeDirect ChatType = "DIRECT"
	ChatTypeGroup  ChatType = "GROUP"
)

type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleMember    Role = "MEMBER"
)

// CanDeleteForEveryone reports whether a member with this role may remove
// another user's message for all participants.
func (r Role) CanDeleteForEveryone() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleModerator
}

type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeCode  MessageType = "CODE"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeFile  MessageType = "FILE"
)

// RequiresContent reports whether messages of this type must carry a
// non-empty body. Image and file messages may consist of an attachment
// reference alone.
func (t MessageType) RequiresContent() bool {
	return t == MessageTypeText || t == MessageTypeCode
}

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "SENT"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusRead      DeliveryStatus = "READ"
)

// Rank orders delivery statuses. Transitions are only ever made toward a
// higher rank.
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

type User struct {
	Id           int        `json:"id"`
	Username     string     `json:"username"`
	EmailAddress string     `json:"email_address,omitempty"`
	AvatarUrl    string     `json:"avatar_url,omitempty"`
	Password     string     `json:"-"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at,omitempty"`
}

type Member struct {
	UserId   int    `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type Chat struct {
	Id            int       `json:"id"`
	ExternalId    string    `json:"external_id"`
	Type          ChatType  `json:"type"`
	Name          string    `json:"name,omitempty"`
	OwnerId       int       `json:"owner_id,omitempty"`
	Members       []Member  `json:"members,omitempty"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// MessagePreview is the subset of a message embedded in replies.
type MessagePreview struct {
	Id       int    `json:"id"`
	UserId   int    `json:"user_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

type Reaction struct {
	MessageId int       `json:"message_id"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Receipt struct {
	MessageId int            `json:"message_id"`
	UserId    int            `json:"user_id"`
	Status    DeliveryStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

type Message struct {
	Id        int             `json:"id"`
	ChatId    string          `json:"chat_id"`
	UserId    int             `json:"user_id"`
	Username  string          `json:"username,omitempty"`
	Content   string          `json:"content"`
	Type      MessageType     `json:"type"`
	Language  string          `json:"language,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	ReplyTo   *MessagePreview `json:"reply_to,omitempty"`
	Reactions []Reaction      `json:"reactions,omitempty"`
	Status    DeliveryStatus  `json:"status,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	EditedAt  *time.Time      `json:"edited_at,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// RollupStatus derives a single status from per-recipient receipts: the
// minimum across recipients. Only meaningful for two-party chats; group
// aggregation is left to the consumer.
func RollupStatus(receipts []Receipt) DeliveryStatus {
	if len(receipts) == 0 {
		return StatusSent
	}

	min := StatusRead
	for _, r := range receipts {
		if r.Status.Rank() < min.Rank() {
			min = r.Status
		}
	}

	return min
}
