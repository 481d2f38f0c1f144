package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	AvatarUrl    string
	PasswordHash string
	LastSeen     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Chat struct {
	Id            int
	ExternalId    string
	Type          string
	Name          string
	OwnerId       int
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Members       []ChatMember
}

type ChatMember struct {
	Id        int
	ChatId    int
	UserId    int
	Username  string
	Role      string
	CreatedAt time.Time
}

type Message struct {
	Id             int
	ChatId         int
	UserId         int
	SenderUsername string
	Content        string
	Type           string
	Language       string
	Filename       string
	ReplyToId      int
	Deleted        bool
	EditedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MessageEdit struct {
	Id           int
	MessageId    int
	PriorContent string
	EditedAt     time.Time
}

type Receipt struct {
	MessageId int
	UserId    int
	Status    string
	UpdatedAt time.Time
}

// ReceiptUpdate is returned for each receipt a status change actually
// transitioned, carrying the message sender so status events can be routed
// back to the sender's devices.
type ReceiptUpdate struct {
	MessageId int
	SenderId  int
	Status    string
}

type Reaction struct {
	Id        int
	MessageId int
	UserId    int
	Username  string
	Reaction  string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarUrl    string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
	AvatarUrl    string
}

type CreateChatParams struct {
	Name       string
	OwnerId    int
	ExternalId string
	MemberIds  []int
}

type CreateMessageParams struct {
	ChatId    int
	UserId    int
	Content   string
	Type      string
	Language  string
	Filename  string
	ReplyToId int
	CreatedAt time.Time
}
