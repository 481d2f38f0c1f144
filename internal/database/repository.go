package database

import "time"

type MessengerRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(userId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	UpdateLastSeen(userId int, lastSeen time.Time) error

	CreateGroupChat(params CreateChatParams) (Chat, error)
	GetOrCreateDirectChat(userId, peerId int, externalId string) (Chat, error)
	GetChatByExternalId(externalId string) (Chat, error)
	GetChatWithMembers(chatId int) (*Chat, error)
	ListChats(userId int) ([]Chat, error)
	DeleteChat(chatId int) error

	AddChatMember(chatId, userId int, role string) (ChatMember, error)
	RemoveChatMember(chatId, userId int) error
	MembershipExists(userId, chatId int) bool
	GetMembership(userId, chatId int) (ChatMember, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(messageId int) (Message, error)
	UpdateMessageContent(messageId int, content string, editedAt time.Time) (Message, error)
	DeleteMessageForUser(messageId, userId int) error
	DeleteMessageForAll(messageId int) error
	GetMessages(chatId, userId, before, limit int) ([]Message, error)

	UpsertReaction(messageId, userId int, reaction string) (Reaction, error)
	GetReactions(messageId int) ([]Reaction, error)

	MarkDelivered(messageId int, userIds []int) ([]ReceiptUpdate, error)
	MarkMessagesRead(chatId, userId int, messageIds []int) ([]ReceiptUpdate, error)
	GetReceipts(messageId int) ([]Receipt, error)
}
