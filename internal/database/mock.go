package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMessengerRepository struct {
	mock.Mock
}

func (m *MockMessengerRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockMessengerRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMessengerRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMessengerRepository) GetAccountById(userId int) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMessengerRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMessengerRepository) UpdateLastSeen(userId int, lastSeen time.Time) error {
	args := m.Called(userId, lastSeen)
	return args.Error(0)
}
func (m *MockMessengerRepository) CreateGroupChat(params CreateChatParams) (Chat, error) {
	args := m.Called(params)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockMessengerRepository) GetOrCreateDirectChat(userId, peerId int, externalId string) (Chat, error) {
	args := m.Called(userId, peerId, externalId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockMessengerRepository) GetChatByExternalId(externalId string) (Chat, error) {
	args := m.Called(externalId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockMessengerRepository) GetChatWithMembers(chatId int) (*Chat, error) {
	args := m.Called(chatId)
	if chat, ok := args.Get(0).(*Chat); ok {
		return chat, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessengerRepository) ListChats(userId int) ([]Chat, error) {
	args := m.Called(userId)
	return args.Get(0).([]Chat), args.Error(1)
}
func (m *MockMessengerRepository) DeleteChat(chatId int) error {
	args := m.Called(chatId)
	return args.Error(0)
}
func (m *MockMessengerRepository) AddChatMember(chatId, userId int, role string) (ChatMember, error) {
	args := m.Called(chatId, userId, role)
	return args.Get(0).(ChatMember), args.Error(1)
}
func (m *MockMessengerRepository) RemoveChatMember(chatId, userId int) error {
	args := m.Called(chatId, userId)
	return args.Error(0)
}
func (m *MockMessengerRepository) MembershipExists(userId, chatId int) bool {
	args := m.Called(userId, chatId)
	return args.Bool(0)
}
func (m *MockMessengerRepository) GetMembership(userId, chatId int) (ChatMember, error) {
	args := m.Called(userId, chatId)
	return args.Get(0).(ChatMember), args.Error(1)
}
func (m *MockMessengerRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockMessengerRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockMessengerRepository) UpdateMessageContent(messageId int, content string, editedAt time.Time) (Message, error) {
	args := m.Called(messageId, content, editedAt)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockMessengerRepository) DeleteMessageForUser(messageId, userId int) error {
	args := m.Called(messageId, userId)
	return args.Error(0)
}
func (m *MockMessengerRepository) DeleteMessageForAll(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockMessengerRepository) GetMessages(chatId, userId, before, limit int) ([]Message, error) {
	args := m.Called(chatId, userId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockMessengerRepository) UpsertReaction(messageId, userId int, reaction string) (Reaction, error) {
	args := m.Called(messageId, userId, reaction)
	return args.Get(0).(Reaction), args.Error(1)
}
func (m *MockMessengerRepository) GetReactions(messageId int) ([]Reaction, error) {
	args := m.Called(messageId)
	return args.Get(0).([]Reaction), args.Error(1)
}
func (m *MockMessengerRepository) MarkDelivered(messageId int, userIds []int) ([]ReceiptUpdate, error) {
	args := m.Called(messageId, userIds)
	return args.Get(0).([]ReceiptUpdate), args.Error(1)
}
func (m *MockMessengerRepository) MarkMessagesRead(chatId, userId int, messageIds []int) ([]ReceiptUpdate, error) {
	args := m.Called(chatId, userId, messageIds)
	return args.Get(0).([]ReceiptUpdate), args.Error(1)
}
func (m *MockMessengerRepository) GetReceipts(messageId int) ([]Receipt, error) {
	args := m.Called(messageId)
	return args.Get(0).([]Receipt), args.Error(1)
}
