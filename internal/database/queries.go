package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const addMemberQuery = "INSERT INTO chat_members (chat_id, user_id, role, created_at) " +
	"VALUES ($1, $2, $3, $4) RETURNING id, chat_id, user_id, role, created_at"

func (db *PgMessengerRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, avatar_url, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, email, avatar_url, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarUrl,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgMessengerRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, avatar_url = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, email, avatar_url, created_at, updated_at",
		params.UserId,
		params.Username,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarUrl,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgMessengerRepository) GetAccountById(userId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, last_seen, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var user User
	var lastSeen sql.NullTime
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.AvatarUrl,
		&lastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if lastSeen.Valid {
		user.LastSeen = &lastSeen.Time
	}

	return user, err
}

func (db *PgMessengerRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.AvatarUrl,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgMessengerRepository) UpdateLastSeen(userId int, lastSeen time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE accounts SET last_seen = $2 WHERE id = $1",
		userId,
		lastSeen,
	)

	return err
}

func (db *PgMessengerRepository) CreateGroupChat(params CreateChatParams) (Chat, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO chats (external_id, type, name, owner_id, last_message_at, created_at, updated_at) "+
			"VALUES ($1, 'GROUP', $2, $3, $4, $4, $4) "+
			"RETURNING id, external_id, type, name, owner_id, last_message_at, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.OwnerId,
		now,
	)

	var chat Chat
	err = res.Scan(
		&chat.Id,
		&chat.ExternalId,
		&chat.Type,
		&chat.Name,
		&chat.OwnerId,
		&chat.LastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return Chat{}, err
	}

	if _, err = tx.Exec(addMemberQuery, chat.Id, params.OwnerId, "OWNER", now); err != nil {
		return Chat{}, err
	}

	for _, memberId := range params.MemberIds {
		if memberId == params.OwnerId {
			continue
		}
		if _, err = tx.Exec(addMemberQuery, chat.Id, memberId, "MEMBER", now); err != nil {
			return Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Chat{}, err
	}

	return chat, nil
}

// directChatLockKey normalizes the user pair so both orderings contend on
// the same advisory lock.
func directChatLockKey(userId, peerId int) (int, int) {
	if userId > peerId {
		return peerId, userId
	}
	return userId, peerId
}

// GetOrCreateDirectChat returns the existing direct chat between the two
// users if one exists, otherwise creates it. A second direct chat between
// the same pair is never created.
func (db *PgMessengerRepository) GetOrCreateDirectChat(userId, peerId int, externalId string) (Chat, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// Serialize concurrent first messages between the same pair; without
	// the lock two transactions can both miss the existing chat and
	// insert duplicates.
	lo, hi := directChatLockKey(userId, peerId)
	if _, err = tx.Exec("SELECT pg_advisory_xact_lock($1, $2)", lo, hi); err != nil {
		return Chat{}, err
	}

	row := tx.QueryRow(
		"SELECT c.id, c.external_id, c.type, c.name, c.last_message_at, c.created_at, c.updated_at "+
			"FROM chats c "+
			"JOIN chat_members m1 ON m1.chat_id = c.id AND m1.user_id = $1 "+
			"JOIN chat_members m2 ON m2.chat_id = c.id AND m2.user_id = $2 "+
			"WHERE c.type = 'DIRECT' LIMIT 1",
		userId,
		peerId,
	)

	var chat Chat
	err = row.Scan(
		&chat.Id,
		&chat.ExternalId,
		&chat.Type,
		&chat.Name,
		&chat.LastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err == nil {
		if err = tx.Commit(); err != nil {
			return Chat{}, err
		}
		return chat, nil
	}
	if err != sql.ErrNoRows {
		return Chat{}, err
	}

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO chats (external_id, type, last_message_at, created_at, updated_at) "+
			"VALUES ($1, 'DIRECT', $2, $2, $2) "+
			"RETURNING id, external_id, type, name, last_message_at, created_at, updated_at",
		externalId,
		now,
	)

	err = res.Scan(
		&chat.Id,
		&chat.ExternalId,
		&chat.Type,
		&chat.Name,
		&chat.LastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return Chat{}, err
	}

	for _, id := range []int{userId, peerId} {
		if _, err = tx.Exec(addMemberQuery, chat.Id, id, "MEMBER", now); err != nil {
			return Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Chat{}, err
	}

	return chat, nil
}

func (db *PgMessengerRepository) GetChatByExternalId(externalId string) (Chat, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, type, name, COALESCE(owner_id, 0), last_message_at, created_at, updated_at "+
			"FROM chats WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var chat Chat
	err := row.Scan(
		&chat.Id,
		&chat.ExternalId,
		&chat.Type,
		&chat.Name,
		&chat.OwnerId,
		&chat.LastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)

	return chat, err
}

func (db *PgMessengerRepository) GetChatWithMembers(chatId int) (*Chat, error) {
	query := `
		SELECT
				c.id,
				c.external_id,
				c.type,
				c.name,
				COALESCE(c.owner_id, 0),
				c.last_message_at,
				c.created_at,
				c.updated_at,
				m.id,
				m.user_id,
				a.username,
				m.role,
				m.created_at
		FROM chats c
		LEFT JOIN chat_members m ON c.id = m.chat_id
		LEFT JOIN accounts a ON m.user_id = a.id
		WHERE c.id = $1;
`

	rows, err := db.conn.Query(query, chatId)
	if err != nil {
		return nil, fmt.Errorf("fetch chat with members: %w", err)
	}
	defer rows.Close()

	var chat *Chat
	for rows.Next() {
		var (
			c               Chat
			memberId        sql.NullInt64
			memberUserId    sql.NullInt64
			memberUsername  sql.NullString
			memberRole      sql.NullString
			memberCreatedAt sql.NullTime
		)

		err := rows.Scan(
			&c.Id,
			&c.ExternalId,
			&c.Type,
			&c.Name,
			&c.OwnerId,
			&c.LastMessageAt,
			&c.CreatedAt,
			&c.UpdatedAt,
			&memberId,
			&memberUserId,
			&memberUsername,
			&memberRole,
			&memberCreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if chat == nil {
			c.Members = make([]ChatMember, 0)
			chat = &c
		}

		if memberUserId.Valid && memberUsername.Valid {
			chat.Members = append(chat.Members, ChatMember{
				Id:        int(memberId.Int64),
				ChatId:    chat.Id,
				UserId:    int(memberUserId.Int64),
				Username:  memberUsername.String,
				Role:      memberRole.String,
				CreatedAt: memberCreatedAt.Time,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if chat == nil {
		return nil, sql.ErrNoRows
	}

	return chat, nil
}

func (db *PgMessengerRepository) ListChats(userId int) ([]Chat, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.external_id, c.type, c.name, COALESCE(c.owner_id, 0), c.last_message_at, c.created_at, c.updated_at "+
			"FROM chat_members m JOIN chats c ON c.id = m.chat_id "+
			"WHERE m.user_id = $1 ORDER BY c.last_message_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		err = rows.Scan(
			&chat.Id,
			&chat.ExternalId,
			&chat.Type,
			&chat.Name,
			&chat.OwnerId,
			&chat.LastMessageAt,
			&chat.CreatedAt,
			&chat.UpdatedAt,
		)
		if err != nil {
			break
		}

		chats = append(chats, chat)
	}

	return chats, err
}

func (db *PgMessengerRepository) DeleteChat(chatId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmts := []string{
		"DELETE FROM message_deletions WHERE message_id IN (SELECT id FROM messages WHERE chat_id = $1)",
		"DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE chat_id = $1)",
		"DELETE FROM message_receipts WHERE message_id IN (SELECT id FROM messages WHERE chat_id = $1)",
		"DELETE FROM message_edits WHERE message_id IN (SELECT id FROM messages WHERE chat_id = $1)",
		"UPDATE messages SET reply_to_id = NULL WHERE chat_id = $1",
		"DELETE FROM messages WHERE chat_id = $1",
		"DELETE FROM chat_members WHERE chat_id = $1",
		"DELETE FROM chats WHERE id = $1",
	}

	for _, stmt := range stmts {
		if _, err = tx.Exec(stmt, chatId); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *PgMessengerRepository) AddChatMember(chatId, userId int, role string) (ChatMember, error) {
	res := db.conn.QueryRow(addMemberQuery, chatId, userId, role, time.Now().UTC())

	var m ChatMember
	err := res.Scan(
		&m.Id,
		&m.ChatId,
		&m.UserId,
		&m.Role,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgMessengerRepository) RemoveChatMember(chatId, userId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2",
		chatId,
		userId,
	)

	return err
}

func (db *PgMessengerRepository) MembershipExists(userId, chatId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM chat_members WHERE user_id = $1 AND chat_id = $2 LIMIT 1",
		userId,
		chatId,
	)

	var id int
	err := res.Scan(&id)

	return err == nil
}

func (db *PgMessengerRepository) GetMembership(userId, chatId int) (ChatMember, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.chat_id, m.user_id, a.username, m.role, m.created_at "+
			"FROM chat_members m JOIN accounts a ON a.id = m.user_id "+
			"WHERE m.user_id = $1 AND m.chat_id = $2 LIMIT 1",
		userId,
		chatId,
	)

	var m ChatMember
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.UserId,
		&m.Username,
		&m.Role,
		&m.CreatedAt,
	)

	return m, err
}

// CreateMessage persists a message, seeds SENT receipts for every other
// member, and bumps the chat's last_message_at, all in one transaction. A
// failure leaves no partial state, so nothing is ever broadcast for an
// unpersisted message.
func (db *PgMessengerRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var replyTo interface{}
	if params.ReplyToId > 0 {
		replyTo = params.ReplyToId
	}

	res := tx.QueryRow(
		"INSERT INTO messages (chat_id, user_id, content, type, language, filename, reply_to_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) "+
			"RETURNING id, chat_id, user_id, content, type, language, filename, COALESCE(reply_to_id, 0), created_at, updated_at",
		params.ChatId,
		params.UserId,
		params.Content,
		params.Type,
		params.Language,
		params.Filename,
		replyTo,
		params.CreatedAt,
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.ChatId,
		&msg.UserId,
		&msg.Content,
		&msg.Type,
		&msg.Language,
		&msg.Filename,
		&msg.ReplyToId,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO message_receipts (message_id, user_id, status, updated_at) "+
			"SELECT $1, user_id, 'SENT', $2 FROM chat_members WHERE chat_id = $3 AND user_id <> $4",
		msg.Id,
		params.CreatedAt,
		params.ChatId,
		params.UserId,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec(
		"UPDATE chats SET last_message_at = $1, updated_at = $1 WHERE id = $2",
		params.CreatedAt,
		params.ChatId,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgMessengerRepository) GetMessageById(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.chat_id, m.user_id, a.username, m.content, m.type, m.language, m.filename, "+
			"COALESCE(m.reply_to_id, 0), m.deleted, m.edited_at, m.created_at, m.updated_at "+
			"FROM messages m JOIN accounts a ON a.id = m.user_id "+
			"WHERE m.id = $1 LIMIT 1",
		messageId,
	)

	var msg Message
	var editedAt sql.NullTime
	err := row.Scan(
		&msg.Id,
		&msg.ChatId,
		&msg.UserId,
		&msg.SenderUsername,
		&msg.Content,
		&msg.Type,
		&msg.Language,
		&msg.Filename,
		&msg.ReplyToId,
		&msg.Deleted,
		&editedAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}

	return msg, err
}

// UpdateMessageContent replaces a message's content, archiving the prior
// content as an edit record in the same transaction.
func (db *PgMessengerRepository) UpdateMessageContent(messageId int, content string, editedAt time.Time) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"INSERT INTO message_edits (message_id, prior_content, edited_at) "+
			"SELECT id, content, $2 FROM messages WHERE id = $1",
		messageId,
		editedAt,
	)
	if err != nil {
		return Message{}, err
	}

	res := tx.QueryRow(
		"UPDATE messages SET content = $2, edited_at = $3, updated_at = $3 WHERE id = $1 "+
			"RETURNING id, chat_id, user_id, content, type, language, filename, COALESCE(reply_to_id, 0), created_at, updated_at",
		messageId,
		content,
		editedAt,
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.ChatId,
		&msg.UserId,
		&msg.Content,
		&msg.Type,
		&msg.Language,
		&msg.Filename,
		&msg.ReplyToId,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return Message{}, err
	}
	msg.EditedAt = &editedAt

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgMessengerRepository) DeleteMessageForUser(messageId, userId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO message_deletions (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		messageId,
		userId,
	)

	return err
}

func (db *PgMessengerRepository) DeleteMessageForAll(messageId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET deleted = TRUE, content = '', updated_at = $2 WHERE id = $1",
		messageId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgMessengerRepository) GetMessages(chatId, userId, before, limit int) ([]Message, error) {
	var upper int = 1<<31 - 1
	if before > 0 {
		upper = before - 1
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.chat_id, m.user_id, a.username, m.content, m.type, m.language, m.filename, "+
			"COALESCE(m.reply_to_id, 0), m.deleted, m.edited_at, m.created_at "+
			"FROM messages m JOIN accounts a ON a.id = m.user_id "+
			"WHERE m.chat_id = $1 AND m.id <= $2 "+
			"AND NOT EXISTS (SELECT 1 FROM message_deletions d WHERE d.message_id = m.id AND d.user_id = $3) "+
			"ORDER BY m.id DESC LIMIT $4",
		chatId,
		upper,
		userId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		var editedAt sql.NullTime
		err = rows.Scan(
			&msg.Id,
			&msg.ChatId,
			&msg.UserId,
			&msg.SenderUsername,
			&msg.Content,
			&msg.Type,
			&msg.Language,
			&msg.Filename,
			&msg.ReplyToId,
			&msg.Deleted,
			&editedAt,
			&msg.CreatedAt,
		)
		if err != nil {
			break
		}
		if editedAt.Valid {
			msg.EditedAt = &editedAt.Time
		}

		messages = append(messages, msg)
	}

	return messages, err
}

// UpsertReaction inserts a reaction or, if the same user already reacted
// with the same symbol, returns the existing row unchanged.
func (db *PgMessengerRepository) UpsertReaction(messageId, userId int, reaction string) (Reaction, error) {
	res := db.conn.QueryRow(
		"INSERT INTO message_reactions (message_id, user_id, reaction, created_at) "+
			"VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (message_id, user_id, reaction) DO UPDATE SET reaction = EXCLUDED.reaction "+
			"RETURNING id, message_id, user_id, reaction, created_at",
		messageId,
		userId,
		reaction,
		time.Now().UTC(),
	)

	var r Reaction
	err := res.Scan(
		&r.Id,
		&r.MessageId,
		&r.UserId,
		&r.Reaction,
		&r.CreatedAt,
	)

	return r, err
}

func (db *PgMessengerRepository) GetReactions(messageId int) ([]Reaction, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.message_id, r.user_id, a.username, r.reaction, r.created_at "+
			"FROM message_reactions r JOIN accounts a ON a.id = r.user_id "+
			"WHERE r.message_id = $1 ORDER BY r.created_at",
		messageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions = make([]Reaction, 0)
	for rows.Next() {
		var r Reaction
		if err = rows.Scan(&r.Id, &r.MessageId, &r.UserId, &r.Username, &r.Reaction, &r.CreatedAt); err != nil {
			break
		}

		reactions = append(reactions, r)
	}

	return reactions, err
}

// MarkDelivered transitions SENT receipts to DELIVERED for the given
// recipients. Receipts already at DELIVERED or READ are untouched, keeping
// the status sequence monotonic.
func (db *PgMessengerRepository) MarkDelivered(messageId int, userIds []int) ([]ReceiptUpdate, error) {
	rows, err := db.conn.Query(
		"UPDATE message_receipts r SET status = 'DELIVERED', updated_at = $3 "+
			"FROM messages m "+
			"WHERE r.message_id = m.id AND r.message_id = $1 AND r.user_id = ANY($2) AND r.status = 'SENT' "+
			"RETURNING r.message_id, m.user_id",
		messageId,
		pq.Array(userIds),
		time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReceiptUpdates(rows, "DELIVERED")
}

// MarkMessagesRead transitions receipts for the reader to READ. A read
// acknowledgment for a message never marked delivered is accepted (it
// implies delivery); receipts already at READ are skipped, so repeated
// acknowledgments produce no updates.
func (db *PgMessengerRepository) MarkMessagesRead(chatId, userId int, messageIds []int) ([]ReceiptUpdate, error) {
	rows, err := db.conn.Query(
		"UPDATE message_receipts r SET status = 'READ', updated_at = $4 "+
			"FROM messages m "+
			"WHERE r.message_id = m.id AND m.chat_id = $1 AND r.user_id = $2 "+
			"AND r.message_id = ANY($3) AND r.status <> 'READ' "+
			"RETURNING r.message_id, m.user_id",
		chatId,
		userId,
		pq.Array(messageIds),
		time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReceiptUpdates(rows, "READ")
}

func scanReceiptUpdates(rows *sql.Rows, status string) ([]ReceiptUpdate, error) {
	var updates = make([]ReceiptUpdate, 0)
	for rows.Next() {
		var u ReceiptUpdate
		if err := rows.Scan(&u.MessageId, &u.SenderId); err != nil {
			return nil, err
		}
		u.Status = status

		updates = append(updates, u)
	}

	return updates, rows.Err()
}

func (db *PgMessengerRepository) GetReceipts(messageId int) ([]Receipt, error) {
	rows, err := db.conn.Query(
		"SELECT message_id, user_id, status, updated_at FROM message_receipts WHERE message_id = $1",
		messageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts = make([]Receipt, 0)
	for rows.Next() {
		var r Receipt
		if err = rows.Scan(&r.MessageId, &r.UserId, &r.Status, &r.UpdatedAt); err != nil {
			break
		}

		receipts = append(receipts, r)
	}

	return receipts, err
}
