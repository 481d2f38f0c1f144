package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tomline/go-messenger/internal/auth"
	"github.com/tomline/go-messenger/internal/database"
	"github.com/tomline/go-messenger/internal/server"
	"github.com/tomline/go-messenger/internal/types"
)

const defaultMessagePageSize = 20

type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	AvatarUrl string `json:"avatar_url"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	AvatarUrl string `json:"avatar_url"`
}

type CreateChatRequest struct {
	Name      string `json:"name"`
	MemberIds []int  `json:"member_ids"`
}

type CreateDirectChatRequest struct {
	PeerId int `json:"peer_id"`
}

type MemberRequest struct {
	ChatId string `json:"chat_id"`
	UserId int    `json:"user_id"`
	Role   string `json:"role"`
}

func writeJson(logger *log.Logger, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Println("failed to write json response:", err)
	}
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		AvatarUrl:    u.AvatarUrl,
		LastSeen:     u.LastSeen,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toChat(c database.Chat) types.Chat {
	members := make([]types.Member, 0, len(c.Members))
	for _, m := range c.Members {
		members = append(members, types.Member{
			UserId:   m.UserId,
			Username: m.Username,
			Role:     types.Role(m.Role),
		})
	}

	return types.Chat{
		Id:            c.Id,
		ExternalId:    c.ExternalId,
		Type:          types.ChatType(c.Type),
		Name:          c.Name,
		OwnerId:       c.OwnerId,
		Members:       members,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (s *MessengerApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := auth.HashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
		AvatarUrl:    req.AvatarUrl,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	writeJson(s.log, w, http.StatusCreated, toUser(newUser))
}

func (s *MessengerApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if !auth.VerifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.auth.CreateToken(dbUser.Id, auth.DefaultTokenExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createSessionCookie(token, auth.DefaultTokenExpiration))

	writeJson(s.log, w, http.StatusOK, toUser(dbUser))
}

func (s *MessengerApp) logout(w http.ResponseWriter, _ *http.Request) {
	// Overwrite the cookie with an already-expired one so the browser drops it.
	http.SetCookie(w, createSessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (s *MessengerApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewNotFoundError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	writeJson(s.log, w, http.StatusOK, toUser(user))
}

func (s *MessengerApp) account(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.db.GetAccountById(userId)
		if err != nil {
			errResp := NewNotFoundError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}

		writeJson(s.log, w, http.StatusOK, toUser(user))
	case http.MethodPut:
		curUser, err := s.db.GetAccountById(userId)
		if err != nil {
			errResp := NewNotFoundError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}

		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}

		pwdHash := curUser.PasswordHash
		if req.Password != "" {
			pwdHash, err = auth.HashPassword(req.Password)
			if err != nil {
				errResp := NewInternalServerError(err)
				writeJson(s.log, w, errResp.StatusCode, errResp)
				return
			}
		}

		username := curUser.Username
		if req.Username != "" {
			username = req.Username
		}

		avatarUrl := curUser.AvatarUrl
		if req.AvatarUrl != "" {
			avatarUrl = req.AvatarUrl
		}

		dbUser, err := s.db.UpdateAccount(database.UpdateAccountParams{
			UserId:       curUser.Id,
			Username:     username,
			PasswordHash: pwdHash,
			AvatarUrl:    avatarUrl,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}

		writeJson(s.log, w, http.StatusOK, toUser(dbUser))
	default:
		errResp := NewMethodNotAllowedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
	}
}

func (s *MessengerApp) createChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	externalId, err := s.generateShortId()
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.CreateGroupChat(database.CreateChatParams{
		Name:       req.Name,
		OwnerId:    userId,
		ExternalId: externalId,
		MemberIds:  req.MemberIds,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	writeJson(s.log, w, http.StatusCreated, toChat(chat))
}

func (s *MessengerApp) createDirectChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	var req CreateDirectChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if req.PeerId == userId {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetAccountById(req.PeerId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	externalId, err := s.generateShortId()
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	// Returns the existing chat when one already exists for this pair, so
	// repeated requests never create a second direct chat.
	chat, err := s.db.GetOrCreateDirectChat(userId, req.PeerId, externalId)
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	writeJson(s.log, w, http.StatusOK, toChat(chat))
}

func (s *MessengerApp) listChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	chats, err := s.db.ListChats(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	resp := make([]types.Chat, 0, len(chats))
	for _, c := range chats {
		resp = append(resp, toChat(c))
	}

	writeJson(s.log, w, http.StatusOK, resp)
}

func (s *MessengerApp) deleteChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("chat_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if chat.OwnerId != userId {
		errResp := NewForbiddenError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteChat(chat.Id); err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	// Evict the live room so connected members get a deletion event.
	if err := s.cs.UnloadRoom(r.Context(), chat.ExternalId, true); err != nil {
		s.log.Println("failed to unload room:", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *MessengerApp) addMember(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	role := types.Role(req.Role)
	if role == "" {
		role = types.RoleMember
	}
	if role != types.RoleMember && role != types.RoleModerator && role != types.RoleAdmin {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatByExternalId(req.ChatId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if types.ChatType(chat.Type) == types.ChatTypeDirect {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	membership, err := s.db.GetMembership(userId, chat.Id)
	if err != nil || (types.Role(membership.Role) != types.RoleOwner && types.Role(membership.Role) != types.RoleAdmin) {
		errResp := NewForbiddenError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if s.db.MembershipExists(req.UserId, chat.Id) {
		errResp := NewConflictError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.AddChatMember(chat.Id, req.UserId, string(role))
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	newMember := types.Member{
		UserId:   member.UserId,
		Username: member.Username,
		Role:     types.Role(member.Role),
	}

	s.cs.NotifyMembershipChange(chat.ExternalId, newMember, true)

	writeJson(s.log, w, http.StatusCreated, newMember)
}

func (s *MessengerApp) removeMember(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatByExternalId(req.ChatId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if chat.OwnerId == req.UserId {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	// Leaving a chat is always allowed; removing someone else requires an
	// owner or admin role.
	if req.UserId != userId {
		membership, err := s.db.GetMembership(userId, chat.Id)
		if err != nil || (types.Role(membership.Role) != types.RoleOwner && types.Role(membership.Role) != types.RoleAdmin) {
			errResp := NewForbiddenError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}
	}

	if err := s.db.RemoveChatMember(chat.Id, req.UserId); err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	s.cs.EvictFromRoom(chat.ExternalId, req.UserId)
	s.cs.NotifyMembershipChange(chat.ExternalId, types.Member{UserId: req.UserId}, false)

	w.WriteHeader(http.StatusNoContent)
}

func (s *MessengerApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("chat_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.db.GetChatByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.MembershipExists(userId, chat.Id) {
		errResp := NewForbiddenError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	var before int
	if v := r.URL.Query().Get("before"); v != "" {
		before, err = strconv.Atoi(v)
		if err != nil {
			errResp := NewBadRequestError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}
	}

	limit := defaultMessagePageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			errResp := NewBadRequestError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.db.GetMessages(chat.Id, userId, before, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	resp := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		msg := types.Message{
			Id:        m.Id,
			ChatId:    chat.ExternalId,
			UserId:    m.UserId,
			Username:  m.SenderUsername,
			Content:   m.Content,
			Type:      types.MessageType(m.Type),
			Language:  m.Language,
			Filename:  m.Filename,
			Deleted:   m.Deleted,
			EditedAt:  m.EditedAt,
			Timestamp: m.CreatedAt,
		}

		if m.ReplyToId > 0 {
			if orig, err := s.db.GetMessageById(m.ReplyToId); err == nil {
				msg.ReplyTo = &types.MessagePreview{
					Id:       orig.Id,
					UserId:   orig.UserId,
					Username: orig.SenderUsername,
					Content:  orig.Content,
				}
			}
		}

		if reactions, err := s.db.GetReactions(m.Id); err == nil && len(reactions) > 0 {
			for _, re := range reactions {
				msg.Reactions = append(msg.Reactions, types.Reaction{
					MessageId: re.MessageId,
					UserId:    re.UserId,
					Username:  re.Username,
					Reaction:  re.Reaction,
					CreatedAt: re.CreatedAt,
				})
			}
		}

		// Only the sender sees a delivery status on their own messages.
		if m.UserId == userId {
			receipts, err := s.db.GetReceipts(m.Id)
			if err == nil {
				typed := make([]types.Receipt, 0, len(receipts))
				for _, rc := range receipts {
					typed = append(typed, types.Receipt{
						MessageId: rc.MessageId,
						UserId:    rc.UserId,
						Status:    types.DeliveryStatus(rc.Status),
						UpdatedAt: rc.UpdatedAt,
					})
				}
				msg.Status = types.RollupStatus(typed)
			}
		}

		resp = append(resp, msg)
	}

	writeJson(s.log, w, http.StatusOK, resp)
}

func (s *MessengerApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("failed to upgrade connection:", err)
		return
	}

	client := server.NewClient(toUser(dbUser), conn, s.cs, s.log)
	s.cs.RegisterClient(client)

	go client.Write()
	go client.Read()
}

func createSessionCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
