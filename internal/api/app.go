package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
	"github.com/tomline/go-messenger/internal/auth"
	"github.com/tomline/go-messenger/internal/config"
	"github.com/tomline/go-messenger/internal/database"
	"github.com/tomline/go-messenger/internal/server"
)

type MessengerApp struct {
	log            *log.Logger
	db             database.MessengerRepository
	srv            *http.Server
	cs             *server.ChatServer
	auth           *auth.Service
	allowedOrigins []string
	// generateShortId produces chat external ids. Overridable in tests.
	generateShortId func() (string, error)
}

func NewMessengerApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.MessengerRepository, authService *auth.Service, cfg *config.Config) *MessengerApp {
	s := &MessengerApp{
		log:             logger,
		db:              db,
		cs:              cs,
		auth:            authService,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/chats", s.authMiddleware(s.createChat))
	mux.Handle("POST /api/chats/direct", s.authMiddleware(s.createDirectChat))
	mux.Handle("GET /api/chats", s.authMiddleware(s.listChats))
	mux.Handle("DELETE /api/chats", s.authMiddleware(s.deleteChat))
	mux.Handle("POST /api/chats/members", s.authMiddleware(s.addMember))
	mux.Handle("DELETE /api/chats/members", s.authMiddleware(s.removeMember))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.srv = srv
	return s
}

func (s *MessengerApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *MessengerApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
