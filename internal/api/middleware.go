package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const userIdKey contextKey = "user-id"

const tokenCookieKey = "token"

func WithUserId(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (int, bool) {
	userId, ok := ctx.Value(userIdKey).(int)

	return userId, ok
}

// errorHandler recovers from panics in downstream handlers and converts them
// to a JSON 500 response.
func (s *MessengerApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				errResp := NewInternalServerError(fmt.Errorf("%v", err))
				s.log.Printf("panic serving %s: %v", r.URL.Path, err)
				writeJson(s.log, w, errResp.StatusCode, errResp)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// extractToken reads the session token from the cookie, falling back to an
// Authorization bearer header for non-browser clients.
func extractToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(tokenCookieKey); err == nil {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return token, nil
	}

	return "", fmt.Errorf("no session token")
}

func (s *MessengerApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			errResp := NewUnauthorizedError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}

		userId, err := s.auth.VerifyToken(token)
		if err != nil {
			s.log.Println("failed to verify session token:", err)
			errResp := NewUnauthorizedError()
			writeJson(s.log, w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUserId(r.Context(), userId)
		w.Header().Add("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
