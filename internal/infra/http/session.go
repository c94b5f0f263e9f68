package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"feedback-portal/internal/domain"
)

type sessionCtxKey struct{}

// SessionResolver находит действующую сессию по идентификатору.
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (domain.Session, error)
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, session domain.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// SessionFrom достаёт сессию из контекста.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(domain.Session)
	return session, ok
}

// SessionID читает идентификатор сессии из cookie или заголовка Authorization: Bearer.
func SessionID(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// SessionMiddleware подгружает сессию, если она передана. Отсутствие сессии не ошибка.
func SessionMiddleware(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := SessionID(r, cookieName)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, err := resolver.Resolve(r.Context(), id)
			if err != nil {
				if !errors.Is(err, domain.ErrSessionNotFound) {
					WriteError(w, http.StatusServiceUnavailable, errors.New("session storage unavailable"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireRole пропускает только запросы с сессией указанной роли.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFrom(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, domain.ErrSessionNotFound)
				return
			}
			if session.Account.Role != role {
				WriteError(w, http.StatusForbidden, domain.ErrForbiddenRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, ErrorResponse{Error: err.Error()})
}

// WriteJSON отправляет JSON с указанным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
