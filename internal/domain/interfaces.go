package domain

import (
	"context"
	"time"
)

// FeedbackSource описывает внешний источник отзывов.
type FeedbackSource interface {
	ListFeedback(ctx context.Context) ([]FeedbackRecord, error)
	SubmitFeedback(ctx context.Context, submission FeedbackSubmission) error
}

// AccountGateway регистрирует пользователей и проверяет их учётные данные во внешнем сервисе.
type AccountGateway interface {
	Register(ctx context.Context, reg Registration) error
	Login(ctx context.Context, creds Credentials) (LoginResult, error)
}

// LoginResult содержит ответ внешнего сервиса на вход.
type LoginResult struct {
	Account Account
	Token   string
}

// SessionStore хранит явные сессии пользователей.
type SessionStore interface {
	Save(ctx context.Context, session Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Incr атомарно увеличивает счётчик и продлевает его TTL.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// MessageSender доставляет текстовые уведомления в чат.
type MessageSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}
