package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
)

const sessionKeyPrefix = "session:"

// RedisSessions реализует domain.SessionStore. Срок жизни сессии совпадает с TTL ключа.
type RedisSessions struct {
	client *redis.Client
}

var _ domain.SessionStore = (*RedisSessions)(nil)

// NewRedisSessions создаёт хранилище сессий.
func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

// Save сохраняет сессию.
func (s *RedisSessions) Save(ctx context.Context, session domain.Session, ttl time.Duration) error {
	if session.ID == "" {
		return errors.New("session id is empty")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	start := time.Now()
	err = s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err()
	metrics.ObserveNetworkRequest("redis", "set", "sessions", start, err)
	return err
}

// Get возвращает сессию или domain.ErrSessionNotFound.
func (s *RedisSessions) Get(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	start := time.Now()
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "get", "sessions", start, nil)
		return domain.Session{}, domain.ErrSessionNotFound
	}
	metrics.ObserveNetworkRequest("redis", "get", "sessions", start, err)
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Delete удаляет сессию.
func (s *RedisSessions) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.client.Del(ctx, sessionKeyPrefix+id).Err()
	metrics.ObserveNetworkRequest("redis", "del", "sessions", start, err)
	return err
}
