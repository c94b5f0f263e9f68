package queue

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"feedback-portal/internal/domain"
)

const (
	BackendRedis    = "redis"
	BackendRabbitMQ = "rabbitmq"
)

// Open выбирает реализацию очереди по имени бэкенда. close освобождает соединение.
func Open(backend string, client *redis.Client, amqpURL, key string) (domain.FeedbackQueue, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendRedis:
		if client == nil {
			return nil, nil, fmt.Errorf("queue: redis client is required")
		}
		return NewRedisFeedbackQueue(client, key), func() error { return nil }, nil
	case BackendRabbitMQ:
		if amqpURL == "" {
			return nil, nil, fmt.Errorf("queue: RABBITMQ_URL is required for rabbitmq backend")
		}
		q, err := NewRabbitFeedbackQueue(amqpURL, key)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		return nil, nil, fmt.Errorf("queue: unknown backend %q", backend)
	}
}
