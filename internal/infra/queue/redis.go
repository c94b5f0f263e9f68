package queue

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

// RedisFeedbackQueue реализует очередь уведомлений на базе Redis lists.
// Подтверждение не поддерживается: при неуспехе задача возвращается в хвост списка.
type RedisFeedbackQueue struct {
	client *redis.Client
	key    string
}

var _ domain.FeedbackQueue = (*RedisFeedbackQueue)(nil)

// NewRedisFeedbackQueue создаёт очередь по указанному ключу.
func NewRedisFeedbackQueue(client *redis.Client, key string) *RedisFeedbackQueue {
	return &RedisFeedbackQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisFeedbackQueue) Enqueue(ctx context.Context, job domain.FeedbackJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RedisFeedbackQueue) Receive(ctx context.Context) (domain.FeedbackJob, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FeedbackJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.FeedbackJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.FeedbackJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.FeedbackJob{}, nil, errors.New("redis queue: unexpected response")
		}
		raw := []byte(res[1])
		var job domain.FeedbackJob
		if err := json.Unmarshal(raw, &job); err != nil {
			return domain.FeedbackJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.RPush(context.Background(), q.key, raw).Err()
		}
		return job, ack, nil
	}
}
