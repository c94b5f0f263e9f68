package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
)

// RabbitFeedbackQueue реализует очередь уведомлений через RabbitMQ.
type RabbitFeedbackQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

var _ domain.FeedbackQueue = (*RabbitFeedbackQueue)(nil)

// NewRabbitFeedbackQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitFeedbackQueue(amqpURL, queue string) (*RabbitFeedbackQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitFeedbackQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitFeedbackQueue) Enqueue(ctx context.Context, job domain.FeedbackJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}
	start := time.Now()
	q.mu.Lock()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, msg)
	q.mu.Unlock()
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. Задачу нужно подтвердить через AckFunc.
func (q *RabbitFeedbackQueue) Receive(ctx context.Context) (domain.FeedbackJob, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.FeedbackJob{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.FeedbackJob{}, nil, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return domain.FeedbackJob{}, nil, errors.New("rabbitmq: delivery channel closed")
			}
			var job domain.FeedbackJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				// битое сообщение повторно не доставляем
				_ = d.Nack(false, false)
				continue
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, true)
			}
			return job, ack, nil
		}
	}
}

// Close закрывает канал и соединение.
func (q *RabbitFeedbackQueue) Close() error {
	chErr := q.ch.Close()
	connErr := q.conn.Close()
	return errors.Join(chErr, connErr)
}

func (q *RabbitFeedbackQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}
