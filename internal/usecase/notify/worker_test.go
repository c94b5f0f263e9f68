package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
)

type sentMessage struct {
	chatID int64
	text   string
}

type stubSender struct {
	sent     []sentMessage
	failures int
	calls    int
}

func (s *stubSender) Send(_ context.Context, chatID int64, text string) error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("telegram unavailable")
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type stubQueue struct {
	jobs   []domain.FeedbackJob
	acks   []bool
	cancel context.CancelFunc
}

func (q *stubQueue) Enqueue(_ context.Context, job domain.FeedbackJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Receive(ctx context.Context) (domain.FeedbackJob, domain.AckFunc, error) {
	if len(q.jobs) == 0 {
		q.cancel()
		return domain.FeedbackJob{}, nil, ctx.Err()
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	ack := func(success bool) error {
		q.acks = append(q.acks, success)
		if !success {
			q.jobs = append(q.jobs, job)
		}
		return nil
	}
	return job, ack, nil
}

type memoryCache struct {
	data map[string][]byte
}

func (c *memoryCache) Once(context.Context, string, time.Duration, func() error) error { return nil }

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	n, _ := strconv.ParseInt(string(c.data[key]), 10, 64)
	n++
	c.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func plainFormat(job domain.FeedbackJob, urgent bool) string {
	return fmt.Sprintf("%s:%s:%t", job.Name, job.Rating, urgent)
}

func TestHandleMarksLowRatingUrgent(t *testing.T) {
	sender := &stubSender{}
	w := NewWorker(&stubQueue{}, sender, nil, nil, plainFormat, 77, 2, zerolog.Nop())

	if err := w.Handle(context.Background(), domain.FeedbackJob{ID: "1", Name: "Ann", Rating: "2"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := w.Handle(context.Background(), domain.FeedbackJob{ID: "2", Name: "Bob", Rating: "5"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(sender.sent) != 2 || sender.sent[0].chatID != 77 {
		t.Fatalf("неожиданные сообщения: %+v", sender.sent)
	}
	if sender.sent[0].text != "Ann:2:true" || sender.sent[1].text != "Bob:5:false" {
		t.Fatalf("неверная срочность: %+v", sender.sent)
	}
}

func TestHandleSkipsDeliveredJob(t *testing.T) {
	sender := &stubSender{}
	cache := &memoryCache{data: map[string][]byte{}}
	w := NewWorker(&stubQueue{}, sender, cache, nil, plainFormat, 1, 2, zerolog.Nop())
	job := domain.FeedbackJob{ID: "dup", Rating: "4"}

	for i := 0; i < 2; i++ {
		if err := w.Handle(context.Background(), job); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if len(sender.sent) != 1 {
		t.Fatalf("повторная задача не должна отправляться, отправлено %d", len(sender.sent))
	}
}

func TestRunRetriesFailedSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := &stubQueue{jobs: []domain.FeedbackJob{{ID: "j1", Rating: "1"}}, cancel: cancel}
	sender := &stubSender{failures: 1}
	w := NewWorker(queue, sender, nil, nil, plainFormat, 1, 2, zerolog.Nop())
	w.retryDelay = 0

	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
	if len(queue.acks) != 2 || queue.acks[0] || !queue.acks[1] {
		t.Fatalf("ожидали nack, затем ack: %v", queue.acks)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("ожидали одну доставку, получили %d", len(sender.sent))
	}
}

func TestRunDropsAfterMaxAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := &stubQueue{jobs: []domain.FeedbackJob{{ID: "j1", Rating: "3"}}, cancel: cancel}
	w := NewWorker(queue, &stubSender{failures: 100}, nil, nil, plainFormat, 1, 2, zerolog.Nop())
	w.retryDelay = 0

	_ = w.Run(ctx)
	if len(queue.acks) != maxDeliveryAttempts || !queue.acks[len(queue.acks)-1] {
		t.Fatalf("ожидали %d попыток с финальным ack: %v", maxDeliveryAttempts, queue.acks)
	}
}

func TestAttemptLimitSharedBetweenWorkers(t *testing.T) {
	ctx := context.Background()
	queue := &stubQueue{jobs: []domain.FeedbackJob{{ID: "j1", Rating: "2"}}}
	sender := &stubSender{failures: 100}
	cache := &memoryCache{data: map[string][]byte{}}
	workers := []*Worker{
		NewWorker(queue, sender, cache, nil, plainFormat, 1, 2, zerolog.Nop()),
		NewWorker(queue, sender, cache, nil, plainFormat, 1, 2, zerolog.Nop()),
	}
	for _, w := range workers {
		w.retryDelay = 0
	}

	for i := 0; len(queue.jobs) > 0 && i < 100; i++ {
		job, ack, err := queue.Receive(ctx)
		if err != nil {
			t.Fatalf("не ожидали ошибку очереди: %v", err)
		}
		workers[i%len(workers)].process(ctx, job, ack)
	}
	if sender.calls != maxDeliveryAttempts {
		t.Fatalf("ожидали %d попыток на оба обработчика, получили %d", maxDeliveryAttempts, sender.calls)
	}
	if _, ok := cache.data[attemptsKey("j1")]; ok {
		t.Fatalf("счётчик попыток должен удаляться после отбрасывания задачи")
	}
	for i, w := range workers {
		if len(w.attempts) != 0 {
			t.Fatalf("обработчик %d хранит локальные попытки: %v", i, w.attempts)
		}
	}
}

func TestIsUrgent(t *testing.T) {
	cases := map[string]bool{"1": true, "2": true, " 2 ": true, "3": false, "": false, "bad": false}
	for rating, expected := range cases {
		if IsUrgent(rating, 2) != expected {
			t.Fatalf("IsUrgent(%q) != %v", rating, expected)
		}
	}
}
