package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
)

const (
	maxDeliveryAttempts = 5
	deliveredTTL        = 24 * time.Hour
	attemptsTTL         = 24 * time.Hour
)

// AlertFormatter превращает задачу в текст уведомления.
type AlertFormatter func(job domain.FeedbackJob, urgent bool) string

// Worker читает очередь новых отзывов и уведомляет тренера.
type Worker struct {
	queue      domain.FeedbackQueue
	sender     domain.MessageSender
	cache      domain.Cache
	analytics  domain.BusinessMetricRepo
	format     AlertFormatter
	chatID     int64
	threshold  int
	log        zerolog.Logger
	retryDelay time.Duration

	// attempts считает попытки, только когда общий кэш недоступен.
	mu       sync.Mutex
	attempts map[string]int
}

// NewWorker создаёт обработчик уведомлений. cache и analytics могут быть nil.
func NewWorker(queue domain.FeedbackQueue, sender domain.MessageSender, cache domain.Cache, analytics domain.BusinessMetricRepo, format AlertFormatter, chatID int64, threshold int, log zerolog.Logger) *Worker {
	if analytics == nil {
		analytics = domain.NopBusinessMetrics{}
	}
	return &Worker{
		queue:      queue,
		sender:     sender,
		cache:      cache,
		analytics:  analytics,
		format:     format,
		chatID:     chatID,
		threshold:  threshold,
		log:        log,
		retryDelay: time.Second,
		attempts:   make(map[string]int),
	}
}

// Run обрабатывает задачи, пока не отменён ctx.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("notifier: ошибка чтения очереди")
			sleep(ctx, w.retryDelay)
			continue
		}

		w.process(ctx, job, ack)
	}
}

func (w *Worker) process(ctx context.Context, job domain.FeedbackJob, ack domain.AckFunc) {
	jobLog := w.log.With().Str("job_id", job.ID).Str("rating", job.Rating).Logger()

	if err := w.Handle(ctx, job); err != nil {
		attempt := w.recordAttempt(ctx, job.ID)
		if attempt >= maxDeliveryAttempts {
			jobLog.Error().Err(err).Int("attempt", attempt).Msg("notifier: достигнут предел попыток, задача отброшена")
			w.clearAttempts(ctx, job.ID)
			if ackErr := ack(true); ackErr != nil {
				jobLog.Error().Err(ackErr).Msg("notifier: не удалось подтвердить задачу")
			}
			return
		}
		jobLog.Warn().Err(err).Int("attempt", attempt).Msg("notifier: не удалось отправить, повторим позже")
		if ackErr := ack(false); ackErr != nil {
			jobLog.Error().Err(ackErr).Msg("notifier: не удалось вернуть задачу в очередь")
		}
		sleep(ctx, w.retryDelay)
		return
	}

	w.clearAttempts(ctx, job.ID)
	if err := ack(true); err != nil {
		jobLog.Error().Err(err).Msg("notifier: не удалось подтвердить задачу")
	}
}

// recordAttempt возвращает номер неудачной попытки. Счётчик в кэше общий для всех обработчиков очереди.
func (w *Worker) recordAttempt(ctx context.Context, jobID string) int {
	if w.cache != nil && jobID != "" {
		n, err := w.cache.Incr(ctx, attemptsKey(jobID), attemptsTTL)
		if err == nil {
			return int(n)
		}
		w.log.Warn().Err(err).Str("job_id", jobID).Msg("notifier: счётчик попыток недоступен, считаем локально")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[jobID]++
	return w.attempts[jobID]
}

func (w *Worker) clearAttempts(ctx context.Context, jobID string) {
	w.mu.Lock()
	delete(w.attempts, jobID)
	w.mu.Unlock()
	if w.cache == nil || jobID == "" {
		return
	}
	if err := w.cache.Delete(ctx, attemptsKey(jobID)); err != nil {
		w.log.Warn().Err(err).Str("job_id", jobID).Msg("notifier: не удалось сбросить счётчик попыток")
	}
}

func attemptsKey(jobID string) string {
	return "notify:attempts:" + jobID
}

// Handle отправляет уведомление по одной задаче. Уже доставленные задачи пропускаются.
func (w *Worker) Handle(ctx context.Context, job domain.FeedbackJob) error {
	key := "notify:delivered:" + job.ID
	if w.cache != nil && job.ID != "" {
		_, err := w.cache.Get(ctx, key)
		switch {
		case err == nil:
			w.log.Info().Str("job_id", job.ID).Msg("notifier: задача уже доставлена")
			return nil
		case !errors.Is(err, domain.ErrCacheMiss):
			w.log.Warn().Err(err).Msg("notifier: кэш недоступен")
		}
	}

	urgent := IsUrgent(job.Rating, w.threshold)
	if err := w.sender.Send(ctx, w.chatID, w.format(job, urgent)); err != nil {
		metrics.NotificationSendErrors.Inc()
		return fmt.Errorf("уведомление тренеру: %w", err)
	}

	if w.cache != nil && job.ID != "" {
		if err := w.cache.Set(ctx, key, []byte("1"), deliveredTTL); err != nil {
			w.log.Warn().Err(err).Str("job_id", job.ID).Msg("notifier: не удалось отметить доставку")
		}
	}
	metric := domain.BusinessMetric{
		Event:      domain.BusinessMetricEventFeedbackNotified,
		AccountID:  job.StudentID,
		Metadata:   map[string]any{"job_id": job.ID, "rating": job.Rating, "urgent": urgent},
		OccurredAt: time.Now().UTC(),
	}
	if err := w.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		w.log.Warn().Err(err).Msg("notifier: не удалось записать бизнес-метрику")
	}
	return nil
}

// IsUrgent сообщает, что оценка не выше порога. Нечитаемая оценка срочной не считается.
func IsUrgent(rating string, threshold int) bool {
	v, err := strconv.Atoi(strings.TrimSpace(rating))
	if err != nil {
		return false
	}
	return v <= threshold
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
