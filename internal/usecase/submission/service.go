package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
	"feedback-portal/internal/usecase/forms"
)

// Service принимает отзывы слушателей и пересылает их во внешний API.
type Service struct {
	source    domain.FeedbackSource
	queue     domain.FeedbackQueue
	analytics domain.BusinessMetricRepo
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис отправки отзывов. queue и analytics могут быть nil.
func NewService(source domain.FeedbackSource, queue domain.FeedbackQueue, analytics domain.BusinessMetricRepo, log zerolog.Logger) *Service {
	if analytics == nil {
		analytics = domain.NopBusinessMetrics{}
	}
	return &Service{source: source, queue: queue, analytics: analytics, log: log, now: time.Now}
}

// Submit проверяет форму, дополняет её данными сессии и отправляет во внешний API.
// Уведомление тренеру ставится в очередь без гарантии: ошибка очереди не отменяет отправку.
func (s *Service) Submit(ctx context.Context, session *domain.Session, sub domain.FeedbackSubmission) (domain.FeedbackSubmission, error) {
	sub = prefill(session, sub)
	sub.Rating = strings.TrimSpace(sub.Rating)
	if err := forms.ValidateFeedback(sub); err != nil {
		metrics.IncValidationError("feedback")
		return sub, err
	}
	sub.SubmittedAt = s.now().UTC().Format(time.RFC3339Nano)

	if err := s.source.SubmitFeedback(ctx, sub); err != nil {
		return sub, fmt.Errorf("отправка отзыва: %w", err)
	}
	metrics.IncSubmission(sub.Rating)

	s.enqueue(ctx, sub)

	metric := domain.BusinessMetric{
		Event:      domain.BusinessMetricEventFeedbackSubmitted,
		Metadata:   map[string]any{"rating": sub.Rating},
		OccurredAt: s.now().UTC(),
	}
	if session != nil {
		metric.AccountID = session.Account.ID
		metric.Role = session.Account.Role
	}
	if err := s.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Warn().Err(err).Msg("submission: не удалось записать бизнес-метрику")
	}
	return sub, nil
}

func (s *Service) enqueue(ctx context.Context, sub domain.FeedbackSubmission) {
	if s.queue == nil {
		return
	}
	job := domain.FeedbackJob{
		ID:          uuid.NewString(),
		Name:        sub.Name,
		Email:       sub.Email,
		Rating:      sub.Rating,
		Feedback:    sub.Feedback,
		SubmittedAt: sub.SubmittedAt,
		EnqueuedAt:  s.now().UTC(),
	}
	if sub.StudentID != nil {
		job.StudentID = *sub.StudentID
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("job", job.ID).Msg("submission: не удалось поставить уведомление в очередь")
	}
}

// prefill подставляет имя и email из сессии, если они не заполнены, и привязывает отзыв к слушателю.
func prefill(session *domain.Session, sub domain.FeedbackSubmission) domain.FeedbackSubmission {
	sub.StudentID = nil
	if session == nil {
		return sub
	}
	if strings.TrimSpace(sub.Name) == "" {
		sub.Name = session.Account.Name
	}
	if sub.Email == "" {
		sub.Email = session.Account.Email
	}
	if session.Account.ID != "" {
		id := session.Account.ID
		sub.StudentID = &id
	}
	return sub
}
