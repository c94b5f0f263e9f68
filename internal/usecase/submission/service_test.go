package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
)

type stubSource struct {
	submitted []domain.FeedbackSubmission
	err       error
}

func (s *stubSource) ListFeedback(context.Context) ([]domain.FeedbackRecord, error) { return nil, nil }

func (s *stubSource) SubmitFeedback(_ context.Context, sub domain.FeedbackSubmission) error {
	if s.err != nil {
		return s.err
	}
	s.submitted = append(s.submitted, sub)
	return nil
}

type stubQueue struct {
	jobs []domain.FeedbackJob
	err  error
}

func (q *stubQueue) Enqueue(_ context.Context, job domain.FeedbackJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Receive(context.Context) (domain.FeedbackJob, domain.AckFunc, error) {
	return domain.FeedbackJob{}, nil, errors.New("not implemented")
}

type recordingMetrics struct {
	metrics []domain.BusinessMetric
}

func (r *recordingMetrics) RecordBusinessMetric(_ context.Context, m domain.BusinessMetric) error {
	r.metrics = append(r.metrics, m)
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("MSK", 3*3600))

func newTestService(source *stubSource, queue *stubQueue, analytics *recordingMetrics) *Service {
	svc := NewService(source, queue, analytics, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestSubmitPrefillsFromSession(t *testing.T) {
	source := &stubSource{}
	queue := &stubQueue{}
	analytics := &recordingMetrics{}
	svc := newTestService(source, queue, analytics)
	session := &domain.Session{ID: "s", Account: domain.Account{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: domain.RoleStudent}}

	sent, err := svc.Submit(context.Background(), session, domain.FeedbackSubmission{Phone: "123", Rating: "4", Feedback: "good"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sent.Name != "Ann" || sent.Email != "ann@example.com" {
		t.Fatalf("не подставлены данные сессии: %+v", sent)
	}
	if sent.StudentID == nil || *sent.StudentID != "u1" {
		t.Fatalf("ожидали studentId u1")
	}
	if sent.SubmittedAt != "2024-05-01T07:00:00Z" {
		t.Fatalf("submittedAt = %s", sent.SubmittedAt)
	}
	if len(source.submitted) != 1 {
		t.Fatalf("ожидали одну отправку")
	}
	if len(queue.jobs) != 1 || queue.jobs[0].StudentID != "u1" || queue.jobs[0].ID == "" || queue.jobs[0].Rating != "4" {
		t.Fatalf("неожиданная задача: %+v", queue.jobs)
	}
	if len(analytics.metrics) != 1 || analytics.metrics[0].AccountID != "u1" || analytics.metrics[0].Event != domain.BusinessMetricEventFeedbackSubmitted {
		t.Fatalf("неожиданные метрики: %+v", analytics.metrics)
	}
}

func TestSubmitKeepsTypedValuesAndAnonymous(t *testing.T) {
	source := &stubSource{}
	svc := newTestService(source, &stubQueue{}, &recordingMetrics{})
	id := "spoofed"
	sub := domain.FeedbackSubmission{Name: "Bob", Email: "bob@example.com", Phone: "1", Rating: "5", Feedback: "great", StudentID: &id}

	sent, err := svc.Submit(context.Background(), nil, sub)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sent.StudentID != nil {
		t.Fatalf("анонимный отзыв не должен иметь studentId")
	}

	session := &domain.Session{Account: domain.Account{ID: "u1", Name: "Ann", Email: "ann@example.com"}}
	sent, err = svc.Submit(context.Background(), session, sub)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sent.Name != "Bob" || sent.Email != "bob@example.com" {
		t.Fatalf("введённые значения не должны перезаписываться: %+v", sent)
	}
}

func TestSubmitValidationStopsUpstream(t *testing.T) {
	source := &stubSource{}
	queue := &stubQueue{}
	svc := newTestService(source, queue, &recordingMetrics{})

	_, err := svc.Submit(context.Background(), nil, domain.FeedbackSubmission{Name: "Bob"})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ожидали ValidationError, получили %v", err)
	}
	if len(source.submitted) != 0 || len(queue.jobs) != 0 {
		t.Fatalf("невалидный отзыв не должен отправляться")
	}
}

func TestSubmitQueueFailureIsNotFatal(t *testing.T) {
	source := &stubSource{}
	svc := newTestService(source, &stubQueue{err: errors.New("redis down")}, &recordingMetrics{})
	sub := domain.FeedbackSubmission{Name: "Bob", Email: "bob@example.com", Phone: "1", Rating: "2", Feedback: "meh"}

	if _, err := svc.Submit(context.Background(), nil, sub); err != nil {
		t.Fatalf("ошибка очереди не должна отменять отправку: %v", err)
	}
	if len(source.submitted) != 1 {
		t.Fatalf("отзыв должен уйти во внешний API")
	}
}

func TestSubmitUpstreamFailure(t *testing.T) {
	queue := &stubQueue{}
	svc := newTestService(&stubSource{err: &domain.UpstreamError{Status: 400, Message: "bad"}}, queue, &recordingMetrics{})
	sub := domain.FeedbackSubmission{Name: "Bob", Email: "bob@example.com", Phone: "1", Rating: "2", Feedback: "meh"}

	_, err := svc.Submit(context.Background(), nil, sub)
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.Message != "bad" {
		t.Fatalf("ожидали UpstreamError, получили %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("уведомление не должно ставиться при ошибке отправки")
	}
}
