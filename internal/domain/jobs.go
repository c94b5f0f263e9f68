package domain

import (
	"context"
	"time"
)

// FeedbackJob содержит информацию о новом отзыве для уведомления тренера.
type FeedbackJob struct {
	ID          string    `json:"job_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Rating      string    `json:"rating"`
	Feedback    string    `json:"feedback"`
	StudentID   string    `json:"student_id,omitempty"`
	SubmittedAt string    `json:"submitted_at"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// FeedbackQueue описывает очередь уведомлений о новых отзывах.
type FeedbackQueue interface {
	Enqueue(ctx context.Context, job FeedbackJob) error
	Receive(ctx context.Context) (FeedbackJob, AckFunc, error)
}

// AckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type AckFunc func(success bool) error
