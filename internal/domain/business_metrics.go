package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	AccountID  string
	Role       Role
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventUserRegistered фиксирует регистрацию нового пользователя.
	BusinessMetricEventUserRegistered = "user_registered"
	// BusinessMetricEventUserLoggedIn фиксирует успешный вход.
	BusinessMetricEventUserLoggedIn = "user_logged_in"
	// BusinessMetricEventFeedbackSubmitted фиксирует отправку отзыва.
	BusinessMetricEventFeedbackSubmitted = "feedback_submitted"
	// BusinessMetricEventFeedbackNotified фиксирует доставку уведомления тренеру.
	BusinessMetricEventFeedbackNotified = "feedback_notified"
	// BusinessMetricEventReportDelivered фиксирует отправку ежедневного отчёта.
	BusinessMetricEventReportDelivered = "report_delivered"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}

// NopBusinessMetrics отбрасывает события, когда хранилище не настроено.
type NopBusinessMetrics struct{}

// RecordBusinessMetric ничего не делает.
func (NopBusinessMetrics) RecordBusinessMetric(context.Context, BusinessMetric) error { return nil }
