package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	DashboardBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_build_seconds",
		Help:    "Время построения представления дашборда",
		Buckets: prometheus.DefBuckets,
	})
	DashboardSnapshotTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_snapshot_total",
		Help: "Загрузки снимка отзывов по источнику",
	}, []string{"source"})
	FeedbackSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_submissions_total",
		Help: "Отправленные отзывы по оценке",
	}, []string{"rating"})
	FeedbackValidationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_validation_errors_total",
		Help: "Отклонённые формы по типу",
	}, []string{"form"})
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logins_total",
		Help: "Попытки входа по роли и результату",
	}, []string{"role", "result"})
	ActiveSessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Созданные сессии",
	})
	NotificationSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_send_errors_total",
		Help: "Ошибки отправки уведомлений тренеру",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		DashboardBuildSeconds,
		DashboardSnapshotTotal,
		FeedbackSubmissionsTotal,
		FeedbackValidationErrors,
		LoginsTotal,
		ActiveSessionsCreated,
		NotificationSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLogin учитывает попытку входа.
func ObserveLogin(role string, err error) {
	if role == "" {
		role = "unknown"
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	LoginsTotal.WithLabelValues(role, result).Inc()
}

// IncSubmission увеличивает счётчик отзывов для оценки.
func IncSubmission(rating string) {
	if rating == "" {
		rating = "unknown"
	}
	FeedbackSubmissionsTotal.WithLabelValues(rating).Inc()
}

// IncValidationError учитывает форму, отклонённую проверкой.
func IncValidationError(form string) {
	FeedbackValidationErrors.WithLabelValues(form).Inc()
}
