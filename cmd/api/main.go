package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"feedback-portal/internal/adapters/httpapi"
	"feedback-portal/internal/adapters/repo"
	"feedback-portal/internal/adapters/upstream"
	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/cache"
	"feedback-portal/internal/infra/config"
	"feedback-portal/internal/infra/db"
	httpinfra "feedback-portal/internal/infra/http"
	"feedback-portal/internal/infra/log"
	"feedback-portal/internal/infra/metrics"
	"feedback-portal/internal/infra/queue"
	"feedback-portal/internal/usecase/dashboard"
	"feedback-portal/internal/usecase/session"
	"feedback-portal/internal/usecase/submission"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к Redis")
	}
	defer redisClient.Close()

	var analytics domain.BusinessMetricRepo = domain.NopBusinessMetrics{}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к БД")
		}
		defer pool.Close()
		repoAdapter := repo.NewPostgres(pool)
		if err := repoAdapter.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось подготовить схему")
		}
		analytics = repoAdapter
	} else {
		logger.Warn().Msg("api: PG_DSN не задан, бизнес-метрики не сохраняются")
	}

	feedbackQueue, closeQueue, err := queue.Open(cfg.Queues.Backend, redisClient, cfg.RabbitURL, cfg.Queues.Feedback)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось открыть очередь уведомлений")
	}
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Error().Err(err).Msg("api: ошибка закрытия очереди")
		}
	}()

	upstreamClient, err := upstream.New(cfg.Upstream.BaseURL, upstream.WithTimeout(cfg.Upstream.Timeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: неверный адрес внешнего API")
	}

	sessionService := session.NewService(upstreamClient, cache.NewRedisSessions(redisClient), analytics, cfg.Session.TTL, log.Component(logger, "session"))
	submissionService := submission.NewService(upstreamClient, feedbackQueue, analytics, log.Component(logger, "submission"))
	dashboardService := dashboard.NewService(upstreamClient, cache.NewRedis(redisClient, "portal"), dashboard.NewPipeline(cfg.Dashboard.Locale), log.Component(logger, "dashboard"))

	server := httpinfra.NewServer(logger)
	api := httpapi.New(sessionService, submissionService, dashboardService,
		httpapi.WithLogger(log.Component(logger, "httpapi")),
		httpapi.WithCookie(cfg.Session.CookieName, cfg.Session.Secure),
	)
	api.Mount(server.Router)

	metrics.StartServer(ctx, log.Component(logger, "metrics"), cfg.MetricsAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.Port), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}

	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка остановки")
	}
}
