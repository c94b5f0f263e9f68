package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"feedback-portal/internal/adapters/repo"
	"feedback-portal/internal/adapters/telegram"
	"feedback-portal/internal/adapters/upstream"
	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/cache"
	"feedback-portal/internal/infra/config"
	"feedback-portal/internal/infra/db"
	"feedback-portal/internal/infra/log"
	"feedback-portal/internal/infra/metrics"
	"feedback-portal/internal/usecase/dashboard"
	"feedback-portal/internal/usecase/report"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к Redis")
	}
	defer redisClient.Close()

	var analytics domain.BusinessMetricRepo = domain.NopBusinessMetrics{}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
		}
		defer pool.Close()
		analytics = repo.NewPostgres(pool)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось создать бота")
	}

	upstreamClient, err := upstream.New(cfg.Upstream.BaseURL, upstream.WithTimeout(cfg.Upstream.Timeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: неверный адрес внешнего API")
	}

	reports := report.NewService(
		upstreamClient,
		cache.NewRedis(redisClient, "portal"),
		telegram.NewSender(botAPI),
		analytics,
		dashboard.NewPipeline(cfg.Dashboard.Locale),
		telegram.DailyReportParts,
		report.Options{ChatID: cfg.Telegram.TrainerChatID, Hour: cfg.Notify.ReportHour, Location: cfg.Location()},
		log.Component(logger, "report"),
	)

	metrics.StartServer(ctx, log.Component(logger, "metrics"), cfg.MetricsAddr)

	logger.Info().Int("hour", cfg.Notify.ReportHour).Str("tz", cfg.TZ).Msg("scheduler: старт")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановка")
			return
		case now := <-ticker.C:
			sent, err := reports.Tick(ctx, now)
			if err != nil {
				logger.Error().Err(err).Msg("scheduler: не удалось отправить отчёт")
				continue
			}
			if sent {
				logger.Info().Time("at", now).Msg("scheduler: отчёт отправлен")
			}
		}
	}
}
