package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"feedback-portal/internal/adapters/repo"
	"feedback-portal/internal/adapters/telegram"
	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/cache"
	"feedback-portal/internal/infra/config"
	"feedback-portal/internal/infra/db"
	"feedback-portal/internal/infra/log"
	"feedback-portal/internal/infra/metrics"
	"feedback-portal/internal/infra/queue"
	"feedback-portal/internal/usecase/notify"
)

// workers задаёт число параллельных обработчиков очереди.
const workers = 2

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telegram.Token == "" || cfg.Telegram.TrainerChatID == 0 {
		logger.Fatal().Msg("notifier: нужны TG_BOT_TOKEN и TG_TRAINER_CHAT_ID")
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: нет подключения к Redis")
	}
	defer redisClient.Close()

	var analytics domain.BusinessMetricRepo = domain.NopBusinessMetrics{}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: нет подключения к БД")
		}
		defer pool.Close()
		analytics = repo.NewPostgres(pool)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI)
	deliveries := cache.NewRedis(redisClient, "portal")

	metrics.StartServer(ctx, log.Component(logger, "metrics"), cfg.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		feedbackQueue, closeQueue, err := queue.Open(cfg.Queues.Backend, redisClient, cfg.RabbitURL, cfg.Queues.Feedback)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: не удалось открыть очередь")
		}
		defer closeQueue()

		worker := notify.NewWorker(feedbackQueue, sender, deliveries, analytics, telegram.FormatFeedbackAlert,
			cfg.Telegram.TrainerChatID, cfg.Notify.LowRatingThreshold,
			logger.With().Str("component", "notifier").Int("worker", i).Logger())
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	logger.Info().Str("backend", cfg.Queues.Backend).Int("workers", workers).Msg("notifier: старт")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("notifier: остановлен с ошибкой")
	}
	logger.Info().Msg("notifier: остановка")
}
