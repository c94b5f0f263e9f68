package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/usecase/dashboard"
)

const reportKeyTTL = 36 * time.Hour

// Formatter превращает сводку дня в готовые к отправке части сообщения.
type Formatter func(date time.Time, view domain.DashboardView, today []domain.FeedbackRecord) []string

// Service раз в день отправляет тренеру сводку по отзывам.
type Service struct {
	source    domain.FeedbackSource
	cache     domain.Cache
	sender    domain.MessageSender
	analytics domain.BusinessMetricRepo
	pipeline  dashboard.Pipeline
	format    Formatter
	chatID    int64
	hour      int
	loc       *time.Location
	log       zerolog.Logger
}

// Options задаёт расписание и адресата отчёта.
type Options struct {
	ChatID   int64
	Hour     int
	Location *time.Location
}

// NewService создаёт сервис отчётов. analytics может быть nil.
func NewService(source domain.FeedbackSource, cache domain.Cache, sender domain.MessageSender, analytics domain.BusinessMetricRepo, pipeline dashboard.Pipeline, format Formatter, opts Options, log zerolog.Logger) *Service {
	if analytics == nil {
		analytics = domain.NopBusinessMetrics{}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:    source,
		cache:     cache,
		sender:    sender,
		analytics: analytics,
		pipeline:  pipeline,
		format:    format,
		chatID:    opts.ChatID,
		hour:      opts.Hour,
		loc:       loc,
		log:       log,
	}
}

// Tick отправляет отчёт, если наступил час отправки и отчёт за этот день ещё не уходил.
// Возвращает true, если отчёт был отправлен этим вызовом.
func (s *Service) Tick(ctx context.Context, now time.Time) (bool, error) {
	local := now.In(s.loc)
	if local.Hour() != s.hour {
		return false, nil
	}
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	key := "report:" + day.Format("2006-01-02")

	sent := false
	err := s.cache.Once(ctx, key, reportKeyTTL, func() error {
		if err := s.deliver(ctx, day, key+":parts"); err != nil {
			return err
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ежедневный отчёт %s: %w", day.Format("2006-01-02"), err)
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, day time.Time, progressKey string) error {
	records, err := s.source.ListFeedback(ctx)
	if err != nil {
		return fmt.Errorf("загрузка отзывов: %w", err)
	}
	view := s.pipeline.Build(records, domain.ViewState{SortKey: domain.SortByDate})
	today := SubmittedOn(view.Items, day, s.loc)

	// Части, ушедшие до прошлой ошибки, повторно не отправляются.
	parts := s.format(day, view, today)
	for i := s.sentParts(ctx, progressKey); i < len(parts); i++ {
		if err := s.sender.Send(ctx, s.chatID, parts[i]); err != nil {
			return fmt.Errorf("отправка части %d отчёта: %w", i+1, err)
		}
		if err := s.cache.Set(ctx, progressKey, []byte(strconv.Itoa(i+1)), reportKeyTTL); err != nil {
			s.log.Warn().Err(err).Int("part", i+1).Msg("report: не удалось сохранить прогресс отправки")
		}
	}
	s.log.Info().Int("total", view.Total).Int("today", len(today)).Msg("report: отчёт отправлен")

	metric := domain.BusinessMetric{
		Event:      domain.BusinessMetricEventReportDelivered,
		Role:       domain.RoleTrainer,
		Metadata:   map[string]any{"date": day.Format("2006-01-02"), "total": view.Total, "today": len(today), "average": view.Average},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Warn().Err(err).Msg("report: не удалось записать бизнес-метрику")
	}
	return nil
}

func (s *Service) sentParts(ctx context.Context, key string) int {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.log.Warn().Err(err).Msg("report: прогресс отправки недоступен")
		}
		return 0
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SubmittedOn оставляет записи, отправленные в указанный день в часовом поясе loc.
func SubmittedOn(records []domain.FeedbackRecord, day time.Time, loc *time.Location) []domain.FeedbackRecord {
	y, m, d := day.In(loc).Date()
	out := make([]domain.FeedbackRecord, 0)
	for _, rec := range records {
		at, ok := dashboard.ParseTimestamp(rec.SubmittedAt)
		if !ok {
			continue
		}
		ry, rm, rd := at.In(loc).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, rec)
		}
	}
	return out
}
