package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
)

// FetchFailedMessage показывается тренеру при любой ошибке загрузки отзывов.
const FetchFailedMessage = "Error fetching feedback. Please try again later."

// ErrFetchFailed возвращается, если снимок отзывов получить не удалось.
var ErrFetchFailed = errors.New("fetch feedback failed")

const defaultSnapshotTTL = 30 * time.Minute

// Service держит снимок отзывов на время сессии просмотра и строит по нему представление.
type Service struct {
	source   domain.FeedbackSource
	cache    domain.Cache
	pipeline Pipeline
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт сервис дашборда.
func NewService(source domain.FeedbackSource, cache domain.Cache, pipeline Pipeline, log zerolog.Logger) *Service {
	return &Service{source: source, cache: cache, pipeline: pipeline, log: log, now: time.Now}
}

// View возвращает отфильтрованное и отсортированное представление. Снимок
// загружается из внешнего API один раз и дальше берётся из кэша сессии.
func (s *Service) View(ctx context.Context, session domain.Session, state domain.ViewState) (domain.DashboardView, error) {
	start := time.Now()
	defer func() { metrics.DashboardBuildSeconds.Observe(time.Since(start).Seconds()) }()

	records, err := s.snapshot(ctx, session)
	if err != nil {
		return domain.DashboardView{State: domain.LoadStateError, Params: state}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return s.pipeline.Build(records, state), nil
}

// Reload сбрасывает снимок, следующий View загрузит отзывы заново.
func (s *Service) Reload(ctx context.Context, session domain.Session) error {
	if err := s.cache.Delete(ctx, snapshotKey(session.ID)); err != nil {
		return fmt.Errorf("сброс снимка: %w", err)
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, session domain.Session) ([]domain.FeedbackRecord, error) {
	key := snapshotKey(session.ID)
	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var records []domain.FeedbackRecord
		decodeErr := json.Unmarshal(raw, &records)
		if decodeErr == nil {
			metrics.DashboardSnapshotTotal.WithLabelValues("cache").Inc()
			return records, nil
		}
		s.log.Warn().Err(decodeErr).Str("session", session.ID).Msg("dashboard: битый снимок в кэше")
	case !errors.Is(err, domain.ErrCacheMiss):
		s.log.Warn().Err(err).Msg("dashboard: кэш недоступен, загружаем напрямую")
	}

	records, err := s.source.ListFeedback(ctx)
	if err != nil {
		return nil, err
	}
	metrics.DashboardSnapshotTotal.WithLabelValues("upstream").Inc()

	payload, err := json.Marshal(records)
	if err != nil {
		return records, nil
	}
	ttl := session.TTL(s.now())
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	if err := s.cache.Set(ctx, key, payload, ttl); err != nil {
		s.log.Warn().Err(err).Str("session", session.ID).Msg("dashboard: не удалось сохранить снимок")
	}
	return records, nil
}

func snapshotKey(sessionID string) string {
	return "dashboard:snapshot:" + sessionID
}
