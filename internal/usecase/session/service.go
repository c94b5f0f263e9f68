package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
	"feedback-portal/internal/usecase/forms"
)

// Service регистрирует пользователей и управляет их сессиями.
type Service struct {
	accounts  domain.AccountGateway
	store     domain.SessionStore
	analytics domain.BusinessMetricRepo
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис сессий. analytics может быть nil.
func NewService(accounts domain.AccountGateway, store domain.SessionStore, analytics domain.BusinessMetricRepo, ttl time.Duration, log zerolog.Logger) *Service {
	if analytics == nil {
		analytics = domain.NopBusinessMetrics{}
	}
	return &Service{accounts: accounts, store: store, analytics: analytics, ttl: ttl, log: log, now: time.Now}
}

// MismatchMessage возвращает текст для пользователя, который вошёл не через свою страницу.
func MismatchMessage(requested domain.Role) string {
	if requested == domain.RoleTrainer {
		return "This account is not a trainer. Use Student Login."
	}
	return "This account is not a student. Use Trainer Login."
}

// Register создаёт аккаунт во внешнем сервисе и возвращает роль, под которой нужно войти.
func (s *Service) Register(ctx context.Context, reg domain.Registration) (domain.Role, error) {
	if err := forms.ValidateRegistration(reg); err != nil {
		metrics.IncValidationError("registration")
		return "", err
	}
	role, _ := domain.ParseRole(reg.Role)
	reg.Role = string(role)
	reg.Email = strings.TrimSpace(reg.Email)

	if err := s.accounts.Register(ctx, reg); err != nil {
		return "", fmt.Errorf("регистрация: %w", err)
	}
	s.record(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventUserRegistered,
		Role:     role,
		Metadata: map[string]any{"email": reg.Email},
	})
	return role, nil
}

// Login проверяет учётные данные и создаёт сессию. Аккаунт другой роли не допускается.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := forms.ValidateLogin(creds); err != nil {
		metrics.IncValidationError("login")
		return domain.Session{}, err
	}
	role, ok := domain.ParseRole(string(creds.Role))
	if !ok {
		metrics.IncValidationError("login")
		v := domain.Violations{}
		v.Add("role", "Please select your role type")
		return domain.Session{}, v.Err()
	}
	creds.Role = role

	res, err := s.accounts.Login(ctx, creds)
	if err != nil {
		metrics.ObserveLogin(string(role), err)
		return domain.Session{}, fmt.Errorf("вход: %w", err)
	}
	accountRole, _ := domain.ParseRole(string(res.Account.Role))
	if accountRole != role {
		metrics.ObserveLogin(string(role), domain.ErrRoleMismatch)
		s.log.Info().Str("account", res.Account.ID).Str("requested", string(role)).Str("actual", string(res.Account.Role)).Msg("session: роль аккаунта не совпала")
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrRoleMismatch, MismatchMessage(role))
	}
	res.Account.Role = accountRole

	now := s.now().UTC()
	sess := domain.Session{
		ID:        uuid.NewString(),
		Account:   res.Account,
		Token:     res.Token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, sess, s.ttl); err != nil {
		metrics.ObserveLogin(string(role), err)
		return domain.Session{}, fmt.Errorf("сохранение сессии: %w", err)
	}
	metrics.ObserveLogin(string(role), nil)
	metrics.ActiveSessionsCreated.Inc()

	s.record(ctx, domain.BusinessMetric{
		Event:     domain.BusinessMetricEventUserLoggedIn,
		AccountID: res.Account.ID,
		Role:      role,
	})
	return sess, nil
}

// Resolve возвращает действующую сессию. Истёкшая сессия удаляется.
func (s *Service) Resolve(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.store.Delete(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("session", id).Msg("session: не удалось удалить истёкшую сессию")
		}
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Logout завершает сессию. Повторный выход не считается ошибкой.
func (s *Service) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, metric domain.BusinessMetric) {
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = s.now().UTC()
	}
	if err := s.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Warn().Err(err).Str("event", metric.Event).Msg("session: не удалось записать бизнес-метрику")
	}
}
