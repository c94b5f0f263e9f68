package domain

import (
	"strings"
	"time"
)

// Role описывает тип учётной записи.
type Role string

const (
	RoleStudent Role = "student"
	RoleTrainer Role = "trainer"
)

// ParseRole приводит ввод к Role. Для неизвестных значений ok=false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleTrainer:
		return RoleTrainer, true
	default:
		return "", false
	}
}

// LoginPath возвращает страницу входа для роли.
func (r Role) LoginPath() string {
	if r == RoleTrainer {
		return "/trainer-login"
	}
	return "/learner-login"
}

// Account описывает пользователя, которого вернул внешний сервис авторизации.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Session описывает явную сессию пользователя. Создаётся при входе и удаляется
// при выходе или по истечении срока.
type Session struct {
	ID        string    `json:"id"`
	Account   Account   `json:"account"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TTL возвращает оставшееся время жизни сессии.
func (s Session) TTL(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	left := s.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Registration содержит данные формы создания аккаунта.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

// Credentials содержит данные формы входа.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
