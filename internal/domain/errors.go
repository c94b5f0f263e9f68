package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSessionNotFound возвращается, если сессии нет или она истекла.
	ErrSessionNotFound = errors.New("session not found")

	// ErrForbiddenRole возвращается, если роль сессии не подходит для операции.
	ErrForbiddenRole = errors.New("forbidden for this role")

	// ErrRoleMismatch возвращается, если внешний сервис вернул аккаунт с другой ролью.
	ErrRoleMismatch = errors.New("account role does not match requested login")

	// ErrCacheMiss возвращается кэшем при отсутствии ключа.
	ErrCacheMiss = errors.New("cache miss")
)

// UpstreamError описывает неуспешный ответ внешнего API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error: status=%d", e.Status)
	}
	return fmt.Sprintf("upstream error: status=%d message=%s", e.Status, e.Message)
}

// Violations сопоставляет имя поля формы с причиной ошибки.
type Violations map[string]string

// Add записывает нарушение, если для поля его ещё нет.
func (v Violations) Add(field, reason string) {
	if _, ok := v[field]; ok {
		return
	}
	v[field] = reason
}

// Valid сообщает, что нарушений нет.
func (v Violations) Valid() bool {
	return len(v) == 0
}

// Err возвращает *ValidationError или nil.
func (v Violations) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// ValidationError оборачивает нарушения формы в error.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for field := range e.Violations {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Violations[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
