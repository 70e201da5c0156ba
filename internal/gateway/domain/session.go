// Package domain содержит доменные сущности сессии Gateway.
package domain

import (
	"strings"
	"time"
)

// UserSnapshot - денормализованный снимок пользователя для мгновенного
// отображения без сетевых запросов. Это кэш, а не источник истины:
// свежий ответ сервера всегда его вытесняет.
type UserSnapshot struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	AccountStatus string `json:"account_status"`
	TenantID      string `json:"tenant_id"`
}

// Session представляет аутентифицированную сессию пользователя.
// Владелец - TokenStore; остальные компоненты держат только копии для чтения.
type Session struct {
	AccessToken   string
	RefreshToken  string
	User          UserSnapshot
	ExpiresAtHint *time.Time
}

// Valid сообщает, пригодна ли сессия для сохранения: обязателен
// непустой access token и заполненный снимок пользователя.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return false
	}
	return s.User.ID != 0 || s.User.Email != ""
}
