// Package api определяет контракт REST API бэкенда аутентификации.
package api

import (
	"context"

	"alumnet/internal/gateway/domain"
)

// Credentials - данные для входа пользователя.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult - результат успешного входа.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.UserSnapshot
}

// RefreshResult - результат успешного обновления токенов.
// RefreshToken пуст, если бэкенд не ротировал refresh token.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// AuthAPI определяет операции бэкенда аутентификации, от которых зависит
// координация сессии. Токены передаются явно: реализация не читает хранилище.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)

	// Refresh обменивает refresh token на новый access token. Пустой
	// refreshToken означает обновление через httpOnly cookie.
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)

	// Verify проверяет действительность access token и возвращает
	// актуальный снимок пользователя.
	Verify(ctx context.Context, accessToken string) (*domain.UserSnapshot, error)

	Logout(ctx context.Context, accessToken string) error

	// Me возвращает текущего пользователя.
	Me(ctx context.Context, accessToken string) (*domain.UserSnapshot, error)
}
