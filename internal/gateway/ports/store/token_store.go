// Package store определяет контракт хранилища токенов и снимка пользователя.
package store

import (
	"context"

	"alumnet/internal/gateway/domain"
)

// TokenStore хранит три артефакта сессии: access token, refresh token
// и снимок пользователя. Сетевых вызовов реализация делать не должна.
//
// Контракт чтения: пустая строка или строка из пробелов читается как
// отсутствующее значение. Save с некорректной сессией - no-op, а не ошибка.
// Clear очищает все три слота атомарно с точки зрения вызывающего
// и идемпотентен.
type TokenStore interface {
	Save(ctx context.Context, session *domain.Session) error

	AccessToken(ctx context.Context) (string, error)

	User(ctx context.Context) (*domain.UserSnapshot, error)

	SaveRefreshToken(ctx context.Context, token string) error

	RefreshToken(ctx context.Context) (string, error)

	Clear(ctx context.Context) error
}

// Имена слотов хранилища. Реализации обязаны использовать ровно эти
// три слота, чтобы частичная очистка была невозможна.
const (
	SlotAccessToken  = "auth:access_token"
	SlotRefreshToken = "auth:refresh_token" // #nosec G101 - имя слота, не секрет
	SlotUser         = "auth:user"
)
