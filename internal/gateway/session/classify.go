// Package session реализует координацию сессии: классификацию ошибок,
// повторные попытки, single-flight обновление токенов и машину состояний
// аутентификации.
package session

import (
	"context"
	"errors"
	"net"
	"net/http"

	"alumnet/internal/gateway/ports/api"
)

// Kind - класс ошибки сетевого вызова.
type Kind string

// Классы ошибок.
const (
	KindNetwork      Kind = "network"
	KindTimeout      Kind = "timeout"
	KindServer       Kind = "server"
	KindAuthTerminal Kind = "auth-terminal"
	KindUnknown      Kind = "unknown"
)

// Classification - результат классификации ошибки. Recoverable означает,
// что повтор с backoff оправдан и сессию следует сохранить; терминальный
// класс единственный, который оправдывает уничтожение сессии.
type Classification struct {
	Kind        Kind
	Recoverable bool
}

// Терминальные коды ошибок бэкенда при обновлении токена.
var terminalErrorCodes = map[string]struct{}{
	"INVALID_REFRESH_TOKEN":        {},
	"TOKEN_EXPIRED":                {},
	"TOKEN_NOT_ACTIVE":             {},
	"REFRESH_TOKEN_MISSING":        {},
	"REFRESH_TOKEN_INVALID_FORMAT": {},
}

// Classify определяет класс ошибки. Таблица решений вычисляется по порядку,
// первый подошедший класс выигрывает; неизвестные ошибки консервативно
// считаются невосстановимыми.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindUnknown, Recoverable: false}
	}

	if isTimeout(err) {
		return Classification{Kind: KindTimeout, Recoverable: true}
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status >= http.StatusInternalServerError:
			return Classification{Kind: KindServer, Recoverable: true}
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return Classification{Kind: KindAuthTerminal, Recoverable: false}
		default:
			if _, terminal := terminalErrorCodes[apiErr.Code]; terminal {
				return Classification{Kind: KindAuthTerminal, Recoverable: false}
			}
			return Classification{Kind: KindUnknown, Recoverable: false}
		}
	}

	// Ответ не получен вовсе: ошибка уровня соединения.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Kind: KindNetwork, Recoverable: true}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Classification{Kind: KindNetwork, Recoverable: true}
	}
	if errors.Is(err, ErrNoResponse) {
		return Classification{Kind: KindNetwork, Recoverable: true}
	}

	return Classification{Kind: KindUnknown, Recoverable: false}
}

// ErrNoResponse маркирует ошибку, при которой ответ от сервера не был
// получен (обрыв соединения, DNS, отказ в соединении). HTTP клиент
// оборачивает такие ошибки этим маркером.
var ErrNoResponse = errors.New("no response received")

// isTimeout определяет превышение таймаута запроса.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
