// Package http содержит компоненты HTTP сервера Gateway.
package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
)

// CookieMirror держит актуальную проекцию access token для cookie
// authToken и умеет штамповать ее на ответ. Реализует store.CookieSink:
// хранилище токенов дергает SetToken/ClearToken в том же вызове
// Save/Clear, middleware переносит состояние на каждый ответ.
type CookieMirror struct {
	name   string
	maxAge time.Duration
	secure bool

	mu    sync.RWMutex
	token string
	dirty bool
}

// NewCookieMirror создает зеркало cookie c заданными параметрами.
func NewCookieMirror(name string, maxAge time.Duration, secure bool) *CookieMirror {
	return &CookieMirror{name: name, maxAge: maxAge, secure: secure}
}

// SetToken фиксирует новое значение токена для проекции.
func (m *CookieMirror) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.dirty = true
	m.mu.Unlock()
}

// ClearToken помечает cookie к удалению.
func (m *CookieMirror) ClearToken() {
	m.mu.Lock()
	m.token = ""
	m.dirty = true
	m.mu.Unlock()
}

// Apply штампует текущее состояние зеркала на ответ. Очистка выполняется
// уже истекшей датой, как того требуют не-JS потребители cookie.
func (m *CookieMirror) Apply(ctx fiber.Ctx) {
	m.mu.RLock()
	token, dirty := m.token, m.dirty
	m.mu.RUnlock()

	if !dirty {
		return
	}

	cookie := &fiber.Cookie{
		Name:     m.name,
		Path:     "/",
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}

	if token == "" {
		cookie.Value = ""
		cookie.Expires = time.Unix(0, 0)
		cookie.MaxAge = -1
	} else {
		cookie.Value = token
		cookie.Expires = time.Now().Add(m.maxAge)
		cookie.MaxAge = int(m.maxAge / time.Second)
	}

	ctx.Cookie(cookie)
}
