// Package store содержит реализации хранилища токенов: in-memory, Redis
// и Postgres, плюс декоратор зеркалирования в cookie.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/store"
)

// MemoryStore - потокобезопасное хранилище токенов в памяти процесса.
// Используется по умолчанию и в тестах.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemoryStore создает пустое хранилище токенов в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

// Save сохраняет сессию. Некорректная сессия - no-op: сбой персистентности
// не должен ронять вызывающий поток. Слот refresh token перезаписывается
// только при непустом значении, иначе существующий сохраняется.
func (s *MemoryStore) Save(_ context.Context, session *domain.Session) error {
	if !session.Valid() {
		return nil
	}

	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[store.SlotAccessToken] = session.AccessToken
	s.slots[store.SlotUser] = string(userJSON)
	if strings.TrimSpace(session.RefreshToken) != "" {
		s.slots[store.SlotRefreshToken] = session.RefreshToken
	}
	return nil
}

// AccessToken возвращает access token либо пустую строку.
func (s *MemoryStore) AccessToken(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalizeToken(s.slots[store.SlotAccessToken]), nil
}

// User возвращает кэшированный снимок пользователя либо nil.
func (s *MemoryStore) User(_ context.Context) (*domain.UserSnapshot, error) {
	s.mu.RLock()
	raw := s.slots[store.SlotUser]
	s.mu.RUnlock()

	return decodeUser(raw), nil
}

// SaveRefreshToken сохраняет refresh token. Пустое значение - no-op.
func (s *MemoryStore) SaveRefreshToken(_ context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	s.mu.Lock()
	s.slots[store.SlotRefreshToken] = token
	s.mu.Unlock()
	return nil
}

// RefreshToken возвращает refresh token либо пустую строку.
func (s *MemoryStore) RefreshToken(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalizeToken(s.slots[store.SlotRefreshToken]), nil
}

// Clear атомарно удаляет все три артефакта сессии. Идемпотентен.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	delete(s.slots, store.SlotAccessToken)
	delete(s.slots, store.SlotRefreshToken)
	delete(s.slots, store.SlotUser)
	s.mu.Unlock()
	return nil
}

// normalizeToken приводит пустые и пробельные значения к отсутствующим.
func normalizeToken(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return raw
}

// decodeUser разбирает снимок пользователя из JSON; мусор читается как nil.
func decodeUser(raw string) *domain.UserSnapshot {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var user domain.UserSnapshot
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}
