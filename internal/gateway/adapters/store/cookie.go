package store

import (
	"context"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/store"
)

// CookieSink принимает проекцию access token в cookie. Реализуется HTTP
// слоем; хранилище не знает про транспорт.
type CookieSink interface {
	SetToken(token string)
	ClearToken()
}

// MirroredStore оборачивает хранилище токенов и зеркалирует access token
// в cookie в рамках того же вызова Save/Clear, так что cookie и основное
// хранилище не могут разойтись между вызовами.
type MirroredStore struct {
	store.TokenStore
	sink CookieSink
}

// NewMirroredStore создает хранилище с зеркалированием в cookie.
func NewMirroredStore(inner store.TokenStore, sink CookieSink) *MirroredStore {
	return &MirroredStore{TokenStore: inner, sink: sink}
}

// Save сохраняет сессию и обновляет cookie тем же вызовом.
func (s *MirroredStore) Save(ctx context.Context, session *domain.Session) error {
	if err := s.TokenStore.Save(ctx, session); err != nil {
		return err
	}
	if session.Valid() {
		s.sink.SetToken(session.AccessToken)
	}
	return nil
}

// Clear очищает хранилище и cookie тем же вызовом.
func (s *MirroredStore) Clear(ctx context.Context) error {
	if err := s.TokenStore.Clear(ctx); err != nil {
		return err
	}
	s.sink.ClearToken()
	return nil
}
