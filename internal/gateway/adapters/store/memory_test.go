package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/store"
)

func validSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         domain.UserSnapshot{ID: 1, Email: "a@b.c", FullName: "Test User"},
	}
}

func TestMemoryStoreSaveAndRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, validSession()))

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", access)

	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)

	user, err := s.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@b.c", user.Email)
	assert.Equal(t, int64(1), user.ID)
}

func TestMemoryStoreInvalidSessionIsNoOp(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		session *domain.Session
	}{
		{name: "nil session", session: nil},
		{name: "blank access token", session: &domain.Session{AccessToken: "   ", User: domain.UserSnapshot{ID: 1}}},
		{name: "empty user", session: &domain.Session{AccessToken: "access-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			require.NoError(t, s.Save(ctx, tt.session))

			access, err := s.AccessToken(ctx)
			require.NoError(t, err)
			assert.Empty(t, access)
		})
	}
}

func TestMemoryStoreWhitespaceReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.slots[store.SlotAccessToken] = "   \n\t"
	s.slots[store.SlotRefreshToken] = ""

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)

	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, refresh)
}

func TestMemoryStoreMalformedUserReadsAsNil(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.slots[store.SlotUser] = "{not json"

	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMemoryStoreEmptyRefreshTokenKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, validSession()))

	// Ротация без нового refresh token не затирает существующий.
	rotated := validSession()
	rotated.AccessToken = "access-2"
	rotated.RefreshToken = ""
	require.NoError(t, s.Save(ctx, rotated))

	access, _ := s.AccessToken(ctx)
	assert.Equal(t, "access-2", access)
	refresh, _ := s.RefreshToken(ctx)
	assert.Equal(t, "refresh-1", refresh)
}

func TestMemoryStoreSaveRefreshTokenEmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SaveRefreshToken(ctx, "refresh-1"))
	require.NoError(t, s.SaveRefreshToken(ctx, "   "))

	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestMemoryStoreClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, validSession()))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	access, _ := s.AccessToken(ctx)
	assert.Empty(t, access)
	refresh, _ := s.RefreshToken(ctx)
	assert.Empty(t, refresh)
	user, _ := s.User(ctx)
	assert.Nil(t, user)
}
