package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/api"
)

// mockAuthAPI - мок бэкенда аутентификации.
type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error) {
	args := m.Called(ctx, creds)
	if result, ok := args.Get(0).(*api.LoginResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthAPI) Refresh(ctx context.Context, refreshToken string) (*api.RefreshResult, error) {
	args := m.Called(ctx, refreshToken)
	if result, ok := args.Get(0).(*api.RefreshResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthAPI) Verify(ctx context.Context, accessToken string) (*domain.UserSnapshot, error) {
	args := m.Called(ctx, accessToken)
	if user, ok := args.Get(0).(*domain.UserSnapshot); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthAPI) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *mockAuthAPI) Me(ctx context.Context, accessToken string) (*domain.UserSnapshot, error) {
	args := m.Called(ctx, accessToken)
	if user, ok := args.Get(0).(*domain.UserSnapshot); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeStore - управляемое хранилище токенов для тестов координации:
// считает вызовы и позволяет инъецировать ошибки.
type fakeStore struct {
	mu sync.Mutex

	accessToken  string
	refreshToken string
	user         *domain.UserSnapshot

	saveCalls  int
	clearCalls int

	saveErr  error
	clearErr error
	readErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) seed(accessToken, refreshToken string, user *domain.UserSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.user = user
}

func (s *fakeStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	if !session.Valid() {
		return nil
	}
	s.accessToken = session.AccessToken
	if strings.TrimSpace(session.RefreshToken) != "" {
		s.refreshToken = session.RefreshToken
	}
	user := session.User
	s.user = &user
	return nil
}

func (s *fakeStore) AccessToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.readErr
}

func (s *fakeStore) User(_ context.Context) (*domain.UserSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.user, nil
}

func (s *fakeStore) SaveRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(token) != "" {
		s.refreshToken = token
	}
	return nil
}

func (s *fakeStore) RefreshToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken, s.readErr
}

func (s *fakeStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	return nil
}

func (s *fakeStore) snapshot() (string, string, *domain.UserSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken, s.user
}

func (s *fakeStore) counts() (saves, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCalls, s.clearCalls
}

// instantRetry - retry без реальных задержек.
func instantRetry(maxAttempts int) *Retry {
	r := NewRetry("test", RetryConfig{MaxAttempts: maxAttempts, BaseDelay: 1})
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}
