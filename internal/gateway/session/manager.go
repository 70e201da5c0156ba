package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/api"
	"alumnet/internal/gateway/ports/store"
	"alumnet/pkg/logger"
)

// Phase - фаза машины состояний аутентификации.
type Phase int

// Фазы машины состояний.
const (
	PhaseUnauthenticated Phase = iota
	PhaseChecking
	PhaseAuthenticated
	PhaseRefreshing
	PhaseLoggingOut
)

// String возвращает человекочитаемое имя фазы.
func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseChecking:
		return "checking"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseRefreshing:
		return "refreshing"
	case PhaseLoggingOut:
		return "logging-out"
	default:
		return "unknown"
	}
}

// State - консистентный снимок состояния сессии для потребителей.
// Stale=true означает, что пользователь взят из кэша и еще не подтвержден
// сервером.
type State struct {
	Phase Phase
	Stale bool
	User  *domain.UserSnapshot
}

// LoginOutcome - результат успешного входа. Returning=true, если этот же
// email уже входил с этого экземпляра (используется только для приветствия).
type LoginOutcome struct {
	User      domain.UserSnapshot
	Returning bool
}

// Ошибки машины состояний.
var (
	// ErrNotAuthenticated возвращается операциями, требующими активной сессии.
	ErrNotAuthenticated = errors.New("no authenticated session")
	// ErrProfileStale - нефатальное предупреждение: обновить профиль не
	// удалось, но сессия сохранена и кэш остается действующим.
	ErrProfileStale = errors.New("profile refresh failed, cached snapshot kept")
)

// Константы для логирования.
const (
	LogCheckAuthStart       = "checking persisted session"
	LogCheckAuthNoToken     = "no access token, session is unauthenticated"
	LogCheckAuthOptimistic  = "cached user found, entering authenticated state optimistically"
	LogCheckAuthVerified    = "session verified by server"
	LogCheckAuthStaleKept   = "verify failed recoverably, keeping stale cached session"
	LogCheckAuthTerminal    = "verify failed terminally, destroying session"
	LogLoginStart           = "logging in"
	LogLoginSuccess         = "login succeeded"
	LogLogoutStart          = "logging out"
	LogLogoutDone           = "logout complete"
	LogRefreshUserStart     = "refreshing user profile"
	LogRefreshUserStale     = "profile refresh exhausted retries, keeping cached snapshot"
	LogTerminalFromRefresh  = "terminal refresh failure reported, session destroyed"
	ErrorLogoutCallFailed   = "logout endpoint call failed, continuing local cleanup"
	ErrorSaveSessionFailed  = "failed to persist session"
	ErrorClearSessionFailed = "failed to clear session storage"
)

// Manager - машина состояний сессии, публичная точка входа для остальной
// части приложения. Владеет фазой, кэшированной копией сессии для
// синхронного чтения и координатором обновления токенов.
//
// Инвариант: любое изменение состояния - одно присваивание под мьютексом;
// потребитель никогда не видит частично обновленное состояние.
type Manager struct {
	api   api.AuthAPI
	store store.TokenStore
	coord *Coordinator
	retry *Retry

	stateMu sync.RWMutex
	phase   Phase
	stale   bool
	session *domain.Session
}

// NewManager создает машину состояний сессии с координатором обновления.
func NewManager(authAPI api.AuthAPI, tokenStore store.TokenStore, retryCfg RetryConfig) *Manager {
	m := &Manager{
		api:   authAPI,
		store: tokenStore,
		retry: NewRetry("session", retryCfg),
		phase: PhaseUnauthenticated,
	}
	m.coord = NewCoordinator(authAPI, tokenStore, NewRetry("refresh", retryCfg))
	m.coord.SetTerminalHandler(m.handleTerminal)
	return m
}

// Coordinator возвращает координатор обновления токенов для HTTP слоя.
func (m *Manager) Coordinator() *Coordinator {
	return m.coord
}

// Snapshot возвращает консистентный снимок состояния сессии.
func (m *Manager) Snapshot() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	st := State{Phase: m.phase, Stale: m.stale}
	if m.session != nil {
		user := m.session.User
		st.User = &user
	}
	return st
}

// AccessToken возвращает текущий access token из кэшированной копии сессии.
func (m *Manager) AccessToken() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// setState выполняет атомарный переход состояния.
func (m *Manager) setState(phase Phase, stale bool, session *domain.Session) {
	m.stateMu.Lock()
	m.phase, m.stale, m.session = phase, stale, session
	m.stateMu.Unlock()
}

// handleTerminal вызывается координатором при терминальном исходе эпизода
// обновления: хранилище уже очищено, остается уронить состояние.
func (m *Manager) handleTerminal(err error) {
	logger.Log(context.Background()).Warn(context.Background(), LogTerminalFromRefresh, zap.Error(err))
	m.setState(PhaseUnauthenticated, false, nil)
}

// EnsureFreshToken прогоняет обновление токена через координатор, ведя
// бухгалтерию фазы Refreshing. Восстановимая неудача оставляет сессию
// в деградированном, но аутентифицированном состоянии.
func (m *Manager) EnsureFreshToken(ctx context.Context) (string, error) {
	m.stateMu.Lock()
	if m.phase == PhaseAuthenticated {
		m.phase = PhaseRefreshing
	}
	m.stateMu.Unlock()

	token, err := m.coord.EnsureFreshToken(ctx)

	m.stateMu.Lock()
	if m.phase == PhaseRefreshing {
		m.phase = PhaseAuthenticated
		if err == nil && m.session != nil {
			updated := *m.session
			updated.AccessToken = token
			updated.ExpiresAtHint = ExpiryHint(token)
			m.session = &updated
		}
	}
	m.stateMu.Unlock()

	return token, err
}

// CheckAuth восстанавливает сессию при старте процесса. При наличии
// кэшированного пользователя состояние оптимистично становится
// Authenticated(stale) до ответа сервера; проверка сервера затем либо
// подтверждает сессию, либо оставляет устаревший кэш (восстановимая
// ошибка), либо уничтожает сессию (терминальная).
func (m *Manager) CheckAuth(ctx context.Context) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogCheckAuthStart)

	token, err := m.store.AccessToken(ctx)
	if err != nil || token == "" {
		log.Info(ctx, LogCheckAuthNoToken)
		m.setState(PhaseUnauthenticated, false, nil)
		return nil
	}

	user, _ := m.store.User(ctx)
	if user != nil {
		refreshToken, _ := m.store.RefreshToken(ctx)
		sess := &domain.Session{
			AccessToken:   token,
			RefreshToken:  refreshToken,
			User:          *user,
			ExpiresAtHint: ExpiryHint(token),
		}
		log.Info(ctx, LogCheckAuthOptimistic, zap.String("email", user.Email))
		m.setState(PhaseAuthenticated, true, sess)
		return m.verify(ctx, token, true)
	}

	m.setState(PhaseChecking, false, nil)
	return m.verify(ctx, token, false)
}

// verify сверяет сессию с сервером. hasCache определяет поведение при
// восстановимой ошибке: с кэшем остаемся Authenticated(stale), без кэша
// переходим в Unauthenticated, не трогая хранилище.
func (m *Manager) verify(ctx context.Context, token string, hasCache bool) error {
	log := logger.Log(ctx)

	fresh, err := m.api.Verify(ctx, token)
	if err != nil {
		class := Classify(err)
		if class.Kind == KindAuthTerminal {
			// Истекший access token еще не приговор: даем координатору
			// один шанс обменять refresh token.
			if newToken, refreshErr := m.EnsureFreshToken(ctx); refreshErr == nil {
				fresh, err = m.api.Verify(ctx, newToken)
				token = newToken
			}
		}
	}

	switch {
	case err == nil && fresh != nil:
		refreshToken, _ := m.store.RefreshToken(ctx)
		sess := &domain.Session{
			AccessToken:   token,
			RefreshToken:  refreshToken,
			User:          *fresh,
			ExpiresAtHint: ExpiryHint(token),
		}
		if saveErr := m.store.Save(ctx, sess); saveErr != nil {
			log.Warn(ctx, ErrorSaveSessionFailed, zap.Error(saveErr))
		}
		log.Info(ctx, LogCheckAuthVerified, zap.String("email", fresh.Email))
		m.setState(PhaseAuthenticated, false, sess)
		return nil

	case err != nil && Classify(err).Recoverable:
		log.Warn(ctx, LogCheckAuthStaleKept, zap.Error(err))
		if !hasCache {
			m.setState(PhaseUnauthenticated, false, nil)
		}
		return nil

	default:
		log.Warn(ctx, LogCheckAuthTerminal, zap.Error(err))
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			log.Error(ctx, ErrorClearSessionFailed, zap.Error(clearErr))
		}
		m.setState(PhaseUnauthenticated, false, nil)
		return err
	}
}

// Login выполняет вход пользователя. Ошибка входа возвращается вызывающему,
// состояние остается Unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginOutcome, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogLoginStart, zap.String("email", email))

	result, err := m.api.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// Различение первого и повторного входа: только для приветствия,
	// безопасности не касается.
	previous, _ := m.store.User(ctx)
	returning := previous != nil && strings.EqualFold(previous.Email, email)

	sess := &domain.Session{
		AccessToken:   result.AccessToken,
		RefreshToken:  result.RefreshToken,
		User:          result.User,
		ExpiresAtHint: ExpiryHint(result.AccessToken),
	}
	if saveErr := m.store.Save(ctx, sess); saveErr != nil {
		log.Warn(ctx, ErrorSaveSessionFailed, zap.Error(saveErr))
	}

	log.Info(ctx, LogLoginSuccess,
		zap.String("email", result.User.Email),
		zap.Bool("returning", returning))
	m.setState(PhaseAuthenticated, false, sess)

	return &LoginOutcome{User: result.User, Returning: returning}, nil
}

// Logout завершает сессию. Сетевой вызов выполняется с максимальными
// усилиями: его неудача не блокирует локальную очистку. Идущий эпизод
// обновления инвалидируется, так что его поздний успех ничего не сохранит.
func (m *Manager) Logout(ctx context.Context) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogLogoutStart)

	token, _ := m.store.AccessToken(ctx)
	m.setState(PhaseLoggingOut, false, nil)

	m.coord.Invalidate()

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			log.Warn(ctx, ErrorLogoutCallFailed, zap.Error(err))
		}
	}

	if err := m.store.Clear(ctx); err != nil {
		log.Error(ctx, ErrorClearSessionFailed, zap.Error(err))
	}

	m.setState(PhaseUnauthenticated, false, nil)
	log.Info(ctx, LogLogoutDone)
	return nil
}

// RefreshUser явно перечитывает профиль текущего пользователя (после
// редактирования профиля). Сначала пережидает идущий эпизод обновления,
// чтобы не гоняться с ротацией токена. Исчерпанные восстановимые ошибки
// дают нефатальное ErrProfileStale; разлогинивает только терминальная
// классификация.
func (m *Manager) RefreshUser(ctx context.Context) (*domain.UserSnapshot, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogRefreshUserStart)

	if err := m.coord.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := m.store.AccessToken(ctx)
	if err != nil || token == "" {
		return nil, ErrNotAuthenticated
	}

	var fresh *domain.UserSnapshot
	err = m.retry.Execute(ctx, func() error {
		var callErr error
		fresh, callErr = m.api.Me(ctx, token)
		return callErr
	})

	switch {
	case err == nil && fresh != nil:
		refreshToken, _ := m.store.RefreshToken(ctx)
		sess := &domain.Session{
			AccessToken:   token,
			RefreshToken:  refreshToken,
			User:          *fresh,
			ExpiresAtHint: ExpiryHint(token),
		}
		if saveErr := m.store.Save(ctx, sess); saveErr != nil {
			log.Warn(ctx, ErrorSaveSessionFailed, zap.Error(saveErr))
		}
		m.setState(PhaseAuthenticated, false, sess)
		return fresh, nil

	case Classify(err).Kind == KindAuthTerminal:
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			log.Error(ctx, ErrorClearSessionFailed, zap.Error(clearErr))
		}
		m.setState(PhaseUnauthenticated, false, nil)
		return nil, err

	default:
		log.Warn(ctx, LogRefreshUserStale, zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrProfileStale, err)
	}
}
