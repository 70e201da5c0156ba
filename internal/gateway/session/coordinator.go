package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/api"
	"alumnet/internal/gateway/ports/store"
	"alumnet/pkg/logger"
)

// Ошибки координатора.
var (
	// ErrEpisodeInvalidated возвращается, когда logout обогнал завершение
	// эпизода обновления: полученный токен не сохраняется.
	ErrEpisodeInvalidated = errors.New("refresh episode invalidated by logout")
)

// Константы для логирования.
const (
	LogEpisodeStart    = "starting refresh episode"
	LogEpisodeJoin     = "joining in-flight refresh episode"
	LogEpisodeSuccess  = "refresh episode succeeded"
	LogEpisodeFailed   = "refresh episode failed"
	LogEpisodeStale    = "refresh episode completed after logout, result dropped"
	LogEpisodeTerminal = "terminal refresh failure, clearing session"

	ErrorPersistTokens = "failed to persist refreshed tokens" // #nosec G101 - текст лога
	ErrorClearStore    = "failed to clear token store"
)

// episode - один single-flight эпизод обновления: от первого триггера
// до финального исхода, включая все повторные попытки.
type episode struct {
	done  chan struct{}
	token string
	err   error
}

// Coordinator гарантирует не более одного сетевого вызова обновления
// токена независимо от количества конкурентных инициаторов. Опоздавшие
// вызовы присоединяются к текущему эпизоду и получают его исход.
//
// Внутренний мьютекс - единственная блокировка, удерживаемая через точку
// приостановки: она и есть флаг "идет обновление".
type Coordinator struct {
	mu      sync.Mutex
	current *episode
	gen     uint64

	api   api.AuthAPI
	store store.TokenStore
	retry *Retry

	// onTerminal уведомляет машину состояний о терминальном исходе эпизода.
	onTerminal func(error)
}

// NewCoordinator создает координатор обновления токенов.
func NewCoordinator(authAPI api.AuthAPI, tokenStore store.TokenStore, retry *Retry) *Coordinator {
	return &Coordinator{
		api:   authAPI,
		store: tokenStore,
		retry: retry,
	}
}

// SetTerminalHandler регистрирует обработчик терминального исхода.
// Вызывается до начала работы, конкурентная замена не поддерживается.
func (c *Coordinator) SetTerminalHandler(fn func(error)) {
	c.onTerminal = fn
}

// EnsureFreshToken гарантирует свежий access token: либо запускает новый
// эпизод обновления, либо присоединяется к уже идущему. Возвращает токен,
// с которым эпизод завершился.
func (c *Coordinator) EnsureFreshToken(ctx context.Context) (string, error) {
	log := logger.Log(ctx)

	c.mu.Lock()
	if ep := c.current; ep != nil {
		c.mu.Unlock()
		log.Debug(ctx, LogEpisodeJoin)
		return c.wait(ctx, ep)
	}

	ep := &episode{done: make(chan struct{})}
	c.current = ep
	gen := c.gen
	c.mu.Unlock()

	log.Info(ctx, LogEpisodeStart)
	c.run(ctx, ep, gen)

	return ep.token, ep.err
}

// Wait присоединяется к идущему эпизоду, не запуская новый. Если эпизода
// нет, возвращается сразу. Используется операциями, которые должны
// переждать возможную ротацию токена.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	ep := c.current
	c.mu.Unlock()

	if ep == nil {
		return nil
	}
	_, err := c.wait(ctx, ep)
	return err
}

// Invalidate помечает текущее поколение эпизодов устаревшим: исход
// эпизода, начатого до вызова, не будет сохранен в хранилище.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// wait ожидает завершения эпизода либо отмены контекста вызывающего.
// Отмена одного ожидающего не влияет на сам эпизод.
func (c *Coordinator) wait(ctx context.Context, ep *episode) (string, error) {
	select {
	case <-ep.done:
		return ep.token, ep.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// run выполняет эпизод обновления от имени инициатора. Флаг "идет
// обновление" не сбрасывается между повторными попытками: ожидающие
// переживают всю серию повторов, иначе конкурентный эпизод нарушил бы
// single-flight.
func (c *Coordinator) run(ctx context.Context, ep *episode, gen uint64) {
	log := logger.Log(ctx)

	// Эпизод общий для всех ожидающих, поэтому отмена контекста
	// инициатора не должна отравлять общий исход.
	episodeCtx := context.WithoutCancel(ctx)

	// Недоступный слот refresh token не срывает эпизод: бэкенд умеет
	// обновлять сессию и по httpOnly cookie.
	refreshToken, rtErr := c.store.RefreshToken(episodeCtx)
	if rtErr != nil {
		refreshToken = ""
	}

	var result *api.RefreshResult
	err := c.retry.Execute(episodeCtx, func() error {
		var callErr error
		result, callErr = c.api.Refresh(episodeCtx, refreshToken)
		return callErr
	})

	c.mu.Lock()
	stale := gen != c.gen

	switch {
	case stale:
		log.Warn(ctx, LogEpisodeStale)
		ep.token, ep.err = "", ErrEpisodeInvalidated

	case err == nil:
		if persistErr := c.persistLocked(episodeCtx, result); persistErr != nil {
			log.Error(ctx, ErrorPersistTokens, zap.Error(persistErr))
		}
		log.Info(ctx, LogEpisodeSuccess)
		ep.token, ep.err = result.AccessToken, nil

	default:
		class := Classify(err)
		log.Warn(ctx, LogEpisodeFailed,
			zap.String("kind", string(class.Kind)),
			zap.Bool("recoverable", class.Recoverable),
			zap.Error(err))
		if !class.Recoverable {
			log.Warn(ctx, LogEpisodeTerminal)
			if clearErr := c.store.Clear(episodeCtx); clearErr != nil {
				log.Error(ctx, ErrorClearStore, zap.Error(clearErr))
			}
			if c.onTerminal != nil {
				c.onTerminal(err)
			}
		}
		ep.token, ep.err = "", err
	}

	c.current = nil
	c.mu.Unlock()

	close(ep.done)
}

// persistLocked сохраняет новый access token и, при ротации, новый refresh
// token. Вызывается строго под мьютексом координатора, чтобы logout не мог
// вклиниться между проверкой поколения и записью.
func (c *Coordinator) persistLocked(ctx context.Context, result *api.RefreshResult) error {
	user, err := c.store.User(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		user = &domain.UserSnapshot{}
	}

	session := &domain.Session{
		AccessToken:   result.AccessToken,
		RefreshToken:  result.RefreshToken,
		User:          *user,
		ExpiresAtHint: ExpiryHint(result.AccessToken),
	}
	return c.store.Save(ctx, session)
}
