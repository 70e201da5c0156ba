// Package resilience содержит circuit breaker для защиты проксируемых
// вызовов бэкенда.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"alumnet/internal/gateway/session"
	"alumnet/pkg/logger"
)

// CircuitState представляет состояние Circuit Breaker.
type CircuitState int

// Состояния Circuit Breaker.
const (
	// StateClosed - нормальное состояние, запросы проходят.
	StateClosed CircuitState = iota
	// StateOpen - состояние отказа, запросы блокируются.
	StateOpen
	// StateHalfOpen - промежуточное состояние, пробные запросы.
	StateHalfOpen
)

// Константы для логирования.
const (
	LogCircuitStateChange = "circuit breaker state changed"
	LogCircuitTrip        = "circuit breaker tripped"
	LogCircuitReset       = "circuit breaker reset"
	LogCircuitReject      = "circuit breaker rejected request"
)

// ErrCircuitOpen возвращается, когда Circuit Breaker находится в открытом состоянии.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig содержит настройки Circuit Breaker.
type CircuitBreakerConfig struct {
	// ErrorThreshold - количество восстановимых ошибок подряд перед
	// переключением в открытое состояние.
	ErrorThreshold int
	// Timeout - пауза, после которой breaker пробует восстановиться.
	Timeout time.Duration
	// SuccessThreshold - количество успешных пробных запросов для закрытия.
	SuccessThreshold int
}

// DefaultCircuitBreakerConfig возвращает конфигурацию по умолчанию.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		ErrorThreshold:   5,
		Timeout:          10 * time.Second,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker реализует паттерн Circuit Breaker поверх классификации
// ошибок сессии: отказом считается только восстановимый класс (network,
// timeout, server). Терминальная ошибка аутентификации - не признак
// нездоровья бэкенда и breaker не взводит.
type CircuitBreaker struct {
	name string
	mu   sync.Mutex

	state           CircuitState
	config          CircuitBreakerConfig
	failures        int
	successes       int
	lastStateChange time.Time
}

// NewCircuitBreaker создает новый экземпляр Circuit Breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		state:           StateClosed,
		config:          config,
		lastStateChange: time.Now(),
	}
}

// Execute выполняет функцию под защитой Circuit Breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.allowRequest(ctx) {
		return ErrCircuitOpen
	}

	err := fn()
	cb.recordResult(ctx, err)
	return err
}

// State возвращает текущее состояние Circuit Breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// allowRequest проверяет возможность выполнения запроса.
func (cb *CircuitBreaker) allowRequest(ctx context.Context) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(cb.lastStateChange) > cb.config.Timeout {
			cb.state = StateHalfOpen
			cb.lastStateChange = time.Now()
			logger.Log(ctx).Info(ctx, LogCircuitStateChange,
				zap.String("circuit_breaker", cb.name),
				zap.Int("new_state", int(StateHalfOpen)))
			return true
		}
		logger.Log(ctx).Debug(ctx, LogCircuitReject, zap.String("circuit_breaker", cb.name))
		return false
	default:
		return false
	}
}

// recordResult записывает результат выполнения функции. Учитываются
// только восстановимые ошибки.
func (cb *CircuitBreaker) recordResult(ctx context.Context, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	log := logger.Log(ctx).With(zap.String("circuit_breaker", cb.name))

	if err != nil && session.Classify(err).Recoverable {
		cb.onFailure(ctx, log)
		return
	}
	cb.onSuccess(ctx, log)
}

// onFailure обрабатывает неудачный запрос.
func (cb *CircuitBreaker) onFailure(ctx context.Context, log *logger.Logger) {
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.ErrorThreshold {
			cb.trip(ctx, log)
		}
	case StateHalfOpen:
		cb.trip(ctx, log)
	}
}

// onSuccess обрабатывает успешный запрос.
func (cb *CircuitBreaker) onSuccess(ctx context.Context, log *logger.Logger) {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.reset(ctx, log)
		}
	}
}

// trip переключает Circuit Breaker в открытое состояние.
func (cb *CircuitBreaker) trip(ctx context.Context, log *logger.Logger) {
	if cb.state != StateOpen {
		log.Warn(ctx, LogCircuitTrip, zap.Int("failures", cb.failures))
		cb.state = StateOpen
		cb.lastStateChange = time.Now()
		cb.successes = 0
	}
}

// reset переключает Circuit Breaker в закрытое состояние.
func (cb *CircuitBreaker) reset(ctx context.Context, log *logger.Logger) {
	log.Info(ctx, LogCircuitReset)
	cb.state = StateClosed
	cb.lastStateChange = time.Now()
	cb.failures = 0
	cb.successes = 0
}
