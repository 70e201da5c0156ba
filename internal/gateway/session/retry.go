package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alumnet/pkg/logger"
)

// RetryConfig содержит настройки для retry механизма.
type RetryConfig struct {
	// MaxAttempts - максимальное количество попыток (включая первую).
	MaxAttempts int
	// BaseDelay - задержка перед второй попыткой; далее растет как
	// BaseDelay * 2^(attempt-1). Без джиттера.
	BaseDelay time.Duration
}

// DefaultRetryConfig возвращает конфигурацию retry механизма по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

// Ошибки retry механизма.
var (
	// ErrContextCanceled возвращается, когда контекст был отменен во время
	// ожидания перед повторной попыткой.
	ErrContextCanceled = errors.New("context was canceled during retry")
)

// Константы для логирования.
const (
	LogRetryAttempt     = "retry attempt"
	LogRetrySuccess     = "retry succeeded"
	LogRetryMaxAttempts = "retry max attempts reached"
	LogRetryTerminal    = "error is not recoverable, giving up"
)

// Retry выполняет операцию с повторными попытками по экспоненциальному
// backoff. Невосстановимые ошибки возвращаются сразу, без траты попыток.
type Retry struct {
	name   string
	config RetryConfig

	// sleep подменяется в тестах для детерминированной проверки задержек.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetry создает новый экземпляр retry механизма.
func NewRetry(name string, config RetryConfig) *Retry {
	return &Retry{
		name:   name,
		config: config,
		sleep:  sleepContext,
	}
}

// Execute выполняет операцию с автоматическими повторными попытками.
// Классификация ошибки решает, оправдан ли повтор.
func (r *Retry) Execute(ctx context.Context, operation func() error) error {
	log := logger.Log(ctx).With(zap.String("retry", r.name))

	var err error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err = operation()
		if err == nil {
			if attempt > 1 {
				log.Info(ctx, LogRetrySuccess, zap.Int("attempts", attempt))
			}
			return nil
		}

		class := Classify(err)
		if !class.Recoverable {
			log.Debug(ctx, LogRetryTerminal,
				zap.String("kind", string(class.Kind)),
				zap.Error(err))
			return err
		}

		if attempt >= r.config.MaxAttempts {
			log.Warn(ctx, LogRetryMaxAttempts,
				zap.Int("attempts", attempt),
				zap.Error(err))
			return err
		}

		backoff := r.config.BaseDelay << (attempt - 1)
		log.Info(ctx, LogRetryAttempt,
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.String("kind", string(class.Kind)),
			zap.Error(err))

		if sleepErr := r.sleep(ctx, backoff); sleepErr != nil {
			return fmt.Errorf("%w: %w", ErrContextCanceled, sleepErr)
		}
	}

	return err
}

// sleepContext ожидает заданную задержку либо отмену контекста.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
