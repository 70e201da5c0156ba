package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alumnet/internal/gateway/config"
	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/store"
	"alumnet/pkg/logger"
)

// Константы для логирования.
const (
	ErrorRedisConnect = "failed to connect to redis"
	ErrorRedisGet     = "failed to get value from redis"
	ErrorRedisSet     = "failed to set value in redis"
	ErrorRedisClear   = "failed to clear session slots in redis"
)

// RedisStore реализует TokenStore поверх Redis: три именованных ключа,
// очистка одним DEL. Подходит для развертывания, где gateway перезапускается
// чаще, чем живет сессия.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore создает хранилище токенов в Redis и проверяет соединение.
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.GetAddressString(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     cfg.ConnectTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdle,
		ConnMaxIdleTime: cfg.IdleTimeout,
		ConnMaxLifetime: cfg.MaxConnLifetime,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorRedisConnect, err)
	}

	return &RedisStore{client: client, ttl: cfg.SessionTTL}, nil
}

// Save сохраняет сессию. Некорректная сессия - no-op. Запись всех слотов
// выполняется одним pipeline, чтобы с точки зрения читателя слоты
// обновились согласованно.
func (s *RedisStore) Save(ctx context.Context, session *domain.Session) error {
	if !session.Valid() {
		return nil
	}

	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return nil
	}

	log := logger.Log(ctx)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, store.SlotAccessToken, session.AccessToken, s.ttl)
	pipe.Set(ctx, store.SlotUser, string(userJSON), s.ttl)
	if strings.TrimSpace(session.RefreshToken) != "" {
		pipe.Set(ctx, store.SlotRefreshToken, session.RefreshToken, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error(ctx, ErrorRedisSet, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorRedisSet, err)
	}
	return nil
}

// AccessToken возвращает access token либо пустую строку.
func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, store.SlotAccessToken)
}

// User возвращает кэшированный снимок пользователя либо nil.
func (s *RedisStore) User(ctx context.Context) (*domain.UserSnapshot, error) {
	raw, err := s.get(ctx, store.SlotUser)
	if err != nil {
		return nil, err
	}
	return decodeUser(raw), nil
}

// SaveRefreshToken сохраняет refresh token. Пустое значение - no-op.
func (s *RedisStore) SaveRefreshToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.client.Set(ctx, store.SlotRefreshToken, token, s.ttl).Err(); err != nil {
		logger.Log(ctx).Error(ctx, ErrorRedisSet, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorRedisSet, err)
	}
	return nil
}

// RefreshToken возвращает refresh token либо пустую строку.
func (s *RedisStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, store.SlotRefreshToken)
}

// Clear удаляет все три слота одной командой DEL. Идемпотентен.
func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.client.Del(ctx, store.SlotAccessToken, store.SlotRefreshToken, store.SlotUser).Err()
	if err != nil {
		logger.Log(ctx).Error(ctx, ErrorRedisClear, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorRedisClear, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// get возвращает значение слота; отсутствующий ключ читается как пустая строка.
func (s *RedisStore) get(ctx context.Context, slot string) (string, error) {
	value, err := s.client.Get(ctx, slot).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		logger.Log(ctx).Error(ctx, ErrorRedisGet, zap.Error(err))
		return "", fmt.Errorf("%s: %w", ErrorRedisGet, err)
	}
	return normalizeToken(value), nil
}
