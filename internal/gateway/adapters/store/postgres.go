package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/store"
	"alumnet/pkg/logger"
)

// Константы для логирования.
const (
	ErrorPostgresRead  = "failed to read session slot"
	ErrorPostgresWrite = "failed to write session slots"
	ErrorPostgresClear = "failed to clear session slots"
)

// SQL запросы к таблице session_slots.
const (
	queryUpsertSlot = `INSERT INTO session_slots (slot, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (slot) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	querySelectSlot = `SELECT value FROM session_slots WHERE slot = $1`
	queryClearSlots = `DELETE FROM session_slots WHERE slot = ANY($1)`
)

// PgxPool - минимальный срез pgxpool.Pool, который использует хранилище.
// Выделен в интерфейс ради подмены pgxmock в тестах.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore реализует TokenStore поверх таблицы session_slots:
// строка на слот, запись сессии в одной транзакции, очистка одним DELETE.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore создает хранилище токенов в Postgres.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save сохраняет сессию в одной транзакции. Некорректная сессия - no-op.
func (s *PostgresStore) Save(ctx context.Context, session *domain.Session) error {
	if !session.Valid() {
		return nil
	}

	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return nil
	}

	log := logger.Log(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Error(ctx, ErrorPostgresWrite, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorPostgresWrite, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, queryUpsertSlot, store.SlotAccessToken, session.AccessToken); err != nil {
		log.Error(ctx, ErrorPostgresWrite, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorPostgresWrite, err)
	}
	if _, err := tx.Exec(ctx, queryUpsertSlot, store.SlotUser, string(userJSON)); err != nil {
		log.Error(ctx, ErrorPostgresWrite, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorPostgresWrite, err)
	}
	if strings.TrimSpace(session.RefreshToken) != "" {
		if _, err := tx.Exec(ctx, queryUpsertSlot, store.SlotRefreshToken, session.RefreshToken); err != nil {
			log.Error(ctx, ErrorPostgresWrite, zap.Error(err))
			return fmt.Errorf("%s: %w", ErrorPostgresWrite, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error(ctx, ErrorPostgresWrite, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorPostgresWrite, err)
	}
	return nil
}

// AccessToken возвращает access token либо пустую строку.
func (s *PostgresStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, store.SlotAccessToken)
}

// User возвращает кэшированный снимок пользователя либо nil.
func (s *PostgresStore) User(ctx context.Context) (*domain.UserSnapshot, error) {
	raw, err := s.get(ctx, store.SlotUser)
	if err != nil {
		return nil, err
	}
	return decodeUser(raw), nil
}

// SaveRefreshToken сохраняет refresh token. Пустое значение - no-op.
func (s *PostgresStore) SaveRefreshToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if _, err := s.pool.Exec(ctx, queryUpsertSlot, store.SlotRefreshToken, token); err != nil {
		logger.Log(ctx).Error(ctx, ErrorPostgresWrite, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorPostgresWrite, err)
	}
	return nil
}

// RefreshToken возвращает refresh token либо пустую строку.
func (s *PostgresStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, store.SlotRefreshToken)
}

// Clear удаляет все три слота одним DELETE. Идемпотентен.
func (s *PostgresStore) Clear(ctx context.Context) error {
	slots := []string{store.SlotAccessToken, store.SlotRefreshToken, store.SlotUser}
	if _, err := s.pool.Exec(ctx, queryClearSlots, slots); err != nil {
		logger.Log(ctx).Error(ctx, ErrorPostgresClear, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorPostgresClear, err)
	}
	return nil
}

// get возвращает значение слота; отсутствующая строка читается как пустая строка.
func (s *PostgresStore) get(ctx context.Context, slot string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, querySelectSlot, slot).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		logger.Log(ctx).Error(ctx, ErrorPostgresRead, zap.Error(err))
		return "", fmt.Errorf("%s: %w", ErrorPostgresRead, err)
	}
	return normalizeToken(value), nil
}
