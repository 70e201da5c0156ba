package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"alumnet/internal/gateway/adapters/rest"
	adapterstore "alumnet/internal/gateway/adapters/store"
	httpServer "alumnet/internal/gateway/app/http"
	"alumnet/internal/gateway/config"
	"alumnet/internal/gateway/ports/store"
	"alumnet/internal/gateway/session"
	pgdb "alumnet/pkg/db/postgres"
	"alumnet/pkg/logger"
	"alumnet/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "GATEWAY_LOGGER_MODE"
	EnvLoggerLevel = "GATEWAY_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitSessionStore     = "failed to initialize session store"
	ErrRunMigrations        = "failed to run migrations"
	ErrStartHTTPServer      = "failed to start HTTP server"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "gateway service started"
	LogServiceShutdownDone = "gateway service shutdown complete"
	LogStoppingHTTP        = "stopping HTTP server"
	LogInitStore           = "initializing session store"
	LogInitClients         = "initializing backend API client"
	LogInitSession         = "initializing session manager"
	LogInitHTTPServer      = "initializing HTTP server"
	LogStartingHTTP        = "starting HTTP server"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(env)),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		log.Info(ctx, LogInitStore, zap.String("store", cfg.Session.Store))
		mirror := httpServer.NewCookieMirror(cfg.Session.CookieName, cfg.Session.CookieMaxAge, cfg.Session.CookieSecure)

		var closeHooks []func(context.Context) error

		var inner store.TokenStore
		switch cfg.Session.Store {
		case config.StoreRedis:
			redisStore, err := adapterstore.NewRedisStore(ctx, &cfg.Redis)
			if err != nil {
				log.Error(ctx, ErrInitSessionStore, zap.Error(err))
				exitCode = 1
				return
			}
			closeHooks = append(closeHooks, func(ctx context.Context) error {
				log.Info(ctx, "Closing Redis connection")
				return redisStore.Close()
			})
			inner = redisStore
		case config.StorePostgres:
			if err := pgdb.MigrateDSN(ctx, cfg.Postgres.DSN, cfg.Postgres.MigrationsPath); err != nil {
				log.Error(ctx, ErrRunMigrations, zap.Error(err))
				exitCode = 1
				return
			}
			database, err := pgdb.New(ctx, cfg.Postgres.DSN, cfg.Postgres.MinConns, cfg.Postgres.MaxConns)
			if err != nil {
				log.Error(ctx, ErrInitSessionStore, zap.Error(err))
				exitCode = 1
				return
			}
			closeHooks = append(closeHooks, func(ctx context.Context) error {
				log.Info(ctx, "Closing Postgres pool")
				database.Close(ctx)
				return nil
			})
			inner = adapterstore.NewPostgresStore(database.Pool())
		default:
			inner = adapterstore.NewMemoryStore()
		}

		tokenStore := adapterstore.NewMirroredStore(inner, mirror)

		log.Info(ctx, LogInitClients)
		restClient := rest.NewClient(&cfg.API)
		authClient := rest.NewAuthClient(restClient)

		log.Info(ctx, LogInitSession)
		manager := session.NewManager(authClient, tokenStore, session.RetryConfig{
			MaxAttempts: cfg.Session.RetryMaxAttempts,
			BaseDelay:   cfg.Session.RetryBaseDelay,
		})

		authedClient := rest.NewAuthedClient(restClient, tokenStore, manager)

		// Восстановление сессии из хранилища при старте.
		if err := manager.CheckAuth(ctx); err != nil {
			log.Warn(ctx, "session restore failed", zap.Error(err))
		}

		log.Info(ctx, LogInitHTTPServer)
		app := fiber.New(fiber.Config{
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		})

		httpServer.SetupRouter(app, manager, authedClient, mirror)

		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		go func() {
			if err := app.Listen(cfg.HTTP.GetAddress()); err != nil {
				log.Error(ctx, ErrStartHTTPServer, zap.Error(err))
			}
		}()

		hooks := append(closeHooks,
			// Остановка HTTP сервера.
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingHTTP)
				return app.Shutdown()
			},
		)

		shutdown.Wait(cfg.Shutdown.GetTimeout(), hooks...)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
