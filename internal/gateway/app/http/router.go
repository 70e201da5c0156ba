// Package http содержит компоненты HTTP сервера Gateway.
package http

import (
	"github.com/gofiber/fiber/v3"

	"alumnet/internal/gateway/adapters/rest"
	"alumnet/internal/gateway/app/http/auth"
	"alumnet/internal/gateway/app/http/middleware"
	"alumnet/internal/gateway/app/http/proxy"
	"alumnet/internal/gateway/session"
)

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, manager *session.Manager, authedClient *rest.AuthedClient, mirror *CookieMirror) {
	authHandler := auth.NewHandler(manager)
	proxyHandler := proxy.NewHandler(authedClient)

	// Middleware для всех запросов.
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())
	app.Use(NewCookieMiddleware(mirror))

	// Сессионные маршруты Gateway.
	sessionRoutes := app.Group("/session")
	sessionRoutes.Get("/", authHandler.Session)
	sessionRoutes.Post("/login", authHandler.Login)
	sessionRoutes.Post("/logout", authHandler.Logout)
	sessionRoutes.Get("/me", authHandler.Me)

	// Прикладные запросы проксируются на backend как есть.
	app.All("/api/*", proxyHandler.Forward)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}

// NewCookieMiddleware переносит состояние зеркала cookie на каждый ответ.
func NewCookieMiddleware(mirror *CookieMirror) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		err := ctx.Next()
		mirror.Apply(ctx)
		return err
	}
}
