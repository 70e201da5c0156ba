// Package auth содержит HTTP обработчики сессионных операций Gateway.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"alumnet/internal/gateway/session"
	"alumnet/pkg/logger"
)

// Константы для логирования.
const (
	LogHandlerLogin   = "auth handler: login"
	LogHandlerLogout  = "auth handler: logout"
	LogHandlerSession = "auth handler: session state"
	LogHandlerMe      = "auth handler: refresh user"

	ErrorInvalidRequest       = "invalid request"
	ErrorFailedToServeRequest = "failed to serve request"
)

// loginRequest - тело запроса на вход через Gateway.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sendErrorResponse - вспомогательная функция для ответов с ошибкой.
func sendErrorResponse(ctx fiber.Ctx, statusCode int, message string) error {
	if err := ctx.Status(statusCode).JSON(fiber.Map{
		"error": message,
	}); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// Handler содержит HTTP обработчики сессионных операций.
type Handler struct {
	manager *session.Manager
}

// NewHandler создает новый экземпляр обработчика.
func NewHandler(manager *session.Manager) *Handler {
	return &Handler{manager: manager}
}

// Login обрабатывает запрос на вход пользователя.
func (h *Handler) Login(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerLogin)

	var req loginRequest
	if err := ctx.Bind().JSON(&req); err != nil {
		log.Error(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return sendErrorResponse(ctx, http.StatusBadRequest, ErrorInvalidRequest)
	}

	if req.Email == "" || req.Password == "" {
		return sendErrorResponse(ctx, http.StatusBadRequest, "email and password are required")
	}

	outcome, err := h.manager.Login(requestCtx, req.Email, req.Password)
	if err != nil {
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return sendErrorResponse(ctx, http.StatusUnauthorized, err.Error())
	}

	if err := ctx.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"user":      outcome.User,
		"returning": outcome.Returning,
	}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Logout обрабатывает запрос на выход пользователя. Локальная очистка
// выполняется всегда, поэтому ответ всегда успешный.
func (h *Handler) Logout(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerLogout)

	if err := h.manager.Logout(requestCtx); err != nil {
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
	}

	if err := ctx.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "logged out successfully",
	}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Session возвращает консистентный снимок состояния сессии.
func (h *Handler) Session(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	logger.Log(requestCtx).Debug(requestCtx, LogHandlerSession)

	state := h.manager.Snapshot()

	if err := ctx.Status(http.StatusOK).JSON(fiber.Map{
		"phase": state.Phase.String(),
		"stale": state.Stale,
		"user":  state.User,
	}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Me принудительно перечитывает профиль пользователя. Исчерпанные
// восстановимые ошибки отдают кэшированный снимок с пометкой stale:
// сессию они не разрушают.
func (h *Handler) Me(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerMe)

	user, err := h.manager.RefreshUser(requestCtx)
	switch {
	case err == nil:
		if err := ctx.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"user":    user,
			"stale":   false,
		}); err != nil {
			return fmt.Errorf("sending response: %w", err)
		}
		return nil

	case errors.Is(err, session.ErrProfileStale):
		state := h.manager.Snapshot()
		log.Warn(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		if err := ctx.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"user":    state.User,
			"stale":   true,
		}); err != nil {
			return fmt.Errorf("sending response: %w", err)
		}
		return nil

	case errors.Is(err, session.ErrNotAuthenticated):
		return sendErrorResponse(ctx, http.StatusUnauthorized, err.Error())

	default:
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return sendErrorResponse(ctx, http.StatusUnauthorized, err.Error())
	}
}
