// Package proxy перенаправляет прикладные запросы на backend API,
// прозрачно обновляя токен доступа при его истечении.
package proxy

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"alumnet/internal/gateway/adapters/rest"
	"alumnet/pkg/logger"
)

// Константы для логирования.
const (
	LogProxyRequest = "proxy: forwarding request"

	ErrorUpstreamUnavailable = "upstream unavailable"
)

// Заголовки, которые нельзя переносить hop-by-hop.
var hopHeaders = map[string]struct{}{
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Content-Length":    {},
}

// Handler проксирует произвольные запросы через AuthedClient.
type Handler struct {
	client *rest.AuthedClient
}

// NewHandler создает новый экземпляр прокси-обработчика.
func NewHandler(client *rest.AuthedClient) *Handler {
	return &Handler{client: client}
}

// Forward перенаправляет запрос на backend и копирует ответ как есть.
// Авторизация и повтор после обновления токена выполняются внутри
// AuthedClient, обработчик статусы не переинтерпретирует.
func (h *Handler) Forward(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)

	path := ctx.OriginalURL()
	method := ctx.Method()
	log.Debug(requestCtx, LogProxyRequest,
		zap.String("method", method),
		zap.String("path", path),
	)

	header := make(http.Header)
	for key, values := range ctx.GetReqHeaders() {
		if _, hop := hopHeaders[key]; hop {
			continue
		}
		for _, value := range values {
			header.Add(key, value)
		}
	}

	resp, err := h.client.Do(requestCtx, method, path, ctx.Body(), header)
	if err != nil {
		log.Error(requestCtx, ErrorUpstreamUnavailable, zap.Error(err))
		if sendErr := ctx.Status(http.StatusBadGateway).JSON(fiber.Map{
			"error": ErrorUpstreamUnavailable,
		}); sendErr != nil {
			return fmt.Errorf("sending response: %w", sendErr)
		}
		return nil
	}

	for key, values := range resp.Header {
		if _, hop := hopHeaders[key]; hop {
			continue
		}
		for _, value := range values {
			ctx.Response().Header.Add(key, value)
		}
	}

	return ctx.Status(resp.Status).Send(resp.Body)
}
