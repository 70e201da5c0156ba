package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"alumnet/internal/gateway/ports/store"
	"alumnet/internal/gateway/resilience"
	"alumnet/pkg/logger"
)

// Константы для логирования.
const (
	LogAuthExpired  = "request rejected with expired token, refreshing"
	LogReplaying    = "replaying request with refreshed token"
	ErrorRefreshing = "token refresh failed, request not replayed"
)

// Refresher гарантирует свежий access token. Реализуется машиной
// состояний сессии.
type Refresher interface {
	EnsureFreshToken(ctx context.Context) (string, error)
}

// Response - ответ бэкенда, проксируемый как есть.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// AuthedClient выполняет произвольные запросы к бэкенду с текущим access
// token. Запрос, отклоненный по истечению токена, прозрачно повторяется
// один раз со свежим токеном: с точки зрения вызывающего обновления не
// было. Повтор безопасен - отклоненный запрос не имел побочных эффектов
// на сервере.
type AuthedClient struct {
	client    *Client
	store     store.TokenStore
	refresher Refresher
	breaker   *resilience.CircuitBreaker
}

// NewAuthedClient создает клиент с прозрачным обновлением токена.
func NewAuthedClient(client *Client, tokenStore store.TokenStore, refresher Refresher) *AuthedClient {
	return &AuthedClient{
		client:    client,
		store:     tokenStore,
		refresher: refresher,
		breaker:   resilience.NewCircuitBreaker("backend", resilience.DefaultCircuitBreakerConfig()),
	}
}

// Do выполняет запрос к бэкенду. Не-2xx статусы (кроме истечения токена)
// возвращаются как обычный ответ: прокси не интерпретирует доменные ошибки.
func (c *AuthedClient) Do(ctx context.Context, method, path string, body []byte, header http.Header) (*Response, error) {
	log := logger.Log(ctx)

	token, err := c.store.AccessToken(ctx)
	if err != nil {
		token = ""
	}

	var resp *Response
	err = c.breaker.Execute(ctx, func() error {
		var doErr error
		resp, doErr = c.doRaw(ctx, method, path, token, body, header)
		return doErr
	})
	if err != nil {
		return nil, err
	}

	if resp.Status != http.StatusUnauthorized {
		return resp, nil
	}

	log.Info(ctx, LogAuthExpired, zap.String("path", path))
	newToken, refreshErr := c.refresher.EnsureFreshToken(ctx)
	if refreshErr != nil {
		log.Warn(ctx, ErrorRefreshing, zap.Error(refreshErr))
		return resp, nil
	}

	log.Debug(ctx, LogReplaying, zap.String("path", path))
	return c.doRaw(ctx, method, path, newToken, body, header)
}

// doRaw выполняет один HTTP запрос без интерпретации статуса.
func (c *AuthedClient) doRaw(ctx context.Context, method, path, token string, body []byte, header http.Header) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.client.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.client.tenantID != "" {
		req.Header.Set(HeaderTenantID, c.client.tenantID)
	}
	if token != "" {
		req.Header.Set(HeaderAuthorization, bearerPrefix+token)
	}

	httpResp, err := c.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header.Clone(),
		Body:   raw,
	}, nil
}
