// Package rest реализует REST клиент бэкенда: базовый транспорт с tenant
// заголовком, клиент аутентификации и прозрачное обновление токена.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"alumnet/internal/gateway/config"
	"alumnet/internal/gateway/ports/api"
)

// Заголовки, добавляемые к каждому запросу.
const (
	HeaderTenantID      = "X-Tenant-ID"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	contentTypeJSON = "application/json"
	bearerPrefix    = "Bearer "
)

// Client - базовый HTTP клиент бэкенда. Каждый вызов несет tenant
// идентификатор и ограничен таймаутом конфигурации.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tenantID   string
}

// NewClient создает базовый клиент бэкенда.
func NewClient(cfg *config.APIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		tenantID:   cfg.TenantID,
	}
}

// doJSON выполняет запрос с JSON телом и декодирует JSON ответ в out.
// Не-2xx ответы превращаются в типизированную *api.Error.
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set(HeaderContentType, contentTypeJSON)
	}
	if c.tenantID != "" {
		req.Header.Set(HeaderTenantID, c.tenantID)
	}
	if accessToken != "" {
		req.Header.Set(HeaderAuthorization, bearerPrefix+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

// decodeAPIError превращает тело ошибки бэкенда в типизированную ошибку.
// Нечитаемое тело не скрывает HTTP статус.
func decodeAPIError(status int, raw []byte) *api.Error {
	apiErr := &api.Error{Status: status}

	var body struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.ErrorCode
		if body.Message != "" {
			apiErr.Message = body.Message
		} else {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
