package rest

import (
	"context"
	"fmt"
	"net/http"

	"alumnet/internal/gateway/app/dto"
	"alumnet/internal/gateway/domain"
	"alumnet/internal/gateway/ports/api"
)

// Пути эндпоинтов аутентификации.
const (
	pathLogin   = "/api/auth/login"
	pathRefresh = "/api/auth/refresh"
	pathVerify  = "/api/auth/verify"
	pathLogout  = "/api/auth/logout"
	pathMe      = "/api/auth/me"
)

// AuthClient реализует ports/api.AuthAPI поверх REST бэкенда.
type AuthClient struct {
	client *Client
}

// NewAuthClient создает REST клиент аутентификации.
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

// Login выполняет вход по email и паролю.
func (c *AuthClient) Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error) {
	req := dto.LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		TenantID: c.client.tenantID,
	}

	var resp dto.LoginResponse
	if err := c.client.doJSON(ctx, http.MethodPost, pathLogin, "", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.AccessToken == "" {
		return nil, &api.Error{Status: http.StatusUnauthorized, Message: resp.Message}
	}

	return &api.LoginResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}, nil
}

// Refresh обменивает refresh token на новый access token. При пустом
// refreshToken тело опускается: бэкенд читает httpOnly cookie.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*api.RefreshResult, error) {
	var body any
	if refreshToken != "" {
		body = dto.RefreshRequest{RefreshToken: refreshToken}
	}

	var resp dto.RefreshResponse
	if err := c.client.doJSON(ctx, http.MethodPost, pathRefresh, "", body, &resp); err != nil {
		return nil, err
	}
	token := resp.Token()
	if token == "" {
		return nil, fmt.Errorf("refresh response without access token: %q", resp.Message)
	}

	return &api.RefreshResult{
		AccessToken:  token,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Verify проверяет access token и возвращает актуальный снимок пользователя.
// Ответ valid=false считается отказом в аутентификации.
func (c *AuthClient) Verify(ctx context.Context, accessToken string) (*domain.UserSnapshot, error) {
	var resp dto.VerifyResponse
	if err := c.client.doJSON(ctx, http.MethodPost, pathVerify, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid || resp.User == nil {
		return nil, &api.Error{Status: http.StatusUnauthorized, Message: resp.Message}
	}
	return resp.User, nil
}

// Logout завершает сессию на бэкенде.
func (c *AuthClient) Logout(ctx context.Context, accessToken string) error {
	var resp dto.LogoutResponse
	return c.client.doJSON(ctx, http.MethodPost, pathLogout, accessToken, nil, &resp)
}

// Me возвращает текущего пользователя.
func (c *AuthClient) Me(ctx context.Context, accessToken string) (*domain.UserSnapshot, error) {
	var resp dto.MeResponse
	if err := c.client.doJSON(ctx, http.MethodGet, pathMe, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &api.Error{Status: http.StatusUnauthorized}
	}
	user := resp.User
	return &user, nil
}
