// Package dto содержит wire-структуры REST API бэкенда аутентификации.
package dto

import "alumnet/internal/gateway/domain"

// LoginRequest - тело запроса POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

// LoginResponse - тело ответа POST /api/auth/login.
type LoginResponse struct {
	Success      bool                `json:"success"`
	AccessToken  string              `json:"accessToken"`
	RefreshToken string              `json:"refreshToken,omitempty"`
	User         domain.UserSnapshot `json:"user"`
	Message      string              `json:"message,omitempty"`
	Timestamp    string              `json:"timestamp,omitempty"`
}

// RefreshRequest - тело запроса POST /api/auth/refresh. Тело опускается
// целиком при обновлении через httpOnly cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshResponse - тело ответа POST /api/auth/refresh. Бэкенд исторически
// отвечает то в camelCase, то в snake_case, принимаются оба написания.
type RefreshResponse struct {
	AccessToken    string `json:"accessToken"`
	AccessTokenAlt string `json:"access_token"`
	RefreshToken   string `json:"refreshToken,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Token возвращает access token независимо от написания ключа.
func (r *RefreshResponse) Token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.AccessTokenAlt
}

// VerifyResponse - тело ответа POST /api/auth/verify.
type VerifyResponse struct {
	Valid   bool                 `json:"valid"`
	User    *domain.UserSnapshot `json:"user,omitempty"`
	Message string               `json:"message,omitempty"`
}

// LogoutResponse - тело ответа POST /api/auth/logout.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// MeResponse - тело ответа GET /api/auth/me.
type MeResponse struct {
	Success bool                `json:"success"`
	User    domain.UserSnapshot `json:"user"`
}

// ErrorResponse - тело ошибки бэкенда.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}
