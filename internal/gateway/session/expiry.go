package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryHint извлекает подсказку о времени истечения access token из его
// claim "exp" без проверки подписи. Это именно подсказка для планирования,
// а не решение о доверии: подпись проверяет только бэкенд.
func ExpiryHint(accessToken string) *time.Time {
	if accessToken == "" {
		return nil
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	t := exp.Time
	return &t
}
