package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// Init задает секрет для подписи и проверки токенов. Вызывается один раз
// при старте сервиса, до обработки запросов.
func Init(secret string) {
	jwtSecret = []byte(secret)
}

// Claims — полезная нагрузка токена: идентификатор и email пользователя.
// Токены выпускает внешний сервис аутентификации с тем же секретом, здесь
// они только проверяются.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyToken достает bearer-токен из запроса и возвращает ID пользователя
func VerifyToken(r *http.Request) (string, error) {
	authToken := r.Header.Get("Authorization")
	if authToken == "" {
		return "", fmt.Errorf("no authorization header")
	}

	tokenString := strings.TrimPrefix(authToken, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("invalid token")
	}

	return claims.UserID, nil
}
