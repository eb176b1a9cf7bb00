// Package password реализует одноразовые токены для приглашения "задайте пароль".
//
// Сам токен отправляется пользователю, в базе хранится только его bcrypt-хеш.
package password

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// NewToken генерирует случайный токен приглашения в hex-представлении.
func NewToken() (string, error) {
	const op = "password.NewToken"
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}

// GetHash возвращает bcrypt-хеш токена для хранения в базе.
func GetHash(token string) (string, error) {
	const op = "password.GetHash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сравнивает хеш с предъявленным токеном. Возвращает nil при совпадении.
func CompareHash(hash, token string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
