// Package auth содержит хеширование паролей и выпуск/проверку JWT токенов.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost - стоимость bcrypt для паролей пользователей.
const DefaultCost = bcrypt.DefaultCost

// PasswordHasher хеширует пароли с помощью bcrypt.
// Соль генерируется bcrypt для каждого вызова и хранится внутри хеша.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher создает хешер с указанной стоимостью.
// Некорректная стоимость заменяется на bcrypt.DefaultCost (10).
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash возвращает bcrypt-хеш пароля (соль + хеш в одной строке).
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	return string(hashed), nil
}

// Verify сравнивает пароль с сохраненным хешем за постоянное время.
// Поврежденный хеш дает false, а не ошибку.
func (h *PasswordHasher) Verify(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
