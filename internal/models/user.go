package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// User представляет пользователя системы.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
// Тэги `json` используются для (де)сериализации JSON.
type User struct {
	ID           int64  `db:"user_id" json:"userId"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password" json:"-"` // Не отправляем хеш пароля в JSON
	FirstName    string `db:"firstname" json:"firstName"`
	LastName     string `db:"lastname" json:"lastName"`
}

// RegisterRequest представляет тело запроса на регистрацию.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate проверяет наличие всех обязательных полей регистрации.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required.Error("Username is required")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
		validation.Field(&r.FirstName, validation.Required.Error("First Name is required")),
		validation.Field(&r.LastName, validation.Required.Error("Last Name is required")),
	)
}

// RegisterFields - порядок полей, в котором сообщается об ошибках валидации.
var RegisterFields = []string{"username", "password", "firstName", "lastName"}

// RegisterResponse представляет тело ответа при успешной регистрации.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// LoginRequest представляет тело запроса на вход.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate проверяет, что имя пользователя и пароль переданы.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required.Error("Username is required")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

// LoginFields - порядок полей запроса входа.
var LoginFields = []string{"username", "password"}

// LoginResponse представляет тело ответа при успешном входе.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}
