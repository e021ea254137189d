package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Book представляет запись о книге.
type Book struct {
	ID        int64     `db:"book_id" json:"book_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Author    string    `db:"author" json:"author"`
	Publisher string    `db:"publisher" json:"publisher"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateBookRequest представляет тело запроса на создание книги.
// Поле user_id принимается для совместимости, но владелец всегда
// берется из токена аутентифицированного пользователя.
type CreateBookRequest struct {
	UserID    *int64 `json:"user_id,omitempty"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
}

// Validate проверяет обязательные поля книги.
func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required.Error("Title is required")),
		validation.Field(&r.Author, validation.Required.Error("Author is required")),
		validation.Field(&r.Publisher, validation.Required.Error("Publisher is required")),
	)
}

// BookFields - порядок полей книги для сообщений об ошибках.
var BookFields = []string{"title", "author", "publisher"}

// UpdateBookRequest - частичное обновление книги.
// nil означает "оставить без изменений".
type UpdateBookRequest struct {
	Title     *string `json:"title,omitempty"`
	Author    *string `json:"author,omitempty"`
	Publisher *string `json:"publisher,omitempty"`
}

// Validate запрещает передавать пустые строки в явно указанных полях.
func (r UpdateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty.Error("Title must not be empty")),
		validation.Field(&r.Author, validation.NilOrNotEmpty.Error("Author must not be empty")),
		validation.Field(&r.Publisher, validation.NilOrNotEmpty.Error("Publisher must not be empty")),
	)
}

// BookResponse оборачивает одну книгу в поле data.
type BookResponse struct {
	Data *Book `json:"data"`
}

// BookListResponse оборачивает список книг в поле data.
type BookListResponse struct {
	Data []Book `json:"data"`
}

// MessageResponse - ответ, содержащий только сообщение.
type MessageResponse struct {
	Message string `json:"message"`
}
