package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgInvalidBookID = "Invalid book id"
)

// errEmptyBody возвращается decodeJSON, если тело запроса пустое.
var errEmptyBody = errors.New("пустое тело запроса")

// writeJSON сериализует v в ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Клиент уже получил статус, сложно что-то изменить
		log.Error().Err(err).Msg("[Handlers] Ошибка кодирования ответа")
	}
}

// writeMessage отправляет ответ вида {"message": "..."}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.MessageResponse{Message: message})
}

// decodeJSON декодирует тело запроса в dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// validationMessage возвращает сообщение первой ошибки валидации
// в порядке fields, чтобы ответ не зависел от порядка обхода map.
func validationMessage(err error, fields []string) string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	for _, field := range fields {
		if fieldErr, ok := errs[field]; ok && fieldErr != nil {
			return fieldErr.Error()
		}
	}
	for _, fieldErr := range errs {
		if fieldErr != nil {
			return fieldErr.Error()
		}
	}
	return err.Error()
}

// bookIDFromPath разбирает параметр {bookId}; допустимы только положительные целые.
func bookIDFromPath(r *http.Request) (int64, bool) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookId"), 10, 64)
	if err != nil || bookID <= 0 {
		return 0, false
	}
	return bookID, true
}
