package handlers

import (
	"errors"
	"net/http"

	"github.com/maynagashev/bookshelf/internal/middleware"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/maynagashev/bookshelf/internal/services"
	"github.com/rs/zerolog/hlog"
)

// BookHandler обрабатывает HTTP-запросы, связанные с книгами.
// Все маршруты книг защищены middleware.Authenticator.
type BookHandler struct {
	bookService services.BookService
}

// NewBookHandler создает новый экземпляр BookHandler.
func NewBookHandler(bs services.BookService) *BookHandler {
	return &BookHandler{bookService: bs}
}

// Create обрабатывает POST /books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		hlog.FromRequest(r).Error().Msg("[BookHandler:Create] Не удалось получить userID из контекста")
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.CreateBookRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		hlog.FromRequest(r).Info().Err(err).Msg("[BookHandler:Create] Ошибка декодирования запроса")
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err, models.BookFields))
		return
	}

	if _, err := h.bookService.CreateBook(r.Context(), userID, req); err != nil {
		writeMessage(w, http.StatusInternalServerError,
			"Server could not create book because of internal server error")
		return
	}

	writeMessage(w, http.StatusCreated, "Created book successfully")
}

// List обрабатывает GET /books. Возвращает всю таблицу без пагинации.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError,
			"Server could not read book because of internal server error")
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	writeJSON(w, http.StatusOK, models.BookListResponse{Data: books})
}

// Get обрабатывает GET /books/{bookId}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDFromPath(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidBookID)
		return
	}

	book, err := h.bookService.GetBook(r.Context(), bookID)
	if err != nil {
		h.writeBookError(w, err, "Server could not read book because of internal server error")
		return
	}

	writeJSON(w, http.StatusOK, models.BookResponse{Data: book})
}

// Update обрабатывает PUT /books/{bookId}.
// Не переданные поля остаются без изменений.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDFromPath(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidBookID)
		return
	}

	var req models.UpdateBookRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		hlog.FromRequest(r).Info().Err(err).Int64("book_id", bookID).Msg("[BookHandler:Update] Ошибка декодирования запроса")
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err, models.BookFields))
		return
	}

	if err := h.bookService.UpdateBook(r.Context(), bookID, req); err != nil {
		h.writeBookError(w, err, "Server could not update book because of internal server error")
		return
	}

	writeMessage(w, http.StatusOK, "Updated book successfully")
}

// Delete обрабатывает DELETE /books/{bookId}.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDFromPath(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidBookID)
		return
	}

	if err := h.bookService.DeleteBook(r.Context(), bookID); err != nil {
		h.writeBookError(w, err, "Server could not delete book because of internal server error")
		return
	}

	writeMessage(w, http.StatusOK, "Deleted book successfully")
}

func (h *BookHandler) writeBookError(w http.ResponseWriter, err error, internalMsg string) {
	if errors.Is(err, services.ErrBookNotFound) {
		writeMessage(w, http.StatusNotFound, "Book not found")
		return
	}
	writeMessage(w, http.StatusInternalServerError, internalMsg)
}
