package services

import (
	"context"
	"errors"
	"time"

	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/maynagashev/bookshelf/internal/repository"
	"github.com/rs/zerolog"
)

// BookService определяет интерфейс для работы с книгами.
type BookService interface {
	CreateBook(ctx context.Context, ownerID int64, req models.CreateBookRequest) (int64, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, bookID int64) (*models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, req models.UpdateBookRequest) error
	DeleteBook(ctx context.Context, bookID int64) error
}

var _ BookService = (*bookService)(nil) // Проверка соответствия интерфейсу

type bookService struct {
	bookRepo repository.BookRepository
	now      func() time.Time
}

// BookServiceOption настраивает bookService.
type BookServiceOption func(*bookService)

// WithBookClock задает источник времени для created_at/updated_at.
func WithBookClock(now func() time.Time) BookServiceOption {
	return func(s *bookService) {
		s.now = now
	}
}

// NewBookService создает новый экземпляр сервиса книг.
func NewBookService(bookRepo repository.BookRepository, opts ...BookServiceOption) BookService {
	s := &bookService{bookRepo: bookRepo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBook создает книгу от имени ownerID.
// Владелец всегда берется из аутентифицированного запроса, а не из тела.
func (s *bookService) CreateBook(ctx context.Context, ownerID int64, req models.CreateBookRequest) (int64, error) {
	if req.UserID != nil && *req.UserID != ownerID {
		zerolog.Ctx(ctx).Warn().Int64("owner_id", ownerID).Int64("body_user_id", *req.UserID).
			Msg("[BookService] user_id из тела запроса отличается от токена, используется ID из токена")
	}

	now := s.now().UTC()
	book := &models.Book{
		UserID:    ownerID,
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
		CreatedAt: now,
		UpdatedAt: now,
	}

	bookID, err := s.bookRepo.CreateBook(ctx, book)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("owner_id", ownerID).Msg("[BookService] Ошибка репозитория при создании книги")
		return 0, ErrInternal
	}
	return bookID, nil
}

// ListBooks возвращает все книги.
func (s *bookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := s.bookRepo.ListBooks(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("[BookService] Ошибка репозитория при получении списка книг")
		return nil, ErrInternal
	}
	return books, nil
}

// GetBook возвращает книгу по ID.
func (s *bookService) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	book, err := s.bookRepo.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, translateBookError(ctx, err, bookID, "получении")
	}
	return book, nil
}

// UpdateBook применяет частичное обновление и обновляет updated_at.
func (s *bookService) UpdateBook(ctx context.Context, bookID int64, req models.UpdateBookRequest) error {
	if err := s.bookRepo.UpdateBook(ctx, bookID, req, s.now().UTC()); err != nil {
		return translateBookError(ctx, err, bookID, "обновлении")
	}
	return nil
}

// DeleteBook удаляет книгу.
func (s *bookService) DeleteBook(ctx context.Context, bookID int64) error {
	if err := s.bookRepo.DeleteBook(ctx, bookID); err != nil {
		return translateBookError(ctx, err, bookID, "удалении")
	}
	return nil
}

func translateBookError(ctx context.Context, err error, bookID int64, action string) error {
	if errors.Is(err, repository.ErrBookNotFound) {
		return ErrBookNotFound
	}
	zerolog.Ctx(ctx).Error().Err(err).Int64("book_id", bookID).Msgf("[BookService] Ошибка репозитория при %s книги", action)
	return ErrInternal
}
