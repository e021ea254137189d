package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/rs/zerolog"
)

// BookRepository определяет методы для работы с книгами.
// Каждый метод выполняет ровно один SQL-запрос.
type BookRepository interface {
	CreateBook(ctx context.Context, book *models.Book) (int64, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBookByID(ctx context.Context, bookID int64) (*models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, upd models.UpdateBookRequest, updatedAt time.Time) error
	DeleteBook(ctx context.Context, bookID int64) error
}

// postgresBookRepository реализует BookRepository для PostgreSQL.
type postgresBookRepository struct {
	db *sqlx.DB
}

// NewPostgresBookRepository создает новый экземпляр репозитория книг.
func NewPostgresBookRepository(db *sqlx.DB) BookRepository {
	return &postgresBookRepository{db: db}
}

// CreateBook сохраняет книгу и возвращает ее ID.
func (r *postgresBookRepository) CreateBook(ctx context.Context, book *models.Book) (int64, error) {
	query := `INSERT INTO books (user_id, title, author, publisher, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING book_id`
	var bookID int64

	err := r.db.QueryRowxContext(ctx, query,
		book.UserID, book.Title, book.Author, book.Publisher, book.CreatedAt, book.UpdatedAt,
	).Scan(&bookID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", book.UserID).Msg("[BookRepo] Ошибка при создании книги")
		return 0, fmt.Errorf("ошибка выполнения запроса на создание книги: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int64("book_id", bookID).Int64("user_id", book.UserID).Msg("[BookRepo] Книга создана")
	return bookID, nil
}

// ListBooks возвращает все книги без пагинации.
// TODO: добавить LIMIT/OFFSET, когда таблица перестанет помещаться в один ответ.
func (r *postgresBookRepository) ListBooks(ctx context.Context) ([]models.Book, error) {
	query := `SELECT book_id, user_id, title, author, publisher, created_at, updated_at
	          FROM books ORDER BY book_id`

	books := make([]models.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("[BookRepo] Ошибка при получении списка книг")
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка книг: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Int("count", len(books)).Msg("[BookRepo] Получен список книг")
	return books, nil
}

// GetBookByID находит книгу по ID.
func (r *postgresBookRepository) GetBookByID(ctx context.Context, bookID int64) (*models.Book, error) {
	query := `SELECT book_id, user_id, title, author, publisher, created_at, updated_at
	          FROM books WHERE book_id=$1`
	var book models.Book

	err := r.db.GetContext(ctx, &book, query, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zerolog.Ctx(ctx).Info().Int64("book_id", bookID).Msg("[BookRepo] Книга не найдена")
			return nil, ErrBookNotFound
		}
		zerolog.Ctx(ctx).Error().Err(err).Int64("book_id", bookID).Msg("[BookRepo] Ошибка при поиске книги")
		return nil, fmt.Errorf("ошибка выполнения запроса на получение книги: %w", err)
	}

	return &book, nil
}

// UpdateBook обновляет только переданные поля книги и updated_at.
// Поля со значением nil остаются без изменений (COALESCE).
func (r *postgresBookRepository) UpdateBook(
	ctx context.Context,
	bookID int64,
	upd models.UpdateBookRequest,
	updatedAt time.Time,
) error {
	query := `UPDATE books SET
	              title = COALESCE($2, title),
	              author = COALESCE($3, author),
	              publisher = COALESCE($4, publisher),
	              updated_at = $5
	          WHERE book_id = $1`

	res, err := r.db.ExecContext(ctx, query, bookID, upd.Title, upd.Author, upd.Publisher, updatedAt)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("book_id", bookID).Msg("[BookRepo] Ошибка при обновлении книги")
		return fmt.Errorf("ошибка выполнения запроса на обновление книги: %w", err)
	}
	if err = expectAffected(ctx, res, bookID); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int64("book_id", bookID).Msg("[BookRepo] Книга обновлена")
	return nil
}

// DeleteBook удаляет книгу по ID.
func (r *postgresBookRepository) DeleteBook(ctx context.Context, bookID int64) error {
	query := `DELETE FROM books WHERE book_id = $1`

	res, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("book_id", bookID).Msg("[BookRepo] Ошибка при удалении книги")
		return fmt.Errorf("ошибка выполнения запроса на удаление книги: %w", err)
	}
	if err = expectAffected(ctx, res, bookID); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int64("book_id", bookID).Msg("[BookRepo] Книга удалена")
	return nil
}

// expectAffected возвращает ErrBookNotFound, если запрос не затронул ни одной строки.
func expectAffected(ctx context.Context, res sql.Result, bookID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа затронутых строк: %w", err)
	}
	if affected == 0 {
		zerolog.Ctx(ctx).Info().Int64("book_id", bookID).Msg("[BookRepo] Книга не найдена")
		return ErrBookNotFound
	}
	return nil
}
