package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/rs/zerolog"
)

// Коды ошибок PostgreSQL.
const (
	pgUniqueViolationCode = "23505"
)

// UserRepository определяет методы для работы с данными пользователей в хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// postgresUserRepository реализует UserRepository для PostgreSQL.
type postgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository создает новый экземпляр репозитория пользователей для PostgreSQL.
func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

// CreateUser создает нового пользователя в базе данных.
// Возвращает ID созданного пользователя или ошибку.
func (r *postgresUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := `INSERT INTO users (username, password, firstname, lastname) VALUES ($1, $2, $3, $4) RETURNING user_id`
	var userID int64

	err := r.db.QueryRowxContext(ctx, query,
		user.Username, user.PasswordHash, user.FirstName, user.LastName,
	).Scan(&userID)
	if err != nil {
		// Проверяем на ошибку нарушения уникальности (duplicate key)
		if isUniqueViolation(err) {
			zerolog.Ctx(ctx).Warn().Str("username", user.Username).Msg("[UserRepo] Имя пользователя уже занято")
			return 0, ErrUsernameTaken
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("username", user.Username).Msg("[UserRepo] Непредвиденная ошибка при создании пользователя")
		return 0, fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Str("username", user.Username).Msg("[UserRepo] Пользователь создан")
	return userID, nil
}

// GetUserByUsername находит пользователя по его имени.
func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT user_id, username, password, firstname, lastname FROM users WHERE username=$1`
	var user models.User

	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zerolog.Ctx(ctx).Info().Str("username", username).Msg("[UserRepo] Пользователь не найден")
			return nil, ErrUserNotFound
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("username", username).Msg("[UserRepo] Ошибка при поиске пользователя")
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Int64("user_id", user.ID).Str("username", username).Msg("[UserRepo] Найден пользователь")
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("пользователь не найден")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	ErrBookNotFound  = errors.New("книга не найдена")
)
