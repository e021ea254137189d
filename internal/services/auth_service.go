package services

import (
	"context"
	"errors"

	"github.com/maynagashev/bookshelf/internal/auth"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/maynagashev/bookshelf/internal/repository"
	"github.com/rs/zerolog"
)

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, storedHash string) bool
}

// TokenIssuer выпускает токены доступа.
type TokenIssuer interface {
	Issue(claims auth.Claims) (string, error)
}

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (int64, error)
	Login(ctx context.Context, username, password string) (string, error) // Возвращает JWT токен или ошибку
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(userRepo repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) AuthService {
	return &authService{userRepo: userRepo, hasher: hasher, tokens: tokens}
}

// Register регистрирует нового пользователя и возвращает его ID.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (int64, error) {
	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("username", req.Username).Msg("[AuthService] Ошибка хеширования пароля")
		return 0, ErrInternal
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hashedPassword,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}

	userID, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			zerolog.Ctx(ctx).Warn().Str("username", req.Username).Msg("[AuthService] Попытка регистрации с занятым именем")
			return 0, ErrUsernameTaken
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("username", req.Username).Msg("[AuthService] Ошибка репозитория при регистрации")
		return 0, ErrInternal
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Str("username", req.Username).Msg("[AuthService] Пользователь зарегистрирован")
	return userID, nil
}

// Login аутентифицирует пользователя и возвращает JWT токен.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			zerolog.Ctx(ctx).Info().Str("username", username).Msg("[AuthService] Попытка входа несуществующего пользователя")
			return "", ErrUserNotFound
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("username", username).Msg("[AuthService] Ошибка репозитория при поиске пользователя")
		return "", ErrInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		zerolog.Ctx(ctx).Info().Str("username", username).Msg("[AuthService] Неверный пароль")
		return "", ErrInvalidPassword
	}

	token, err := s.tokens.Issue(auth.Claims{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("username", username).Msg("[AuthService] Ошибка генерации JWT")
		return "", ErrInternal
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("[AuthService] Пользователь успешно аутентифицирован")
	return token, nil
}

// Кастомные ошибки сервиса.
var (
	ErrUserNotFound    = errors.New("пользователь не найден")
	ErrInvalidPassword = errors.New("неверный пароль")
	ErrUsernameTaken   = errors.New("имя пользователя уже занято")
	ErrBookNotFound    = errors.New("книга не найдена")
	ErrInternal        = errors.New("внутренняя ошибка сервера")
)
