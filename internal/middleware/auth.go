package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maynagashev/bookshelf/internal/auth"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/rs/zerolog/hlog"
)

// Тип для ключа контекста.
type contextKey string

// Ключи для хранения данных аутентифицированного пользователя в контексте.
const (
	UserIDKey contextKey = "userID"
	ClaimsKey contextKey = "claims"
)

// TokenVerifier проверяет токен и возвращает claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticator возвращает middleware, проверяющий Bearer токен.
// Без валидного токена запрос завершается ответом 401 и до обработчика не доходит.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				hlog.FromRequest(r).Info().Str("path", r.URL.Path).Msg("[AuthMiddleware] Заголовок Authorization отсутствует")
				writeUnauthorized(w, r, "Authentication required")
				return
			}

			// Проверяем формат "Bearer token"
			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") || headerParts[1] == "" {
				hlog.FromRequest(r).Info().Str("path", r.URL.Path).Msg("[AuthMiddleware] Неверный формат заголовка Authorization")
				writeUnauthorized(w, r, "Invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(headerParts[1])
			if err != nil {
				hlog.FromRequest(r).Info().Str("reason", failureReason(err)).Err(err).
					Msg("[AuthMiddleware] Токен отклонен")
				writeUnauthorized(w, r, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			hlog.FromRequest(r).Debug().Int64("user_id", claims.UserID).Msg("[AuthMiddleware] Пользователь аутентифицирован")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// failureReason возвращает класс ошибки проверки токена для логов.
func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed"
	default:
		return "unknown"
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="bookshelf"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(models.MessageResponse{Message: message}); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("[AuthMiddleware] Ошибка кодирования ответа")
	}
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
// Возвращает ID пользователя и true, если ID найден, иначе 0 и false.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// GetClaimsFromContext извлекает claims токена из контекста запроса.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
