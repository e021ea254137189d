package handlers

import (
	"errors"
	"net/http"

	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/maynagashev/bookshelf/internal/services"
	"github.com/rs/zerolog/hlog"
)

// AuthHandler обрабатывает HTTP-запросы, связанные с аутентификацией.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s services.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Register обрабатывает запрос на регистрацию нового пользователя.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		hlog.FromRequest(r).Info().Err(err).Msg("[AuthHandler] Ошибка декодирования запроса регистрации")
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	// Валидация до хеширования и обращения к БД
	if err := req.Validate(); err != nil {
		msg := validationMessage(err, models.RegisterFields)
		hlog.FromRequest(r).Info().Str("reason", msg).Msg("[AuthHandler] Невалидный запрос регистрации")
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	userID, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			writeMessage(w, http.StatusConflict, "Username is already taken")
			return
		}
		writeMessage(w, http.StatusInternalServerError,
			"Server could not create user because of internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, models.RegisterResponse{
		Message: "User has been created successfully",
		UserID:  userID,
	})
}

// Login обрабатывает запрос на вход пользователя.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		hlog.FromRequest(r).Info().Err(err).Msg("[AuthHandler] Ошибка декодирования запроса входа")
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := req.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err, models.LoginFields))
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrInvalidPassword):
			writeMessage(w, http.StatusUnauthorized, "Invalid password")
		default:
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Message: "login successfully",
		Token:   token,
	})
}
