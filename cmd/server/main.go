package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/bookshelf/internal/auth"
	"github.com/maynagashev/bookshelf/internal/handlers"
	appmiddleware "github.com/maynagashev/bookshelf/internal/middleware"
	"github.com/maynagashev/bookshelf/internal/repository"
	"github.com/maynagashev/bookshelf/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	migrateTimeout         = 30 * time.Second
)

// newPostgresDB подменяется в тестах.
var newPostgresDB = repository.NewPostgresDB

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db          *sqlx.DB
	tokens      *auth.TokenManager
	authHandler *handlers.AuthHandler
	bookHandler *handlers.BookHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("Ошибка выполнения сервера")
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}
	setupLogger(cfg)

	log.Info().Msg("Запуск сервера Bookshelf...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer func() {
		if closeErr := deps.db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Ошибка закрытия соединения с БД")
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(deps.authHandler, deps.bookHandler, deps.tokens),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if cfg.useTLS() {
			log.Info().Str("port", cfg.Port).Str("cert", cfg.CertFile).Str("key", cfg.KeyFile).
				Msg("Запуск HTTPS-сервера")
			serveErr <- server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		log.Info().Str("port", cfg.Port).Msg("Запуск HTTP-сервера")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Получен сигнал остановки, завершаем работу...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	log.Info().Msg("Сервер остановлен")
	return nil
}

// setupLogger настраивает глобальный логгер zerolog.
func setupLogger(cfg *config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "bookshelf").Logger()
	// Логгер для контекстов без логгера запроса (старт, миграции)
	zerolog.DefaultContextLogger = &log.Logger
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД
	deps.db, err = newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}

	// 2. Схема
	if !cfg.SkipMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, migrateTimeout)
		err = repository.Migrate(migrateCtx, deps.db)
		cancel()
		if err != nil {
			if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
				log.Error().Err(dbCloseErr).Msg("Ошибка закрытия соединения с БД при ошибке миграции")
			}
			return nil, fmt.Errorf("ошибка применения миграций: %w", err)
		}
	}

	// 3. Репозитории
	userRepo := repository.NewPostgresUserRepository(deps.db)
	bookRepo := repository.NewPostgresBookRepository(deps.db)

	// 4. Сервисы
	deps.tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(userRepo, auth.NewPasswordHasher(auth.DefaultCost), deps.tokens)
	bookService := services.NewBookService(bookRepo)

	// 5. Обработчики
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.bookHandler = handlers.NewBookHandler(bookService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(
	authHandler *handlers.AuthHandler,
	bookHandler *handlers.BookHandler,
	verifier appmiddleware.TokenVerifier,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.RequestLogger(log.Logger))
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	// Публичные маршруты (регистрация, вход)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Приватные маршруты (требуют аутентификации)
	r.Route("/books", func(r chi.Router) {
		r.Use(appmiddleware.Authenticator(verifier))

		r.Post("/", bookHandler.Create)
		r.Get("/", bookHandler.List)
		r.Get("/{bookId}", bookHandler.Get)
		r.Put("/{bookId}", bookHandler.Update)
		r.Delete("/{bookId}", bookHandler.Delete)
	})
	return r
}
