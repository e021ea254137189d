package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/bookshelf/internal/auth"
	"github.com/maynagashev/bookshelf/internal/client"
	"github.com/maynagashev/bookshelf/internal/handlers"
	"github.com/maynagashev/bookshelf/internal/models"
	"github.com/maynagashev/bookshelf/internal/repository"
	"github.com/maynagashev/bookshelf/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func TestSetupRouter(t *testing.T) {
	r := setupRouter(
		handlers.NewAuthHandler(nil),
		handlers.NewBookHandler(nil),
		auth.NewTokenManager(testSecret, time.Minute),
	)
	require.NotNil(t, r)

	// Проверяем наличие маршрутов
	assert.True(t, hasRoute(r, http.MethodGet, "/ping"))
	assert.True(t, hasRoute(r, http.MethodPost, "/auth/register"))
	assert.True(t, hasRoute(r, http.MethodPost, "/auth/login"))
	assert.True(t, hasRoute(r, http.MethodPost, "/books/"))
	assert.True(t, hasRoute(r, http.MethodGet, "/books/"))
	assert.True(t, hasRoute(r, http.MethodGet, "/books/{bookId}"))
	assert.True(t, hasRoute(r, http.MethodPut, "/books/{bookId}"))
	assert.True(t, hasRoute(r, http.MethodDelete, "/books/{bookId}"))

	t.Run("ping", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "pong\n", rr.Body.String())
	})

	// Обработчики книг созданы с nil сервисом: если запрос дойдет до них, будет panic -> 500
	t.Run("Маршруты книг закрыты без токена", func(t *testing.T) {
		for _, tc := range []struct{ method, path string }{
			{http.MethodPost, "/books"},
			{http.MethodGet, "/books"},
			{http.MethodGet, "/books/1"},
			{http.MethodPut, "/books/1"},
			{http.MethodDelete, "/books/1"},
		} {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)))
			assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
		}
	})
}

// Вспомогательная функция для проверки наличия маршрута.
func hasRoute(r chi.Router, method, pattern string) bool {
	found := false
	// Ошибка chi.Walk используется только для прерывания обхода
	_ = chi.Walk(r, func(m, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if m == method && route == pattern {
			found = true
			return errors.New("found")
		}
		return nil
	})
	return found
}

func TestSetupDependencies(t *testing.T) {
	// Сохраняем оригинальную функцию и восстанавливаем после тестов
	originalNewPostgresDB := newPostgresDB
	defer func() { newPostgresDB = originalNewPostgresDB }()

	mockDB := func(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		return sqlx.NewDb(db, "sqlmock"), mock
	}

	t.Run("Ошибка: Некорректный DatabaseDSN", func(t *testing.T) {
		newPostgresDB = originalNewPostgresDB
		cfg := &config{DatabaseDSN: "невалидный dsn", JWTSecret: testSecret}

		_, err := setupDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка инициализации БД")
	})

	t.Run("Ошибка миграции закрывает соединение", func(t *testing.T) {
		db, mock := mockDB(t)
		newPostgresDB = func(_ string) (*sqlx.DB, error) { return db, nil }
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))
		mock.ExpectClose()

		cfg := &config{DatabaseDSN: "dummy-dsn-for-mock", JWTSecret: testSecret, TokenTTL: time.Minute}
		_, err := setupDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка применения миграций")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Успешное выполнение с миграцией", func(t *testing.T) {
		db, mock := mockDB(t)
		newPostgresDB = func(_ string) (*sqlx.DB, error) { return db, nil }
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

		cfg := &config{DatabaseDSN: "dummy-dsn-for-mock", JWTSecret: testSecret, TokenTTL: time.Minute}
		deps, err := setupDependencies(context.Background(), cfg)
		require.NoError(t, err)
		require.NotNil(t, deps)
		assert.NotNil(t, deps.db)
		assert.NotNil(t, deps.authHandler)
		assert.NotNil(t, deps.bookHandler)
		require.NotNil(t, deps.tokens)
		assert.Equal(t, time.Minute, deps.tokens.TTL())
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = deps.db.Close()
	})

	t.Run("Миграция пропускается с -skip-migrate", func(t *testing.T) {
		db, mock := mockDB(t)
		newPostgresDB = func(_ string) (*sqlx.DB, error) { return db, nil }

		cfg := &config{DatabaseDSN: "dummy-dsn-for-mock", JWTSecret: testSecret, SkipMigrate: true}
		deps, err := setupDependencies(context.Background(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, deps.bookHandler)
		assert.NoError(t, mock.ExpectationsWereMet()) // ни одного запроса
		_ = deps.db.Close()
	})
}

func TestSetupLogger(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	originalDefault := zerolog.DefaultContextLogger
	defer func() {
		zerolog.SetGlobalLevel(originalLevel)
		zerolog.DefaultContextLogger = originalDefault
	}()

	setupLogger(&config{LogLevel: "DEBUG"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(&config{LogLevel: "не уровень"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	// Код без логгера запроса в контексте пишет в глобальный логгер
	assert.Same(t, &log.Logger, zerolog.Ctx(context.Background()))
}

// --- Сквозной сценарий через роутер с репозиториями в памяти --- //

type memUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]models.User
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[string]models.User)}
}

func (r *memUserRepository) CreateUser(_ context.Context, user *models.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return 0, repository.ErrUsernameTaken
	}
	r.nextID++
	stored := *user
	stored.ID = r.nextID
	r.users[user.Username] = stored
	return stored.ID, nil
}

func (r *memUserRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

type memBookRepository struct {
	mu     sync.Mutex
	nextID int64
	books  map[int64]models.Book
}

func newMemBookRepository() *memBookRepository {
	return &memBookRepository{books: make(map[int64]models.Book)}
}

func (r *memBookRepository) CreateBook(_ context.Context, book *models.Book) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *book
	stored.ID = r.nextID
	r.books[stored.ID] = stored
	return stored.ID, nil
}

func (r *memBookRepository) ListBooks(_ context.Context) ([]models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	books := make([]models.Book, 0, len(r.books))
	for id := int64(1); id <= r.nextID; id++ {
		if b, ok := r.books[id]; ok {
			books = append(books, b)
		}
	}
	return books, nil
}

func (r *memBookRepository) GetBookByID(_ context.Context, bookID int64) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[bookID]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return &b, nil
}

func (r *memBookRepository) UpdateBook(
	_ context.Context, bookID int64, upd models.UpdateBookRequest, updatedAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[bookID]
	if !ok {
		return repository.ErrBookNotFound
	}
	if upd.Title != nil {
		b.Title = *upd.Title
	}
	if upd.Author != nil {
		b.Author = *upd.Author
	}
	if upd.Publisher != nil {
		b.Publisher = *upd.Publisher
	}
	b.UpdatedAt = updatedAt
	r.books[bookID] = b
	return nil
}

func (r *memBookRepository) DeleteBook(_ context.Context, bookID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[bookID]; !ok {
		return repository.ErrBookNotFound
	}
	delete(r.books, bookID)
	return nil
}

type testServer struct {
	router http.Handler
	users  *memUserRepository
	books  *memBookRepository
}

func newTestServer() *testServer {
	users := newMemUserRepository()
	books := newMemBookRepository()

	// Каждое обращение к часам сдвигает время на секунду
	var mu sync.Mutex
	clock := time.Date(2025, 5, 15, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	tokens := auth.NewTokenManager(testSecret, auth.DefaultTokenTTL)
	authService := services.NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens)
	bookService := services.NewBookService(books, services.WithBookClock(tick))

	return &testServer{
		router: setupRouter(handlers.NewAuthHandler(authService), handlers.NewBookHandler(bookService), tokens),
		users:  users,
		books:  books,
	}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestBookshelfScenario(t *testing.T) {
	s := newTestServer()

	// Регистрация
	rr := s.do(t, http.MethodPost, "/auth/register", "",
		`{"username":"alice","password":"pw","firstName":"Alice","lastName":"Smith"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	reg := decodeBody[models.RegisterResponse](t, rr)
	assert.Equal(t, "User has been created successfully", reg.Message)
	assert.Equal(t, int64(1), reg.UserID)

	// Пароль хранится только в виде хеша
	stored, err := s.users.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)

	// Вход
	rr = s.do(t, http.MethodPost, "/auth/login", "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	login := decodeBody[models.LoginResponse](t, rr)
	assert.Equal(t, "login successfully", login.Message)
	require.NotEmpty(t, login.Token)

	claims, err := auth.NewTokenManager(testSecret, time.Minute).Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "Alice", claims.FirstName)
	assert.Equal(t, "Smith", claims.LastName)

	// Создание книги: user_id из тела игнорируется
	rr = s.do(t, http.MethodPost, "/books", login.Token,
		`{"user_id":42,"title":"T","author":"Au","publisher":"Pub"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Created book successfully", decodeBody[models.MessageResponse](t, rr).Message)

	// Список
	rr = s.do(t, http.MethodGet, "/books", login.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[models.BookListResponse](t, rr)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "T", list.Data[0].Title)
	assert.Equal(t, int64(1), list.Data[0].UserID)
	created := list.Data[0]

	// Частичное обновление
	rr = s.do(t, http.MethodPut, "/books/1", login.Token, `{"title":"T2"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Updated book successfully", decodeBody[models.MessageResponse](t, rr).Message)

	rr = s.do(t, http.MethodGet, "/books/1", login.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[models.BookResponse](t, rr)
	require.NotNil(t, got.Data)
	assert.Equal(t, "T2", got.Data.Title)
	assert.Equal(t, "Au", got.Data.Author)
	assert.Equal(t, "Pub", got.Data.Publisher)
	assert.True(t, created.CreatedAt.Equal(got.Data.CreatedAt))
	assert.True(t, got.Data.UpdatedAt.After(got.Data.CreatedAt))

	// Удаление
	rr = s.do(t, http.MethodDelete, "/books/1", login.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Deleted book successfully", decodeBody[models.MessageResponse](t, rr).Message)

	rr = s.do(t, http.MethodGet, "/books/1", login.Token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/books", login.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestBookshelfScenario_AuthFailures(t *testing.T) {
	s := newTestServer()

	rr := s.do(t, http.MethodPost, "/auth/register", "",
		`{"username":"bob","password":"pw","firstName":"Bob","lastName":"B"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("Повторная регистрация", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/auth/register", "",
			`{"username":"bob","password":"other","firstName":"Bob","lastName":"B"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Len(t, s.users.users, 1)
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/auth/login", "", `{"username":"bob","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid password", decodeBody[models.MessageResponse](t, rr).Message)
	})

	t.Run("Неизвестный пользователь", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/auth/login", "", `{"username":"nobody","password":"pw"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "user not found", decodeBody[models.MessageResponse](t, rr).Message)
	})

	t.Run("Регистрация без обязательных полей", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/auth/register", "", `{"username":"carol"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Password is required", decodeBody[models.MessageResponse](t, rr).Message)
		assert.Len(t, s.users.users, 1)
	})

	t.Run("Токен с чужим секретом", func(t *testing.T) {
		foreign, err := auth.NewTokenManager("other-secret", time.Minute).Issue(auth.Claims{UserID: 1})
		require.NoError(t, err)

		rr := s.do(t, http.MethodPost, "/books", foreign, `{"title":"T","author":"Au","publisher":"Pub"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, s.books.books)
	})

	t.Run("Просроченный токен", func(t *testing.T) {
		past := func() time.Time { return time.Now().Add(-time.Hour) }
		expired, err := auth.NewTokenManager(testSecret, time.Minute, auth.WithClock(past)).
			Issue(auth.Claims{UserID: 1})
		require.NoError(t, err)

		rr := s.do(t, http.MethodGet, "/books", expired, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Невалидная книга не сохраняется", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/auth/login", "", `{"username":"bob","password":"pw"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		token := decodeBody[models.LoginResponse](t, rr).Token

		rr = s.do(t, http.MethodPost, "/books", token, `{"title":"T","author":"Au"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Publisher is required", decodeBody[models.MessageResponse](t, rr).Message)
		assert.Empty(t, s.books.books)
	})
}

// Тот же сценарий по сети через HTTP-клиент.
func TestBookshelfScenario_OverHTTP(t *testing.T) {
	server := httptest.NewServer(newTestServer().router)
	defer server.Close()

	ctx := context.Background()
	c := client.NewHTTPClient(server.URL, server.Client())

	userID, err := c.Register(ctx, models.RegisterRequest{
		Username: "dave", Password: "pw", FirstName: "Dave", LastName: "D",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)

	_, err = c.Register(ctx, models.RegisterRequest{
		Username: "dave", Password: "pw", FirstName: "Dave", LastName: "D",
	})
	require.ErrorIs(t, err, client.ErrConflict)

	_, err = c.ListBooks(ctx)
	require.ErrorIs(t, err, client.ErrNoToken)

	_, err = c.Login(ctx, "dave", "pw")
	require.NoError(t, err)

	require.NoError(t, c.CreateBook(ctx, models.CreateBookRequest{Title: "T", Author: "Au", Publisher: "Pub"}))

	books, err := c.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)

	publisher := "Pub2"
	require.NoError(t, c.UpdateBook(ctx, books[0].ID, models.UpdateBookRequest{Publisher: &publisher}))

	book, err := c.GetBook(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "T", book.Title)
	assert.Equal(t, "Pub2", book.Publisher)

	require.NoError(t, c.DeleteBook(ctx, books[0].ID))
	_, err = c.GetBook(ctx, books[0].ID)
	require.ErrorIs(t, err, client.ErrNotFound)

	c.SetAuthToken("garbage")
	_, err = c.ListBooks(ctx)
	require.ErrorIs(t, err, client.ErrAuthorization)
}
