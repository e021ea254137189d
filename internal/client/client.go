// Package client реализует HTTP-клиент для API Bookshelf.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/maynagashev/bookshelf/internal/models"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrAuthorization сигнализирует об ошибке авторизации (401).
	ErrAuthorization = errors.New("ошибка авторизации")
	// ErrNotFound - сервер ответил 404.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict - сервер ответил 409 (имя пользователя занято).
	ErrConflict = errors.New("конфликт данных")
	// ErrNoToken - метод требует токен, но Login еще не выполнялся.
	ErrNoToken = errors.New("токен аутентификации отсутствует")
)

// APIError описывает неуспешный ответ сервера.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("статус %d: %s", e.StatusCode, e.Message)
}

// Unwrap сопоставляет статус с ошибками пакета для errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthorization
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// Client определяет интерфейс для взаимодействия с API сервера Bookshelf.
type Client interface {
	// Register регистрирует нового пользователя и возвращает его ID.
	Register(ctx context.Context, req models.RegisterRequest) (int64, error)
	// Login аутентифицирует пользователя, сохраняет и возвращает JWT токен.
	Login(ctx context.Context, username, password string) (string, error)
	CreateBook(ctx context.Context, req models.CreateBookRequest) error
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, bookID int64) (*models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, req models.UpdateBookRequest) error
	DeleteBook(ctx context.Context, bookID int64) error
	// SetAuthToken устанавливает JWT токен для аутентифицированных запросов.
	SetAuthToken(token string)
}

var _ Client = (*httpClient)(nil)

// httpClient реализует интерфейс Client для взаимодействия с сервером по HTTP.
type httpClient struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	authToken string
}

// NewHTTPClient создает новый экземпляр API клиента.
// Если hc == nil, используется http.Client с таймаутом по умолчанию.
func NewHTTPClient(baseURL string, hc *http.Client) Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &httpClient{baseURL: baseURL, httpClient: hc}
}

func (c *httpClient) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

func (c *httpClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// Register отправляет запрос на регистрацию на сервер.
func (c *httpClient) Register(ctx context.Context, req models.RegisterRequest) (int64, error) {
	var resp models.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", false, req, http.StatusCreated, &resp); err != nil {
		return 0, fmt.Errorf("ошибка регистрации: %w", err)
	}
	return resp.UserID, nil
}

// Login отправляет запрос на вход и сохраняет токен для последующих запросов.
func (c *httpClient) Login(ctx context.Context, username, password string) (string, error) {
	req := models.LoginRequest{Username: username, Password: password}

	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", false, req, http.StatusOK, &resp); err != nil {
		return "", fmt.Errorf("ошибка входа: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("сервер вернул пустой токен")
	}

	c.SetAuthToken(resp.Token)
	return resp.Token, nil
}

func (c *httpClient) CreateBook(ctx context.Context, req models.CreateBookRequest) error {
	if err := c.do(ctx, http.MethodPost, "/books", true, req, http.StatusCreated, nil); err != nil {
		return fmt.Errorf("ошибка создания книги: %w", err)
	}
	return nil
}

func (c *httpClient) ListBooks(ctx context.Context) ([]models.Book, error) {
	var resp models.BookListResponse
	if err := c.do(ctx, http.MethodGet, "/books", true, nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("ошибка получения списка книг: %w", err)
	}
	return resp.Data, nil
}

func (c *httpClient) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	var resp models.BookResponse
	if err := c.do(ctx, http.MethodGet, bookPath(bookID), true, nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("ошибка получения книги %d: %w", bookID, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("сервер вернул пустую книгу %d", bookID)
	}
	return resp.Data, nil
}

func (c *httpClient) UpdateBook(ctx context.Context, bookID int64, req models.UpdateBookRequest) error {
	if err := c.do(ctx, http.MethodPut, bookPath(bookID), true, req, http.StatusOK, nil); err != nil {
		return fmt.Errorf("ошибка обновления книги %d: %w", bookID, err)
	}
	return nil
}

func (c *httpClient) DeleteBook(ctx context.Context, bookID int64) error {
	if err := c.do(ctx, http.MethodDelete, bookPath(bookID), true, nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("ошибка удаления книги %d: %w", bookID, err)
	}
	return nil
}

func bookPath(bookID int64) string {
	return "/books/" + strconv.FormatInt(bookID, 10)
}

// do выполняет JSON-запрос и декодирует ответ в out (если out != nil).
// Статус, отличный от want, превращается в *APIError с сообщением сервера.
func (c *httpClient) do(
	ctx context.Context,
	method, path string,
	withAuth bool,
	body interface{},
	want int,
	out interface{},
) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("ошибка формирования URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("ошибка кодирования запроса: %w", marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		token := c.token()
		if token == "" {
			return ErrNoToken
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var msg models.MessageResponse
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}
