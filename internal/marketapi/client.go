// Package marketapi предоставляет HTTP-клиент REST API маркетплейса.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/repository"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "foodmarket-client/1.0"
	requestIDHeader  = "X-Request-ID"
)

// ErrSessionExpired возвращается, если токен доступа истёк и обновить его не удалось.
// Токены при этом удаляются из хранилища.
var ErrSessionExpired = errors.New("session expired")

// APIError описывает ответ сервера со статусом вне 2xx.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// IsNetworkError сообщает, что запрос не дошёл до сервера или не получил ответа.
// Ошибки локальных файлов и хранилища сетевыми не считаются.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return !errors.Is(err, context.Canceled)
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "no such host")
}

// IsAuthError сообщает об ошибке аутентификации или авторизации.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// Tokens пара токенов доступа.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Client инкапсулирует HTTP-взаимодействие с API маркетплейса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    repository.Storage
	logger     *zap.Logger

	mu      sync.Mutex
	access  string
	refresh string
}

// NewClient создаёт клиент API по базовому адресу вида http://host:8000/api.
// Токены сохраняются в storage под ключами accessToken и refreshToken.
func NewClient(baseURL string, storage repository.Storage, logger *zap.Logger, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if storage == nil {
		storage = repository.NewMemoryStorage()
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		storage: storage,
		logger:  logger,
	}
}

// LoadTokens читает токены из хранилища и сообщает, есть ли токен доступа.
func (c *Client) LoadTokens(ctx context.Context) (bool, error) {
	access, _, err := repository.Load[string](ctx, c.storage, repository.KeyAccessToken)
	if err != nil {
		return false, err
	}
	refresh, _, err := repository.Load[string](ctx, c.storage, repository.KeyRefreshToken)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.access = access
	c.refresh = refresh
	c.mu.Unlock()

	return access != "", nil
}

// HasToken сообщает, есть ли у клиента токен доступа.
func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access != ""
}

// AccessTokenExpired сообщает, что срок действия токена доступа истёк.
// Подпись не проверяется: это делает сервер, клиенту нужно только поле exp.
func (c *Client) AccessTokenExpired(now time.Time) bool {
	c.mu.Lock()
	access := c.access
	c.mu.Unlock()

	if access == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// EnsureFreshToken обновляет истёкший токен доступа.
func (c *Client) EnsureFreshToken(ctx context.Context) error {
	if !c.AccessTokenExpired(time.Now()) {
		return nil
	}
	return c.RefreshSession(ctx)
}

func (c *Client) setTokens(ctx context.Context, t Tokens) error {
	c.mu.Lock()
	c.access = t.Access
	if t.Refresh != "" {
		c.refresh = t.Refresh
	}
	refresh := c.refresh
	c.mu.Unlock()

	if err := repository.Save(ctx, c.storage, repository.KeyAccessToken, t.Access); err != nil {
		return err
	}
	return repository.Save(ctx, c.storage, repository.KeyRefreshToken, refresh)
}

// ClearTokens забывает токены и удаляет их из хранилища.
func (c *Client) ClearTokens(ctx context.Context) error {
	c.mu.Lock()
	c.access = ""
	c.refresh = ""
	c.mu.Unlock()

	if err := repository.Remove(ctx, c.storage, repository.KeyAccessToken); err != nil {
		return err
	}
	return repository.Remove(ctx, c.storage, repository.KeyRefreshToken)
}

// RefreshSession получает новый токен доступа по токену обновления.
func (c *Client) RefreshSession(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()

	if refresh == "" {
		return ErrSessionExpired
	}

	var resp Tokens
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh/",
		body:   map[string]string{"refresh": refresh},
		noAuth: true,
	}, &resp)
	if err != nil {
		c.logger.Debug("token refresh failed", zap.Error(err))
		if IsNetworkError(err) {
			return err
		}
		return ErrSessionExpired
	}
	if resp.Access == "" {
		return ErrSessionExpired
	}
	return c.setTokens(ctx, Tokens{Access: resp.Access, Refresh: resp.Refresh})
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     []byte
	contentType string
	noAuth      bool
}

// do выполняет запрос с JSON-телом. При 401 выполняется одна попытка обновить
// токен и повторить запрос; если обновление не удалось, токены удаляются.
func (c *Client) do(ctx context.Context, req request, dest any) error {
	if req.body != nil && req.rawBody == nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.rawBody = data
		req.contentType = "application/json"
	}

	err := c.send(ctx, req, dest)
	var apiErr *APIError
	if req.noAuth || !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	if refreshErr := c.RefreshSession(ctx); refreshErr != nil {
		if errors.Is(refreshErr, ErrSessionExpired) {
			if clearErr := c.ClearTokens(ctx); clearErr != nil {
				c.logger.Warn("clear tokens failed", zap.Error(clearErr))
			}
		}
		return refreshErr
	}
	return c.send(ctx, req, dest)
}

func (c *Client) send(ctx context.Context, r request, dest any) error {
	if c == nil {
		return errors.New("api client not configured")
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	body := r.rawBody
	if body == nil && r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = data
		r.contentType = "application/json"
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.noAuth {
		c.mu.Lock()
		access := c.access
		c.mu.Unlock()
		if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api response",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		}
	}

	if dest == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage достаёт текст ошибки из тела ответа: detail, error или весь JSON.
func errorMessage(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return strings.TrimSpace(string(trimmed))
	}
	for _, key := range []string{"detail", "error"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return string(trimmed)
}

// page ответ списка: либо массив, либо объект с полем results.
type page[T any] struct {
	items []T
}

func (p *page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &p.items)
	}
	var wrapped struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	p.items = wrapped.Results
	return nil
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var p page[T]
	if err := c.do(ctx, request{method: http.MethodGet, path: path, query: query}, &p); err != nil {
		return nil, err
	}
	return p.items, nil
}
