// Package middleware содержит HTTP middleware dev-сервера маркетплейса.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const claimsKey contextKey = "claims"

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var signingMethod = jwt.SigningMethodHS256

// ErrInvalidToken токен не прошёл проверку подписи, срока или типа.
var ErrInvalidToken = errors.New("invalid token")

// Claims полезная нагрузка токенов dev-сервера.
type Claims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// AuthMiddleware проверяет bearer-токены и выпускает пары access/refresh.
type AuthMiddleware struct {
	secretKey  []byte
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthMiddleware создаёт AuthMiddleware. С пустым секретом генерируется случайный ключ.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey:  key,
		now:        time.Now,
		accessTTL:  accessTokenTTL,
		refreshTTL: refreshTokenTTL,
	}
}

// WithAccessTTL меняет срок жизни access-токена.
func (a *AuthMiddleware) WithAccessTTL(ttl time.Duration) *AuthMiddleware {
	a.accessTTL = ttl
	return a
}

// Middleware проверяет заголовок Authorization и кладёт claims в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		claims, err := a.parse(token, tokenTypeAccess)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueTokens выпускает пару access/refresh для пользователя.
func (a *AuthMiddleware) IssueTokens(userID, role string) (access, refresh string, err error) {
	access, err = a.sign(userID, role, tokenTypeAccess, a.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = a.sign(userID, role, tokenTypeRefresh, a.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseRefreshToken проверяет refresh-токен и возвращает его claims.
func (a *AuthMiddleware) ParseRefreshToken(token string) (*Claims, error) {
	return a.parse(token, tokenTypeRefresh)
}

func (a *AuthMiddleware) sign(userID, role, typ string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (a *AuthMiddleware) parse(token, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return a.secretKey, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFromContext извлекает claims пользователя из контекста запроса.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
