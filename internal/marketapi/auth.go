package marketapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

type authResponse struct {
	User   model.User `json:"user"`
	Tokens Tokens     `json:"tokens"`
}

// Login аутентифицирует пользователя и сохраняет выданные токены.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var resp authResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login/",
		body:   map[string]string{"email": email, "password": password},
		noAuth: true,
	}, &resp)
	if err != nil {
		return model.User{}, err
	}
	if err := c.setTokens(ctx, resp.Tokens); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Register создаёт пользователя и сохраняет выданные токены.
func (c *Client) Register(ctx context.Context, data model.SignupData) (model.User, error) {
	if data.Password2 == "" {
		data.Password2 = data.Password
	}
	var resp authResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register/",
		body:   data,
		noAuth: true,
	}, &resp)
	if err != nil {
		return model.User{}, err
	}
	if err := c.setTokens(ctx, resp.Tokens); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Logout отзывает токен обновления на сервере. Локальные токены удаляются в любом случае.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()

	var remoteErr error
	if refresh != "" {
		remoteErr = c.send(ctx, request{
			method: http.MethodPost,
			path:   "/auth/logout/",
			body:   map[string]string{"refresh": refresh},
		}, nil)
		if remoteErr != nil {
			c.logger.Debug("remote logout failed", zap.Error(remoteErr))
		}
	}

	if err := c.ClearTokens(ctx); err != nil {
		return err
	}
	return remoteErr
}

// Profile возвращает профиль текущего пользователя.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var user model.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/profile/"}, &user)
	return user, err
}

// UpdateProfile частично обновляет профиль.
func (c *Client) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error) {
	var user model.User
	err := c.do(ctx, request{method: http.MethodPatch, path: "/auth/profile/", body: upd}, &user)
	return user, err
}
