package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// Login аутентифицирует пользователя на сервере. Если сервер недоступен,
// создаётся локальная сессия без токена с указанной ролью. Ошибки аутентификации возвращаются.
func (s *Store) Login(ctx context.Context, email, password string, role model.Role) (model.User, error) {
	user, err := s.remote.Login(ctx, email, password)
	if err != nil {
		if !isNetworkClass(err) {
			s.logger.Info("login rejected", zap.String("email", email), zap.Error(err))
			return model.User{}, err
		}

		s.logger.Info("server unreachable, using offline session", zap.Error(err))
		if !role.IsValid() {
			role = model.RoleClient
		}
		name, _, _ := strings.Cut(email, "@")

		s.mu.Lock()
		user = model.User{
			ID:        s.provisionalIDLocked("u"),
			Email:     email,
			Username:  name,
			FirstName: name,
			Role:      role,
		}
		s.mu.Unlock()

		s.startSession(ctx, user, false)
		return user, nil
	}

	s.startSession(ctx, user, true)
	s.LoadRoleData(ctx)
	return user, nil
}

// Signup регистрирует пользователя с той же логикой деградации, что и Login.
func (s *Store) Signup(ctx context.Context, data model.SignupData) (model.User, error) {
	user, err := s.remote.Register(ctx, data)
	if err != nil {
		if !isNetworkClass(err) {
			s.logger.Info("signup rejected", zap.String("email", data.Email), zap.Error(err))
			return model.User{}, err
		}

		s.logger.Info("server unreachable, using offline session", zap.Error(err))
		role := data.Role
		if !role.IsValid() {
			role = model.RoleClient
		}

		s.mu.Lock()
		user = model.User{
			ID:        s.provisionalIDLocked("u"),
			Email:     data.Email,
			Username:  data.Username,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Phone:     data.Phone,
			Role:      role,
		}
		s.mu.Unlock()

		s.startSession(ctx, user, false)
		return user, nil
	}

	s.startSession(ctx, user, true)
	s.LoadRoleData(ctx)
	return user, nil
}

func (s *Store) startSession(ctx context.Context, user model.User, hasToken bool) {
	s.mu.Lock()
	s.session = &model.Session{User: user, HasRemoteToken: hasToken}
	s.mu.Unlock()

	s.persistSession(ctx)
}

// Logout завершает сессию: отменяет незавершённые запросы, отзывает токен на сервере
// (ошибка игнорируется), очищает данные менеджера и сбрасывает ресторан.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.resetSessionLocked()
	s.mu.Unlock()

	if err := s.remote.Logout(ctx); err != nil {
		s.logger.Info("remote logout failed", zap.Error(err))
	}
	s.persistSession(ctx)
	return nil
}

// LoadRoleData загружает данные, зависящие от роли: расписание водителя или ресторан менеджера.
func (s *Store) LoadRoleData(ctx context.Context) {
	s.mu.Lock()
	if s.session == nil || !s.session.HasRemoteToken {
		s.mu.Unlock()
		return
	}
	role := s.session.User.Role
	s.mu.Unlock()

	switch role {
	case model.RoleDriver:
		s.loadDriverData(ctx)
	case model.RoleManager:
		s.loadManagerRestaurant(ctx)
	}
}

// LoadProfile перечитывает профиль с сервера; для водителя подмешивает статистику.
func (s *Store) LoadProfile(ctx context.Context) (model.User, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return model.User{}, ErrNotAuthenticated
	}
	gen := s.generation
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	defer done()

	user, err := s.remote.Profile(rctx)
	if err != nil {
		s.recordFailure(ctx, "profile_load", KeepOptimisticOnFailure, err)
		return model.User{}, fmt.Errorf("load profile: %w", err)
	}
	s.metrics.ObserveSync("profile_load", nil)

	if user.Role == model.RoleDriver {
		stats, err := s.remote.DriverDashboard(rctx)
		if err != nil {
			s.recordFailure(ctx, "driver_dashboard", KeepOptimisticOnFailure, err)
		} else {
			user.Deliveries = stats.Deliveries
			user.Rating = stats.Rating
			user.ThisMonth = stats.ThisMonth
		}
	}

	s.mu.Lock()
	if gen != s.generation || s.session == nil {
		s.mu.Unlock()
		return model.User{}, ErrNotAuthenticated
	}
	s.session.User = user
	s.mu.Unlock()

	s.persistSession(ctx)
	return user, nil
}

// UpdateProfile применяет изменения профиля локально и синхронизирует их с сервером.
func (s *Store) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error) {
	if s.Session() == nil {
		return model.User{}, ErrNotAuthenticated
	}

	var updated model.User
	authenticated := false
	err := s.mutate(ctx, mutation{
		op:     "profile_update",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			if s.session == nil {
				return
			}
			authenticated = true
			s.session.User = upd.Apply(s.session.User)
			updated = s.session.User
		},
		persist: s.persistSession,
		remote: func(ctx context.Context, b Backend) error {
			if !authenticated {
				return nil
			}
			_, err := b.UpdateProfile(ctx, upd)
			return err
		},
	})
	if err != nil {
		return model.User{}, err
	}
	if !authenticated {
		return model.User{}, ErrNotAuthenticated
	}
	return updated, nil
}

// SetUserRole меняет роль пользователя локально.
func (s *Store) SetUserRole(ctx context.Context, role model.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.session.User.Role = role
	s.mu.Unlock()

	s.persistSession(ctx)
	return nil
}
