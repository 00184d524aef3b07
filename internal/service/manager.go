package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/validation"
)

// loadManagerRestaurant загружает ресторан менеджера, его товары, баннеры и сотрудников.
func (s *Store) loadManagerRestaurant(ctx context.Context) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	defer done()

	r, err := s.remote.ManagerRestaurant(rctx)
	if err != nil {
		s.recordFailure(ctx, "manager_restaurant_load", KeepOptimisticOnFailure, err)
		return
	}
	s.metrics.ObserveSync("manager_restaurant_load", nil)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.restaurant = r.Restaurant
	if r.Products != nil {
		s.products = r.Products
	}
	s.mu.Unlock()
	s.logger.Debug("manager restaurant loaded", zap.String("restaurant", r.Name))

	var (
		banners    []model.Banner
		team       []model.TeamMember
		bannersErr error
		teamErr    error
	)
	var g errgroup.Group
	g.Go(func() error {
		all, err := s.remote.Banners(rctx)
		if err != nil {
			bannersErr = err
			return nil
		}
		for _, b := range all {
			if b.Restaurant == r.ID {
				banners = append(banners, b)
			}
		}
		return nil
	})
	g.Go(func() error {
		team, teamErr = s.remote.TeamMembers(rctx)
		return nil
	})
	_ = g.Wait()

	if bannersErr != nil {
		s.recordFailure(ctx, "manager_banners_load", KeepOptimisticOnFailure, bannersErr)
	}
	if teamErr != nil {
		s.recordFailure(ctx, "team_load", KeepOptimisticOnFailure, teamErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if bannersErr == nil {
		s.banners = banners
	}
	if teamErr == nil {
		s.teamMembers = team
	}
}

// AddProduct добавляет товар в ресторан менеджера с временным идентификатором p<мс>.
// После успешного создания на сервере идентификатор заменяется серверным.
func (s *Store) AddProduct(ctx context.Context, p model.Product) (model.Product, error) {
	var created model.Product
	err := s.mutate(ctx, mutation{
		op:     "product_create",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			p.ID = s.provisionalIDLocked("p")
			p.Restaurant = s.restaurant.ID
			p.IsAvailable = true
			p.CreatedAt = s.now().UTC()
			s.products = append([]model.Product{p}, s.products...)
		},
		remote: func(ctx context.Context, b Backend) error {
			var err error
			created, err = b.CreateProduct(ctx, p)
			if err != nil {
				return err
			}
			if validation.IsLocalFileURI(p.Image) {
				if err := b.UploadProductImage(ctx, created.ID, p.Image); err != nil {
					s.logger.Warn("product image upload failed", zap.String("product_id", created.ID.String()), zap.Error(err))
				}
			}
			return nil
		},
		commit: func() {
			if created.ID == "" {
				return
			}
			for i := range s.products {
				if s.products[i].ID == p.ID {
					s.products[i].ID = created.ID
				}
			}
			p.ID = created.ID
		},
	})
	return p, err
}

// UpdateProduct изменяет товар. Локальный файл изображения загружается отдельно.
func (s *Store) UpdateProduct(ctx context.Context, id model.ID, upd model.ProductUpdate) error {
	return s.mutate(ctx, mutation{
		op:     "product_update",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			for i := range s.products {
				if s.products[i].ID == id {
					s.products[i] = upd.Apply(s.products[i])
				}
			}
		},
		remote: func(ctx context.Context, b Backend) error {
			if upd.HasFields() {
				if err := b.UpdateProduct(ctx, id, upd); err != nil {
					return err
				}
			}
			if upd.Image != nil && validation.IsLocalFileURI(*upd.Image) {
				return b.UploadProductImage(ctx, id, *upd.Image)
			}
			return nil
		},
	})
}

// DeleteProduct удаляет товар.
func (s *Store) DeleteProduct(ctx context.Context, id model.ID) error {
	return s.mutate(ctx, mutation{
		op:     "product_delete",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			out := s.products[:0]
			for _, p := range s.products {
				if p.ID != id {
					out = append(out, p)
				}
			}
			s.products = out
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.DeleteProduct(ctx, id)
		},
	})
}

// AddBanner добавляет баннер в конец списка с временным идентификатором b<мс>.
func (s *Store) AddBanner(ctx context.Context, banner model.Banner) (model.Banner, error) {
	var created model.Banner
	err := s.mutate(ctx, mutation{
		op:     "banner_create",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			banner.ID = s.provisionalIDLocked("b")
			banner.Restaurant = s.restaurant.ID
			banner.IsActive = true
			banner.Order = len(s.banners)
			s.banners = append(s.banners, banner)
		},
		remote: func(ctx context.Context, b Backend) error {
			var err error
			created, err = b.CreateBanner(ctx, banner)
			if err != nil {
				return err
			}
			if validation.IsLocalFileURI(banner.Image) {
				if err := b.UploadBannerImage(ctx, created.ID, banner.Image); err != nil {
					s.logger.Warn("banner image upload failed", zap.String("banner_id", created.ID.String()), zap.Error(err))
				}
			}
			return nil
		},
		commit: func() {
			if created.ID == "" {
				return
			}
			for i := range s.banners {
				if s.banners[i].ID == banner.ID {
					s.banners[i].ID = created.ID
				}
			}
			banner.ID = created.ID
		},
	})
	return banner, err
}

// UpdateBanner изменяет баннер.
func (s *Store) UpdateBanner(ctx context.Context, id model.ID, upd model.BannerUpdate) error {
	return s.mutate(ctx, mutation{
		op:     "banner_update",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			for i := range s.banners {
				if s.banners[i].ID == id {
					s.banners[i] = upd.Apply(s.banners[i])
				}
			}
		},
		remote: func(ctx context.Context, b Backend) error {
			if upd.HasFields() {
				if err := b.UpdateBanner(ctx, id, upd); err != nil {
					return err
				}
			}
			if upd.Image != nil && validation.IsLocalFileURI(*upd.Image) {
				return b.UploadBannerImage(ctx, id, *upd.Image)
			}
			return nil
		},
	})
}

// DeleteBanner удаляет баннер.
func (s *Store) DeleteBanner(ctx context.Context, id model.ID) error {
	return s.mutate(ctx, mutation{
		op:     "banner_delete",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			out := s.banners[:0]
			for _, b := range s.banners {
				if b.ID != id {
					out = append(out, b)
				}
			}
			s.banners = out
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.DeleteBanner(ctx, id)
		},
	})
}

// AddTeamMember добавляет сотрудника со статусом active и временным идентификатором t<мс>.
func (s *Store) AddTeamMember(ctx context.Context, m model.TeamMember) (model.TeamMember, error) {
	var created model.TeamMember
	err := s.mutate(ctx, mutation{
		op:     "team_create",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			m.ID = s.provisionalIDLocked("t")
			m.Status = "active"
			s.teamMembers = append(s.teamMembers, m)
		},
		remote: func(ctx context.Context, b Backend) error {
			var err error
			created, err = b.CreateTeamMember(ctx, m)
			return err
		},
		commit: func() {
			if created.ID == "" {
				return
			}
			for i := range s.teamMembers {
				if s.teamMembers[i].ID == m.ID {
					s.teamMembers[i].ID = created.ID
				}
			}
			m.ID = created.ID
		},
	})
	return m, err
}

// UpdateTeamMember изменяет сотрудника.
func (s *Store) UpdateTeamMember(ctx context.Context, id model.ID, upd model.TeamMemberUpdate) error {
	return s.mutate(ctx, mutation{
		op:     "team_update",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			for i := range s.teamMembers {
				if s.teamMembers[i].ID == id {
					s.teamMembers[i] = upd.Apply(s.teamMembers[i])
				}
			}
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.UpdateTeamMember(ctx, id, upd)
		},
	})
}

// DeleteTeamMember удаляет сотрудника.
func (s *Store) DeleteTeamMember(ctx context.Context, id model.ID) error {
	return s.mutate(ctx, mutation{
		op:     "team_delete",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			out := s.teamMembers[:0]
			for _, m := range s.teamMembers {
				if m.ID != id {
					out = append(out, m)
				}
			}
			s.teamMembers = out
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.DeleteTeamMember(ctx, id)
		},
	})
}

// UpdateRestaurant сливает изменения в запись ресторана и возвращает результат.
func (s *Store) UpdateRestaurant(ctx context.Context, upd model.RestaurantUpdate) (model.Restaurant, error) {
	var (
		id      model.ID
		updated model.Restaurant
	)
	err := s.mutate(ctx, mutation{
		op:     "restaurant_update",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			id = s.restaurant.ID
			s.restaurant = upd.Apply(s.restaurant)
			updated = s.restaurant
		},
		remote: func(ctx context.Context, b Backend) error {
			if err := b.UpdateRestaurant(ctx, id, upd); err != nil {
				return err
			}
			if upd.Image != nil && validation.IsLocalFileURI(*upd.Image) {
				if err := b.UploadRestaurantImage(ctx, id, *upd.Image); err != nil {
					s.logger.Warn("restaurant image upload failed", zap.String("restaurant_id", id.String()), zap.Error(err))
				}
			}
			return nil
		},
	})
	return updated, err
}

// ToggleRestaurantOpen открывает или закрывает ресторан и возвращает новое состояние.
func (s *Store) ToggleRestaurantOpen(ctx context.Context) (bool, error) {
	var (
		id     model.ID
		isOpen bool
	)
	err := s.mutate(ctx, mutation{
		op:     "restaurant_toggle_open",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			id = s.restaurant.ID
			s.restaurant.IsOpen = !s.restaurant.IsOpen
			isOpen = s.restaurant.IsOpen
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.ToggleRestaurantOpen(ctx, id)
		},
	})
	return isOpen, err
}

// RestaurantWithProducts возвращает ресторан с товарами: с сервера, а без сети из кэша каталога.
func (s *Store) RestaurantWithProducts(ctx context.Context, id model.ID) (model.RestaurantDetails, error) {
	s.mu.Lock()
	b := s.backendLocked(gateOnline)
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	details, err := b.Restaurant(rctx, id)
	done()
	if err == nil {
		s.metrics.ObserveSync("restaurant_load", nil)
		return details, nil
	}
	s.recordFailure(ctx, "restaurant_load", KeepOptimisticOnFailure, err)

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, c := range s.companies {
		if c.ID == id {
			details.Company = c
			found = true
			break
		}
	}
	details.Products = nil
	for _, p := range s.products {
		if p.Restaurant == id {
			details.Products = append(details.Products, p)
		}
	}
	if !found && len(details.Products) == 0 {
		return model.RestaurantDetails{}, fmt.Errorf("%w: %s", ErrUnknownRestaurant, id)
	}
	if !found {
		details.Company.ID = id
	}
	return details, nil
}
