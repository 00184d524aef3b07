package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// readThrough читает данные с сервера, а при ошибке или без сети отдаёт локальную версию.
// local вызывается под s.mu.
func readThrough[T any](ctx context.Context, s *Store, op string, g gate,
	remote func(ctx context.Context, b Backend) (T, error), local func() (T, error),
) (T, error) {
	s.mu.Lock()
	b := s.backendLocked(g)
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	v, err := remote(rctx, b)
	done()
	if err == nil {
		s.metrics.ObserveSync(op, nil)
		return v, nil
	}
	s.recordFailure(ctx, op, KeepOptimisticOnFailure, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return local()
}

// FeaturedRestaurants рестораны с высоким рейтингом.
func (s *Store) FeaturedRestaurants(ctx context.Context) ([]model.Company, error) {
	return readThrough(ctx, s, "featured_restaurants", gateOnline,
		func(ctx context.Context, b Backend) ([]model.Company, error) {
			return b.FeaturedRestaurants(ctx)
		},
		func() ([]model.Company, error) {
			return filter(s.companies, model.Company.IsFeatured), nil
		})
}

// RestaurantsByCategory рестораны выбранной категории.
func (s *Store) RestaurantsByCategory(ctx context.Context, categoryID model.ID) ([]model.Company, error) {
	return readThrough(ctx, s, "restaurants_by_category", gateOnline,
		func(ctx context.Context, b Backend) ([]model.Company, error) {
			return b.RestaurantsByCategory(ctx, categoryID)
		},
		func() ([]model.Company, error) {
			return filter(s.companies, func(c model.Company) bool { return c.Category == categoryID }), nil
		})
}

// AllProducts полный список товаров.
func (s *Store) AllProducts(ctx context.Context) ([]model.Product, error) {
	return readThrough(ctx, s, "products_load", gateOnline,
		func(ctx context.Context, b Backend) ([]model.Product, error) {
			return b.Products(ctx)
		},
		func() ([]model.Product, error) {
			return append([]model.Product(nil), s.products...), nil
		})
}

// FindProduct возвращает товар по идентификатору.
func (s *Store) FindProduct(ctx context.Context, id model.ID) (model.Product, error) {
	return readThrough(ctx, s, "product_load", gateOnline,
		func(ctx context.Context, b Backend) (model.Product, error) {
			return b.Product(ctx, id)
		},
		func() (model.Product, error) {
			for _, p := range s.products {
				if p.ID == id {
					return p, nil
				}
			}
			return model.Product{}, fmt.Errorf("%w: %s", ErrInvalidProduct, id)
		})
}

// ProductsByRestaurant товары одного ресторана.
func (s *Store) ProductsByRestaurant(ctx context.Context, restaurantID model.ID) ([]model.Product, error) {
	return readThrough(ctx, s, "products_by_restaurant", gateOnline,
		func(ctx context.Context, b Backend) ([]model.Product, error) {
			return b.ProductsByRestaurant(ctx, restaurantID)
		},
		func() ([]model.Product, error) {
			return filter(s.products, func(p model.Product) bool { return p.Restaurant == restaurantID }), nil
		})
}

// FeaturedProducts доступные товары с изображением.
func (s *Store) FeaturedProducts(ctx context.Context) ([]model.Product, error) {
	return readThrough(ctx, s, "featured_products", gateOnline,
		func(ctx context.Context, b Backend) ([]model.Product, error) {
			return b.FeaturedProducts(ctx)
		},
		func() ([]model.Product, error) {
			return filter(s.products, model.Product.IsFeatured), nil
		})
}

// Settings настройки приложения. Без сети используется локальная стоимость доставки.
func (s *Store) Settings(ctx context.Context) (model.AppSettings, error) {
	return readThrough(ctx, s, "settings_load", gateOnline,
		func(ctx context.Context, b Backend) (model.AppSettings, error) {
			return b.AppSettings(ctx)
		},
		func() (model.AppSettings, error) {
			return model.AppSettings{DefaultDeliveryFee: s.fee, Currency: model.DefaultCurrency}, nil
		})
}

// OrderHistory заказы пользователя на сервере. Без сети возвращаются локальные заказы.
func (s *Store) OrderHistory(ctx context.Context) ([]model.Order, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}
	return readThrough(ctx, s, "orders_load", gateSession,
		func(ctx context.Context, b Backend) ([]model.Order, error) {
			return b.Orders(ctx)
		},
		func() ([]model.Order, error) {
			return cloneOrders(s.orders), nil
		})
}

// PendingOrders заказы, ожидающие подтверждения.
func (s *Store) PendingOrders(ctx context.Context) ([]model.Order, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}
	return readThrough(ctx, s, "pending_orders_load", gateSession,
		func(ctx context.Context, b Backend) ([]model.Order, error) {
			return b.PendingOrders(ctx)
		},
		func() ([]model.Order, error) {
			return filter(cloneOrders(s.orders), func(o model.Order) bool {
				return o.Status == model.OrderStatusPending
			}), nil
		})
}

// DriverMissions незавершённые заказы, назначенные текущему водителю.
func (s *Store) DriverMissions(ctx context.Context) ([]model.Order, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}
	return readThrough(ctx, s, "missions_load", gateSession,
		func(ctx context.Context, b Backend) ([]model.Order, error) {
			return b.DriverMissions(ctx)
		},
		func() ([]model.Order, error) {
			if s.session == nil {
				return nil, ErrNotAuthenticated
			}
			me := s.session.User.ID
			return filter(cloneOrders(s.orders), func(o model.Order) bool {
				return o.DriverID == me && !o.Status.IsTerminal()
			}), nil
		})
}

// FetchOrder обновляет заказ с сервера. Серверная версия заменяет локальную копию.
func (s *Store) FetchOrder(ctx context.Context, id model.ID) (model.Order, error) {
	if !s.authenticated() {
		return model.Order{}, ErrNotAuthenticated
	}
	var fetched bool
	order, err := readThrough(ctx, s, "order_load", gateSession,
		func(ctx context.Context, b Backend) (model.Order, error) {
			o, err := b.Order(ctx, id)
			fetched = err == nil
			return o, err
		},
		func() (model.Order, error) {
			for _, o := range s.orders {
				if o.ID == id {
					return cloneOrders([]model.Order{o})[0], nil
				}
			}
			return model.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
		})
	if err != nil || !fetched {
		return order, err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i] = order
			replaced = true
			break
		}
	}
	s.mu.Unlock()
	if replaced {
		s.persistOrders(ctx)
	}
	return order, nil
}

// ManagerDashboard сводка по заказам ресторана менеджера.
func (s *Store) ManagerDashboard(ctx context.Context) (model.ManagerDashboard, error) {
	if !s.authenticated() {
		return model.ManagerDashboard{}, ErrNotAuthenticated
	}
	return readThrough(ctx, s, "manager_dashboard_load", gateSession,
		func(ctx context.Context, b Backend) (model.ManagerDashboard, error) {
			return b.ManagerDashboard(ctx)
		},
		func() (model.ManagerDashboard, error) {
			return model.SummarizeOrders(s.restaurant.Name, s.orders, len(s.products)), nil
		})
}

func (s *Store) authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
