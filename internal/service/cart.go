package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/repository"
)

// AddToCart добавляет товар в корзину или увеличивает его количество на единицу.
func (s *Store) AddToCart(ctx context.Context, p model.Product) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	return s.mutate(ctx, mutation{
		op:     "cart_add",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			for i := range s.cart {
				if s.cart[i].ProductID == p.ID {
					s.cart[i].Quantity++
					return
				}
			}
			s.cart = append(s.cart, model.CartLine{
				ProductID:  p.ID,
				Name:       p.Name,
				Price:      p.Price,
				Quantity:   1,
				Image:      p.Image,
				Restaurant: p.Restaurant,
			})
		},
		persist: s.persistCart,
		remote: func(ctx context.Context, b Backend) error {
			return b.CartAddItem(ctx, p.ID, 1)
		},
	})
}

// UpdateCartQuantity меняет количество на delta. Позиция с количеством 0 удаляется.
// Отсутствующая позиция не меняется.
func (s *Store) UpdateCartQuantity(ctx context.Context, productID model.ID, delta int) error {
	var (
		found  bool
		newQty int
	)
	return s.mutate(ctx, mutation{
		op:     "cart_update",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			for i := range s.cart {
				if s.cart[i].ProductID != productID {
					continue
				}
				found = true
				newQty = max(0, s.cart[i].Quantity+delta)
				if newQty == 0 {
					s.cart = append(s.cart[:i], s.cart[i+1:]...)
				} else {
					s.cart[i].Quantity = newQty
				}
				return
			}
		},
		persist: s.persistCart,
		remote: func(ctx context.Context, b Backend) error {
			if !found {
				return nil
			}
			if newQty == 0 {
				return b.CartRemoveItem(ctx, productID)
			}
			return b.CartUpdateItem(ctx, productID, newQty)
		},
	})
}

// RemoveFromCart удаляет позицию корзины.
func (s *Store) RemoveFromCart(ctx context.Context, productID model.ID) error {
	return s.mutate(ctx, mutation{
		op:     "cart_remove",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			s.cart = removeLine(s.cart, productID)
		},
		persist: s.persistCart,
		remote: func(ctx context.Context, b Backend) error {
			return b.CartRemoveItem(ctx, productID)
		},
	})
}

// ClearCart очищает корзину и удаляет её сохранённую копию.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, mutation{
		op:     "cart_clear",
		policy: KeepOptimisticOnFailure,
		gate:   gateSession,
		apply: func() {
			s.cart = nil
		},
		persist: s.removeStoredCart,
		remote: func(ctx context.Context, b Backend) error {
			return b.CartClear(ctx)
		},
	})
}

func (s *Store) removeStoredCart(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return
	}

	if err := repository.Remove(ctx, s.storage, repository.KeyCart); err != nil {
		s.logger.Warn("remove stored cart failed", zap.Error(err))
	}
}

func removeLine(cart []model.CartLine, productID model.ID) []model.CartLine {
	out := cart[:0]
	for _, l := range cart {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	return out
}

// normalizeCart приводит сохранённую корзину к инварианту: одна позиция на товар, количество не меньше 1.
func normalizeCart(cart []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, 0, len(cart))
	index := make(map[model.ID]int, len(cart))
	for _, l := range cart {
		if l.Quantity <= 0 || l.ProductID == "" {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
