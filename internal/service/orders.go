package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// PlaceOrder оформляет заказ из корзины. При наличии сервера и токена заказ создаёт сервер,
// иначе (или при любой ошибке сервера) заказ собирается локально. Корзина очищается в обоих случаях.
func (s *Store) PlaceOrder(ctx context.Context, details model.OrderDetails) (model.Order, error) {
	s.mu.Lock()
	b := s.backendLocked(gateSession)
	gen := s.generation
	lines := append([]model.CartLine(nil), s.cart...)
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	order, err := b.CreateOrder(rctx, details)
	done()

	if err == nil {
		s.metrics.ObserveSync("order_create", nil)
		s.mu.Lock()
		if gen == s.generation {
			s.orders = append([]model.Order{order}, s.orders...)
		}
		s.mu.Unlock()
	} else {
		s.recordFailure(ctx, "order_create", KeepOptimisticOnFailure, err)

		s.mu.Lock()
		order = model.NewLocalOrder(s.provisionalIDLocked("o"), s.now(), lines, details, s.fee)
		s.orders = append([]model.Order{order}, s.orders...)
		s.mu.Unlock()
		s.logger.Info("order created locally", zap.String("order_id", order.ID.String()))
	}

	s.persistOrders(ctx)
	if err := s.ClearCart(ctx); err != nil {
		s.logger.Warn("clear cart after order failed", zap.Error(err))
	}
	return order, nil
}

// UpdateOrderStatus переводит заказ в новый статус и, если задан, назначает водителя.
// Недопустимый переход отклоняется без изменений. Сервер уведомляется по возможности;
// локальное изменение применяется и при ошибке сервера.
func (s *Store) UpdateOrderStatus(ctx context.Context, id model.ID, status model.OrderStatus, driverID model.ID) error {
	s.mu.Lock()
	if err := s.checkTransitionLocked(id, status, driverID); err != nil {
		s.mu.Unlock()
		return err
	}
	b := s.backendLocked(gateOnline)
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	err := b.UpdateOrderStatus(rctx, id, status, driverID)
	done()
	if err != nil {
		s.recordFailure(ctx, "order_status", KeepOptimisticOnFailure, err)
	} else {
		s.metrics.ObserveSync("order_status", nil)
	}

	s.mu.Lock()
	if err := s.checkTransitionLocked(id, status, driverID); err != nil {
		s.mu.Unlock()
		return err
	}
	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		s.orders[i].Status = status
		if driverID != "" {
			s.orders[i].DriverID = driverID
		}
		break
	}
	s.mu.Unlock()

	s.persistOrders(ctx)
	return nil
}

// checkTransitionLocked проверяет существование заказа и допустимость обновления. Вызывается под s.mu.
func (s *Store) checkTransitionLocked(id model.ID, to model.OrderStatus, driverID model.ID) error {
	for _, o := range s.orders {
		if o.ID != id {
			continue
		}
		if !model.CanUpdate(o.Status, to, driverID) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, to)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownOrder, id)
}
