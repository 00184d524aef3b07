package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/marketapi"
)

// SyncPolicy определяет судьбу оптимистичного локального изменения,
// если его удалённая синхронизация не удалась.
type SyncPolicy int

const (
	// KeepOptimisticOnFailure оставляет локальное изменение; ошибка только логируется.
	KeepOptimisticOnFailure SyncPolicy = iota
	// RevertOnFailure откатывает локальное изменение и возвращает ошибку.
	RevertOnFailure
)

func (p SyncPolicy) String() string {
	switch p {
	case KeepOptimisticOnFailure:
		return "keep_optimistic"
	case RevertOnFailure:
		return "revert"
	default:
		return fmt.Sprintf("SyncPolicy(%d)", int(p))
	}
}

// gate условие, при котором операция обращается к серверу.
type gate int

const (
	// gateAlways сервер вызывается всегда.
	gateAlways gate = iota
	// gateOnline только если каталог удалось загрузить с сервера.
	gateOnline
	// gateSession если сервер доступен и у сессии есть токен.
	gateSession
)

// mutation оптимистичное изменение состояния и его удалённый двойник.
// apply, revert и commit выполняются под s.mu.
type mutation struct {
	op      string
	policy  SyncPolicy
	gate    gate
	apply   func()
	persist func(ctx context.Context)
	remote  func(ctx context.Context, b Backend) error
	revert  func()
	commit  func()
}

// mutate применяет изменение локально и синхронизирует его с выбранным бэкендом.
// Ошибка возвращается только для RevertOnFailure.
func (s *Store) mutate(ctx context.Context, m mutation) error {
	s.mu.Lock()
	if m.apply != nil {
		m.apply()
	}
	b := s.backendLocked(m.gate)
	gen := s.generation
	s.mu.Unlock()

	if m.persist != nil {
		m.persist(ctx)
	}
	if m.remote == nil {
		return nil
	}

	rctx, done := s.sessionScope(ctx)
	err := m.remote(rctx, b)
	done()

	if err == nil {
		s.metrics.ObserveSync(m.op, nil)
		if m.commit != nil {
			s.mu.Lock()
			if gen == s.generation {
				m.commit()
			}
			s.mu.Unlock()
		}
		return nil
	}

	s.recordFailure(ctx, m.op, m.policy, err)

	if m.policy != RevertOnFailure {
		return nil
	}

	s.mu.Lock()
	if gen == s.generation && m.revert != nil {
		m.revert()
	}
	s.mu.Unlock()
	s.metrics.IncRevert(m.op)

	return fmt.Errorf("%s reverted: %w", m.op, err)
}

// recordFailure учитывает неудачный удалённый вызов.
func (s *Store) recordFailure(ctx context.Context, op string, policy SyncPolicy, err error) {
	switch {
	case errors.Is(err, ErrOffline):
		s.metrics.IncSkipped(op)
		s.logger.Debug("remote sync skipped", zap.String("op", op))
		return
	case errors.Is(err, context.Canceled):
		s.metrics.ObserveSync(op, err)
		s.logger.Debug("remote sync cancelled", zap.String("op", op))
		return
	}

	s.metrics.ObserveSync(op, err)
	s.logger.Warn("remote sync failed",
		zap.String("op", op),
		zap.Stringer("policy", policy),
		zap.Error(err),
	)

	if errors.Is(err, marketapi.ErrSessionExpired) {
		s.expireSession(ctx)
	}
}
