package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartReconnect запускает фоновую попытку вернуться в онлайн: пока каталог не получен
// с сервера, он перезапрашивается каждые interval. Останавливается вместе с ctx.
func (s *Store) StartReconnect(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reconnectOnce(ctx)
			}
		}
	}()
}

// reconnectOnce перезапрашивает каталог, если хранилище офлайн. Возвращает true при переходе в онлайн.
func (s *Store) reconnectOnce(ctx context.Context) bool {
	if s.IsOnline() {
		return false
	}
	if err := s.fetchCatalog(ctx); err != nil {
		s.logger.Debug("still offline", zap.Error(err))
		return false
	}
	s.logger.Info("remote API reachable again")
	return true
}
