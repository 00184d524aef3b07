package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "foodmarket"

type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStorage хранит ключи клиента в Redis под префиксом foodmarket:<namespace>:.
type RedisStorage struct {
	store     redisCmdable
	raw       *redis.Client
	namespace string
}

// NewRedisStorage подключается к Redis и проверяет соединение.
func NewRedisStorage(ctx context.Context, addr, namespace string) (*RedisStorage, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis address is required")
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if strings.TrimSpace(namespace) == "" {
		namespace = defaultNamespace
	}
	return &RedisStorage{store: raw, raw: raw, namespace: namespace}, nil
}

func (r *RedisStorage) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, r.namespace, key)
}

// Get возвращает значение ключа.
func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if r.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	data, err := r.store.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set сохраняет значение без срока жизни.
func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if r.store == nil {
		return errors.New("redis client not initialized")
	}
	if err := r.store.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ.
func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if r.store == nil {
		return errors.New("redis client not initialized")
	}
	if err := r.store.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close закрывает соединение.
func (r *RedisStorage) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}
