// Package repository содержит локальное долговременное хранилище клиента в формате ключ-значение.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Ключи, под которыми клиент сохраняет состояние. Значения хранятся в JSON.
const (
	KeyUser         = "user"
	KeyCart         = "cart"
	KeyOrders       = "orders"
	KeyCategories   = "categories"
	KeyCompanies    = "companies"
	KeyProducts     = "products"
	KeyBanners      = "banners"
	KeyDrivers      = "drivers"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// ErrNotFound возвращается, если ключ отсутствует в хранилище.
var ErrNotFound = errors.New("key not found")

// Storage описывает контракт локального хранилища ключ-значение.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Load читает значение ключа и декодирует его в T. Второе значение false, если ключа нет.
func Load[T any](ctx context.Context, s Storage, key string) (T, bool, error) {
	var v T
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// Save кодирует значение в JSON и сохраняет под ключом.
func Save(ctx context.Context, s Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Remove удаляет ключ. Отсутствие ключа ошибкой не считается.
func Remove(ctx context.Context, s Storage, key string) error {
	if err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
