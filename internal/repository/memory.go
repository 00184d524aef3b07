package repository

import (
	"context"
	"sync"
)

// MemoryStorage хранит значения в памяти процесса. Используется в тестах и режиме без диска.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage создаёт пустое хранилище в памяти.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get возвращает копию значения ключа.
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	dup := make([]byte, len(v))
	copy(dup, v)
	return dup, nil
}

// Set сохраняет копию значения.
func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	dup := make([]byte, len(value))
	copy(dup, value)

	m.mu.Lock()
	m.data[key] = dup
	m.mu.Unlock()
	return nil
}

// Delete удаляет ключ.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Close ничего не делает.
func (m *MemoryStorage) Close() error {
	return nil
}
