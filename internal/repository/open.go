package repository

import (
	"context"
	"fmt"
)

// Options выбирают и настраивают бэкенд хранилища.
type Options struct {
	Backend      string
	Path         string
	DatabaseURI  string
	RedisAddress string
	Namespace    string
}

// Open создаёт хранилище выбранного бэкенда.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "file", "":
		return NewFileStorage(opts.Path)
	case "postgres":
		return NewPostgresStorage(opts.DatabaseURI, opts.Namespace)
	case "redis":
		return NewRedisStorage(ctx, opts.RedisAddress, opts.Namespace)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
