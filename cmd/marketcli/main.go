// Package main клиент маркетплейса доставки еды для терминала.
// Состояние хранится локально и синхронизируется с сервером, когда он доступен.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/mmeshcher/foodmarket-client/internal/config"
	"github.com/mmeshcher/foodmarket-client/internal/logger"
	"github.com/mmeshcher/foodmarket-client/internal/marketapi"
	"github.com/mmeshcher/foodmarket-client/internal/metrics"
	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/repository"
	"github.com/mmeshcher/foodmarket-client/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "marketcli: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	log, err := logger.New("marketcli", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := repository.Open(ctx, repository.Options{
		Backend:      cfg.StorageBackend,
		Path:         cfg.StoragePath,
		DatabaseURI:  cfg.DatabaseURI,
		RedisAddress: cfg.RedisAddress,
		Namespace:    "marketcli",
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	client := marketapi.NewClient(cfg.APIBaseURL, storage, log, cfg.RequestTimeout)
	reg := prometheus.NewRegistry()
	store := service.NewStore(service.Options{
		Storage:     storage,
		Backend:     client,
		Logger:      log,
		Metrics:     metrics.NewSyncMetrics(reg),
		DeliveryFee: model.Amount(cfg.DeliveryFee),
	})
	defer func() { err = multierr.Append(err, store.Close()) }()

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	a := newApp(store, reg, os.Stdout)
	return a.run(ctx, flag.Args())
}
