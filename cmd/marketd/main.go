// Package main запускает dev-сервер REST API маркетплейса с демо-данными.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/foodmarket-client/internal/config"
	"github.com/mmeshcher/foodmarket-client/internal/devserver"
	"github.com/mmeshcher/foodmarket-client/internal/logger"
	"github.com/mmeshcher/foodmarket-client/internal/middleware"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("marketd", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	sugar := log.Sugar()
	if envErr != nil {
		sugar.Debugw(".env file not loaded, relying on environment", "error", envErr)
	}

	state := devserver.NewState()
	if err := devserver.Seed(state); err != nil {
		sugar.Fatalw("seed error", "error", err)
	}

	faults := &devserver.Faults{}
	if mode := os.Getenv("FAULT_MODE"); mode != "" {
		m, err := devserver.ParseFaultMode(mode)
		if err != nil {
			sugar.Fatalw("fault mode error", "error", err)
		}
		faults.Set(m)
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	h := devserver.NewHandler(state, log, authMiddleware, faults)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting marketplace dev server",
			"addr", cfg.RunAddress,
			"fault_mode", faults.Mode().String(),
			"demo_password", devserver.DemoPassword,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal("application terminated with error", zap.Error(err))
	}
}
