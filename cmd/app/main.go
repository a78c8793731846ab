package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/payment-reconciliation/pkg/bootstrap"
	"github.com/chris/payment-reconciliation/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start service", slog.Any("error", err))
		os.Exit(1)
	}
	defer svc.Close()

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("starting server",
		slog.String("port", cfg.HTTPPort),
		slog.String("storage", cfg.StorageDriver),
		slog.String("notifier", cfg.Notifier))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to start server", slog.Any("error", err))
		os.Exit(1)
	}
}
